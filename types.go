package main

import "time"

// Candidate is one search result; only the first one the provider returns is kept.
type Candidate struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
}

// AudioMeta is what a stream resolver reports about a video before downloading.
type AudioMeta struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	DurationSeconds int    `json:"duration_seconds"`
	Ext             string `json:"ext,omitempty"`
	Abr             int    `json:"abr,omitempty"`
	StreamURL       string `json:"-"`
}

// Artifact is a transcoded file in the artifact directory.
type Artifact struct {
	Name            string    `json:"name"`
	Key             string    `json:"key"`
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	Author          string    `json:"author,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	Size            int64     `json:"size,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	CacheHit        bool      `json:"-"`
}

// URLPath is where the static server exposes the artifact.
func (a Artifact) URLPath() string {
	return "/" + a.Name
}

type HealthStatus struct {
	Status         string `json:"status"`
	ActiveJobs     int64  `json:"active_jobs"`
	CompletedJobs  int64  `json:"completed_jobs"`
	FailedJobs     int64  `json:"failed_jobs"`
	CacheHits      int64  `json:"cache_hits"`
	Artifacts      int    `json:"artifacts"`
	RedisConnected bool   `json:"redis_connected"`
	SearchProvider string `json:"search_provider"`
	StreamResolver string `json:"stream_resolver"`
	Uptime         string `json:"uptime"`
	MemoryUsage    string `json:"memory_usage"`
}
