package main

import (
	"sync/atomic"
	"time"
)

// Metrics are process-wide counters shared by the pipeline and the ops endpoints.
type Metrics struct {
	activeJobs    atomic.Int64
	completedJobs atomic.Int64
	failedJobs    atomic.Int64
	cacheHits     atomic.Int64
	requests      atomic.Int64
	rejected      atomic.Int64
}

var (
	metrics = &Metrics{}

	// Server start time
	serverStartTime = time.Now()
)
