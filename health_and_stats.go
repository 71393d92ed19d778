package main

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if metrics.activeJobs.Load() > int64(runtime.NumCPU()*2) {
		status = "overloaded"
	}
	health := HealthStatus{
		Status:         status,
		ActiveJobs:     metrics.activeJobs.Load(),
		CompletedJobs:  metrics.completedJobs.Load(),
		FailedJobs:     metrics.failedJobs.Load(),
		CacheHits:      metrics.cacheHits.Load(),
		Artifacts:      s.store.Len(),
		RedisConnected: s.store.Connected(),
		SearchProvider: s.cfg.SearchProvider,
		StreamResolver: s.cfg.StreamResolver,
		Uptime:         uptime(),
		MemoryUsage:    getMemoryUsage(),
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_jobs":       metrics.activeJobs.Load(),
		"completed_jobs":    metrics.completedJobs.Load(),
		"failed_jobs":       metrics.failedJobs.Load(),
		"cache_hits":        metrics.cacheHits.Load(),
		"requests":          metrics.requests.Load(),
		"rate_limited":      metrics.rejected.Load(),
		"rate_limit":        s.cfg.RequestsPerSecond,
		"max_duration":      s.cfg.MaxDurationSeconds,
		"uptime_seconds":    time.Since(serverStartTime).Seconds(),
		"inflight_requests": s.pipeline.inflight.len(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"artifacts":      s.store.Len(),
		"active_jobs":    metrics.activeJobs.Load(),
		"completed_jobs": metrics.completedJobs.Load(),
		"failed_jobs":    metrics.failedJobs.Load(),
		"cache_hits":     metrics.cacheHits.Load(),
		"success_rate":   calculateSuccessRate(),
	})
}

// GET /api/artifacts/{name}
func (s *Server) handleArtifactInfo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a, ok := s.store.Get(r.Context(), name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": s.msgs.NotFound})
		return
	}
	if path, ok := s.artifactPath(name); ok {
		if fi, err := os.Stat(path); err == nil {
			a.Size = fi.Size()
		}
	}
	writeJSON(w, http.StatusOK, a)
}

// DELETE /api/artifacts/{name}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, ok := s.artifactPath(name)
	if !ok || !strings.HasSuffix(name, ArtifactExt) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": s.msgs.NotFound})
		return
	}
	_, known := s.store.Get(r.Context(), name)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to delete artifact", "file", name, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.msgs.Internal})
		return
	}
	if err != nil && !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": s.msgs.NotFound})
		return
	}
	s.store.Delete(r.Context(), name)
	s.logger.Info("🗑️  Artifact deleted", "file", name)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}
