package main

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// setupGracefulShutdown stops srv once ctx is cancelled and closes done
// when in-flight requests have drained.
func setupGracefulShutdown(ctx context.Context, srv *http.Server, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("🛑 Graceful shutdown initiated...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
			return
		}
		logger.Info("✅ Graceful shutdown completed")
	}()
	return done
}

// startHealthCheck logs a status line every HealthCheckInterval.
func startHealthCheck(ctx context.Context, store *ArtifactStore, logger *log.Logger) {
	ticker := time.NewTicker(HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			logger.Debug("health",
				"active", metrics.activeJobs.Load(),
				"completed", metrics.completedJobs.Load(),
				"failed", metrics.failedJobs.Load(),
				"artifacts", store.Len(),
				"memory", getMemoryUsage(),
			)
		case <-ctx.Done():
			return
		}
	}
}

func getMemoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return humanize.Bytes(m.Alloc)
}

func uptime() string {
	return strings.TrimSpace(humanize.RelTime(serverStartTime, time.Now(), "", ""))
}

// calculateSuccessRate is the percentage of finished conversions that succeeded.
func calculateSuccessRate() float64 {
	completed := metrics.completedJobs.Load()
	failed := metrics.failedJobs.Load()
	if completed+failed == 0 {
		return 0
	}
	return float64(completed) / float64(completed+failed) * 100
}
