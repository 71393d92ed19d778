package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// isSweepable reports whether name is an artifact or a temp file left by an
// interrupted transcode.
func isSweepable(name string) bool {
	if strings.HasSuffix(name, ArtifactExt) {
		return true
	}
	return strings.HasPrefix(name, ".") && strings.Contains(name, ArtifactExt+".tmp-")
}

// Sweep deletes every artifact in dir. Per-file failures are logged and
// skipped; only an unreadable directory is returned as an error.
func Sweep(ctx context.Context, dir string, store *ArtifactStore, logger *log.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read artifact dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !isSweepable(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Error("failed to remove artifact", "file", e.Name(), "err", err)
			continue
		}
		if store != nil {
			store.Delete(ctx, e.Name())
		}
		removed++
		logger.Debug("artifact removed", "file", e.Name())
	}
	return removed, nil
}
