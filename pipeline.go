package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Pipeline turns a search candidate into an MP3 artifact on disk.
type Pipeline struct {
	dir              string
	naming           string
	maxDuration      int
	metadataTimeout  time.Duration
	transcodeTimeout time.Duration

	resolver   StreamResolver
	transcoder Transcoder
	store      *ArtifactStore
	inflight   *inflightRegistry
	logger     *log.Logger

	// baseCtx bounds shared operations; request contexts only bound waiting.
	baseCtx context.Context
}

func NewPipeline(baseCtx context.Context, cfg Config, resolver StreamResolver, transcoder Transcoder, store *ArtifactStore, logger *log.Logger) *Pipeline {
	return &Pipeline{
		dir:              cfg.ArtifactDir,
		naming:           cfg.Naming,
		maxDuration:      cfg.MaxDurationSeconds,
		metadataTimeout:  cfg.MetadataTimeout,
		transcodeTimeout: cfg.TranscodeTimeout,
		resolver:         resolver,
		transcoder:       transcoder,
		store:            store,
		inflight:         newInflightRegistry(),
		logger:           logger,
		baseCtx:          baseCtx,
	}
}

// Produce returns the artifact for c, transcoding it unless it already
// exists. Concurrent calls for the same video share one operation; ctx only
// bounds how long this caller waits.
func (p *Pipeline) Produce(ctx context.Context, c Candidate) (Artifact, error) {
	key := CacheKey(c.ID)
	name := p.fileName(c, key)

	if a, ok := p.cached(ctx, name, c, key); ok {
		metrics.cacheHits.Add(1)
		p.logger.Info("🎵 Audio already downloaded", "file", name)
		return a, nil
	}

	call, leader := p.inflight.register(key)
	if leader {
		go func() {
			a, err := p.produce(p.baseCtx, c, key, name)
			p.inflight.notifyCompletion(key, a, err)
		}()
	} else {
		p.logger.Debug("joining in-flight conversion", "key", key, "file", name)
	}
	return call.wait(ctx)
}

// fileName applies the naming mode without claiming anything. A video keeps
// the name it already holds; a title name owned by another video gets a key
// suffix instead of serving the wrong audio.
func (p *Pipeline) fileName(c Candidate, key string) string {
	if p.naming == NamingID {
		return key + ArtifactExt
	}
	if name, ok := p.store.NameFor(c.ID); ok {
		return name
	}
	name := TitleFileName(c.Title, key)
	if owner, ok := p.store.Owner(name); ok && owner != c.ID {
		return disambiguate(name, key)
	}
	return name
}

// claimName reserves name for the leader of an operation. Only leaders claim,
// so requests joining a running operation never take a name.
func (p *Pipeline) claimName(c Candidate, key, name string) string {
	if p.naming == NamingID || p.store.Claim(name, c.ID) {
		return name
	}
	alt := disambiguate(TitleFileName(c.Title, key), key)
	p.store.Claim(alt, c.ID)
	p.logger.Warn("artifact name collision", "title", c.Title, "file", name, "using", alt)
	return alt
}

func (p *Pipeline) path(name string) string {
	return filepath.Join(p.dir, name)
}

// cached reports a cache hit when name already exists on disk.
func (p *Pipeline) cached(ctx context.Context, name string, c Candidate, key string) (Artifact, bool) {
	fi, err := os.Stat(p.path(name))
	if err != nil || !fi.Mode().IsRegular() {
		return Artifact{}, false
	}
	a, ok := p.store.Get(ctx, name)
	if !ok {
		a = Artifact{
			Name:            name,
			Key:             key,
			VideoID:         c.ID,
			Title:           c.Title,
			DurationSeconds: c.DurationSeconds,
			CreatedAt:       fi.ModTime(),
		}
	}
	a.Size = fi.Size()
	a.CacheHit = true
	return a, true
}

func (p *Pipeline) produce(ctx context.Context, c Candidate, key, name string) (Artifact, error) {
	name = p.claimName(c, key, name)
	// Another operation may have finished between the cache check and register.
	if a, ok := p.cached(ctx, name, c, key); ok {
		return a, nil
	}

	metrics.activeJobs.Add(1)
	defer metrics.activeJobs.Add(-1)

	start := time.Now()
	a, err := p.convert(ctx, c, key, name)
	if err != nil {
		p.store.Release(name, c.ID)
		metrics.failedJobs.Add(1)
		p.logger.Error("❌ Conversion failed", "video", c.ID, "file", name, "kind", errorKind(err), "err", err)
		return Artifact{}, err
	}
	metrics.completedJobs.Add(1)
	p.logger.Info("✅ Download and conversion complete", "file", name, "elapsed", time.Since(start).Round(time.Millisecond))
	return a, nil
}

func (p *Pipeline) convert(ctx context.Context, c Candidate, key, name string) (Artifact, error) {
	metaCtx, cancel := context.WithTimeout(ctx, p.metadataTimeout)
	meta, err := p.resolver.Metadata(metaCtx, c.ID)
	cancel()
	if err != nil {
		return Artifact{}, err
	}
	if meta.ID == "" {
		meta.ID = c.ID
	}
	duration := meta.DurationSeconds
	if duration == 0 {
		duration = c.DurationSeconds
	}
	if duration > p.maxDuration {
		return Artifact{}, &TooLongError{DurationSeconds: duration, LimitSeconds: p.maxDuration}
	}

	tctx, cancel := context.WithTimeout(ctx, p.transcodeTimeout)
	defer cancel()

	stream, err := p.resolver.Open(tctx, meta)
	if err != nil {
		return Artifact{}, err
	}
	defer stream.Close()

	tmp, err := os.CreateTemp(p.dir, "."+name+".tmp-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpName)

	if err := p.transcoder.Transcode(tctx, stream, tmpName); err != nil {
		return Artifact{}, &TranscodeError{Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, p.path(name)); err != nil {
		return Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}

	a := Artifact{
		Name:            name,
		Key:             key,
		VideoID:         c.ID,
		Title:           c.Title,
		Author:          meta.Author,
		DurationSeconds: duration,
		CreatedAt:       time.Now(),
	}
	if fi, err := os.Stat(p.path(name)); err == nil {
		a.Size = fi.Size()
	}
	p.store.Put(ctx, a)
	return a, nil
}
