package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	redis "github.com/redis/go-redis/v9"
)

// ArtifactStore tracks which video owns each artifact filename and keeps the
// display metadata of produced artifacts. Memory is authoritative; redis,
// when configured, mirrors the metadata with a TTL.
type ArtifactStore struct {
	mu      sync.RWMutex
	owners  map[string]string // name -> video id
	byVideo map[string]string // video id -> name
	items   map[string]Artifact

	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewArtifactStore(rdb *redis.Client, ttl time.Duration, logger *log.Logger) *ArtifactStore {
	return &ArtifactStore{
		owners:  make(map[string]string),
		byVideo: make(map[string]string),
		items:   make(map[string]Artifact),
		redis:   rdb,
		ttl:     ttl,
		logger:  logger,
	}
}

// initRedis returns nil when no address is configured or the server does not answer.
func initRedis(ctx context.Context, cfg Config, logger *log.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		logger.Warn("⚠️  Redis not available, using in-memory index", "addr", cfg.RedisAddr, "err", err)
		_ = client.Close()
		return nil
	}
	logger.Info("✅ Redis connected", "addr", cfg.RedisAddr)
	return client
}

// Connected reports whether metadata is mirrored to redis.
func (s *ArtifactStore) Connected() bool {
	return s.redis != nil
}

// Claim reserves name for videoID. It returns false when a different video
// already owns the name.
func (s *ArtifactStore) Claim(name, videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.owners[name]; ok && owner != videoID {
		return false
	}
	s.owners[name] = videoID
	s.byVideo[videoID] = name
	return true
}

// Owner returns the video that holds name.
func (s *ArtifactStore) Owner(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[name]
	return owner, ok
}

// NameFor returns the name videoID currently holds, claimed or finished.
func (s *ArtifactStore) NameFor(videoID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.byVideo[videoID]
	return name, ok
}

// Release drops a claim that did not produce an artifact.
func (s *ArtifactStore) Release(name, videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[name] != videoID {
		return
	}
	if _, done := s.items[name]; done {
		return
	}
	s.forget(name)
}

// forget drops every in-memory trace of name. Callers hold mu.
func (s *ArtifactStore) forget(name string) {
	if owner, ok := s.owners[name]; ok && s.byVideo[owner] == name {
		delete(s.byVideo, owner)
	}
	delete(s.owners, name)
	delete(s.items, name)
}

// Put records a finished artifact.
func (s *ArtifactStore) Put(ctx context.Context, a Artifact) {
	s.mu.Lock()
	s.owners[a.Name] = a.VideoID
	s.byVideo[a.VideoID] = a.Name
	s.items[a.Name] = a
	s.mu.Unlock()

	if err := s.saveToRedis(ctx, a); err != nil {
		s.logger.Warn("redis save failed", "name", a.Name, "err", err)
	}
}

// Get looks up artifact metadata, memory first.
func (s *ArtifactStore) Get(ctx context.Context, name string) (Artifact, bool) {
	s.mu.RLock()
	a, ok := s.items[name]
	s.mu.RUnlock()
	if ok {
		return a, true
	}
	ra, err := s.getFromRedis(ctx, name)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis get failed", "name", name, "err", err)
		}
		return Artifact{}, false
	}
	if ra == nil {
		return Artifact{}, false
	}
	return *ra, true
}

// Delete forgets name everywhere.
func (s *ArtifactStore) Delete(ctx context.Context, name string) {
	s.mu.Lock()
	s.forget(name)
	s.mu.Unlock()

	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, RedisKeyPrefix+name).Err(); err != nil {
		s.logger.Warn("redis delete failed", "name", name, "err", err)
	}
}

// Len is the number of known artifacts.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *ArtifactStore) saveToRedis(ctx context.Context, a Artifact) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, RedisKeyPrefix+a.Name, data, s.ttl).Err()
}

func (s *ArtifactStore) getFromRedis(ctx context.Context, name string) (*Artifact, error) {
	if s.redis == nil {
		return nil, nil
	}
	val, err := s.redis.Get(ctx, RedisKeyPrefix+name).Result()
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, err
	}
	return &a, nil
}
