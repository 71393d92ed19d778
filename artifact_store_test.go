package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestArtifactStore_Claim(t *testing.T) {
	s := NewArtifactStore(nil, time.Hour, testLogger())

	if !s.Claim("song.mp3", "a") {
		t.Fatal("first claim failed")
	}
	if !s.Claim("song.mp3", "a") {
		t.Error("owner could not re-claim its name")
	}
	if s.Claim("song.mp3", "b") {
		t.Error("another video claimed an owned name")
	}

	s.Release("song.mp3", "b")
	if s.Claim("song.mp3", "b") {
		t.Error("release by a non-owner dropped the claim")
	}
	s.Release("song.mp3", "a")
	if !s.Claim("song.mp3", "b") {
		t.Error("released name could not be claimed")
	}
}

func TestArtifactStore_ReleaseKeepsFinishedArtifacts(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore(nil, time.Hour, testLogger())
	s.Put(ctx, Artifact{Name: "song.mp3", VideoID: "a"})

	s.Release("song.mp3", "a")
	if s.Claim("song.mp3", "b") {
		t.Error("release dropped the claim of a finished artifact")
	}
}

func TestArtifactStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore(nil, time.Hour, testLogger())
	if s.Connected() {
		t.Error("store without redis reports connected")
	}

	a := Artifact{Name: "song.mp3", Key: CacheKey("a"), VideoID: "a", Title: "Song"}
	s.Put(ctx, a)
	got, ok := s.Get(ctx, "song.mp3")
	if !ok || got.Title != "Song" || got.Key != a.Key {
		t.Errorf("Get = %+v, %v", got, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	s.Delete(ctx, "song.mp3")
	if _, ok := s.Get(ctx, "song.mp3"); ok {
		t.Error("Get after Delete found the artifact")
	}
	if !s.Claim("song.mp3", "b") {
		t.Error("Delete kept the name claim")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestInitRedis_NoAddress(t *testing.T) {
	cfg := DefaultConfig()
	if rdb := initRedis(context.Background(), cfg, testLogger()); rdb != nil {
		t.Error("initRedis without an address returned a client")
	}
}

func TestArtifactStore_NameFor(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore(nil, time.Hour, testLogger())

	s.Claim("song.mp3", "a")
	if name, ok := s.NameFor("a"); !ok || name != "song.mp3" {
		t.Errorf("NameFor after Claim = %q, %v", name, ok)
	}
	s.Release("song.mp3", "a")
	if _, ok := s.NameFor("a"); ok {
		t.Error("NameFor kept a released claim")
	}

	s.Put(ctx, Artifact{Name: "other.mp3", VideoID: "b"})
	if name, ok := s.NameFor("b"); !ok || name != "other.mp3" {
		t.Errorf("NameFor after Put = %q, %v", name, ok)
	}
	if owner, ok := s.Owner("other.mp3"); !ok || owner != "b" {
		t.Errorf("Owner = %q, %v", owner, ok)
	}
	s.Delete(ctx, "other.mp3")
	if _, ok := s.NameFor("b"); ok {
		t.Error("NameFor kept a deleted artifact")
	}
}

func TestArtifactStore_RedisMirror(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedisClient(t)
	s := NewArtifactStore(rdb, time.Hour, testLogger())
	if !s.Connected() {
		t.Fatal("store with a redis client reports disconnected")
	}

	a := Artifact{
		Name:            "song.mp3",
		Key:             CacheKey("a"),
		VideoID:         "a",
		Title:           "Song",
		Author:          "Someone",
		DurationSeconds: 200,
		Size:            4096,
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	s.Put(ctx, a)

	key := RedisKeyPrefix + "song.mp3"
	if !mr.Exists(key) {
		t.Fatalf("%s not written to redis", key)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	// A store with an empty memory map falls back to redis.
	fresh := NewArtifactStore(rdb, time.Hour, testLogger())
	got, ok := fresh.Get(ctx, "song.mp3")
	if !ok {
		t.Fatal("Get did not fall back to redis")
	}
	if got.VideoID != a.VideoID || got.Title != a.Title || got.Author != a.Author ||
		got.Size != a.Size || !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("redis entry = %+v, want %+v", got, a)
	}
	if _, ok := fresh.Get(ctx, "missing.mp3"); ok {
		t.Error("Get found a key that was never written")
	}

	fresh.Delete(ctx, "song.mp3")
	if mr.Exists(key) {
		t.Error("Delete left the redis key")
	}
}

func TestArtifactStore_RedisExpiry(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedisClient(t)
	NewArtifactStore(rdb, time.Minute, testLogger()).Put(ctx, Artifact{Name: "song.mp3", VideoID: "a"})

	mr.FastForward(2 * time.Minute)
	if _, ok := NewArtifactStore(rdb, time.Minute, testLogger()).Get(ctx, "song.mp3"); ok {
		t.Error("expired redis entry still returned")
	}
}

func TestArtifactStore_RedisDown(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newRedisClient(t)
	s := NewArtifactStore(rdb, time.Hour, testLogger())
	mr.Close()

	// Memory stays authoritative when redis stops answering.
	s.Put(ctx, Artifact{Name: "song.mp3", VideoID: "a"})
	if _, ok := s.Get(ctx, "song.mp3"); !ok {
		t.Error("Put lost the in-memory entry")
	}
	if _, ok := s.Get(ctx, "other.mp3"); ok {
		t.Error("Get reported a hit with redis down")
	}
}

func TestSweep_DropsRedisEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rdb, mr := newRedisClient(t)
	s := NewArtifactStore(rdb, time.Hour, testLogger())
	s.Put(ctx, Artifact{Name: "old.mp3", VideoID: "v"})

	if _, err := Sweep(ctx, dir, s, testLogger()); err != nil {
		t.Fatal(err)
	}
	if mr.Exists(RedisKeyPrefix + "old.mp3") {
		t.Error("sweep left the redis entry")
	}
}

func TestInitRedis_Connects(t *testing.T) {
	_, mr := newRedisClient(t)
	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()

	rdb := initRedis(context.Background(), cfg, testLogger())
	if rdb == nil {
		t.Fatal("initRedis returned nil for a live server")
	}
	_ = rdb.Close()
}
