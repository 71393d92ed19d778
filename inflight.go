package main

import (
	"context"
	"sync"
)

// inflightCall is one running produce operation; done is closed once
// artifact/err are final.
type inflightCall struct {
	done     chan struct{}
	artifact Artifact
	err      error
}

// Waiters on a cache key share a single operation.
type inflightRegistry struct {
	mu sync.Mutex
	m  map[string]*inflightCall
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{m: make(map[string]*inflightCall)}
}

// register returns the running call for key, or starts a new one. leader is
// true for the caller that must do the work and call notifyCompletion.
func (r *inflightRegistry) register(key string) (call *inflightCall, leader bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.m[key]; ok {
		return c, false
	}
	c := &inflightCall{done: make(chan struct{})}
	r.m[key] = c
	return c, true
}

// notifyCompletion publishes the result and wakes every waiter.
func (r *inflightRegistry) notifyCompletion(key string, a Artifact, err error) {
	r.mu.Lock()
	c, ok := r.m[key]
	delete(r.m, key)
	r.mu.Unlock()
	if !ok {
		return
	}
	c.artifact = a
	c.err = err
	close(c.done)
}

// wait blocks until the call finishes or ctx ends. Leaving early does not
// cancel the shared operation.
func (c *inflightCall) wait(ctx context.Context) (Artifact, error) {
	select {
	case <-c.done:
		return c.artifact, c.err
	case <-ctx.Done():
		return Artifact{}, ctx.Err()
	}
}

func (r *inflightRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
