// Package web serves a loaded metadata tree to local tooling over HTTP:
// a read-only JSON API, a websocket reload channel, and a response cache
// in front of tree rendering.
package web

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/weftwork/weft/loader"
)

// Builder produces a freshly loaded tree. The dev server calls it once at
// startup and again after every document change batch.
type Builder func() (*loader.Loader, error)

// Store holds the tree currently served. Swaps are atomic; readers always
// see either the previous complete tree or the next one.
type Store struct {
	build   Builder
	mu      sync.Mutex
	cur     atomic.Pointer[loader.Loader]
	version atomic.Int64
}

func NewStore(build Builder) (*Store, error) {
	if build == nil {
		return nil, fmt.Errorf("web: tree builder is required")
	}
	return &Store{build: build}, nil
}

// Reload builds a fresh tree and swaps it in. On failure the previous
// tree stays current and keeps serving. Replaced loaders are left to the
// collector; in-flight requests may still hold their nodes.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ld, err := s.build()
	if err != nil {
		return err
	}
	s.cur.Store(ld)
	s.version.Add(1)
	return nil
}

// Current returns the tree serving requests right now.
func (s *Store) Current() (*loader.Loader, error) {
	ld := s.cur.Load()
	if ld == nil {
		return nil, fmt.Errorf("web: no tree loaded yet")
	}
	return ld, nil
}

// Version counts successful reloads. Cache keys embed it so a swap
// invalidates every rendered response at once.
func (s *Store) Version() int64 { return s.version.Load() }
