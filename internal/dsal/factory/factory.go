// Package factory implements the Accessor Factory singleton (spec §3/§4.8):
// maps a Connection to a ResourceAccessor and caches the result per
// connection id.
package factory

import (
	"fmt"
	"sync"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/connection"
)

// entry holds a cached accessor plus an in-flight creation guard so
// concurrent first-accessors for the same connection id coalesce into one
// construction (spec §5: "double-creation... should prevent it with a lock
// or CAS").
type entry struct {
	mu       sync.Mutex
	accessor accessor.ResourceAccessor
	err      error
	built    bool
}

// Factory holds two caches (bb, mcp) keyed by connection id, matching
// spec §4.8's "two caches (bb, mcp)".
type Factory struct {
	mu  sync.Mutex
	bb  map[string]*entry
	mcp map[string]*entry
}

// New constructs an empty Factory. Use Instance() for the process-wide
// singleton (spec §9: "explicit injection... and a test-only constructor
// to bypass the singleton").
func New() *Factory {
	return &Factory{
		bb:  make(map[string]*entry),
		mcp: make(map[string]*entry),
	}
}

func (f *Factory) cacheFor(conn *connection.Connection) map[string]*entry {
	if conn.AccessMethod() == "mcp" {
		return f.mcp
	}
	return f.bb
}

// GetAccessor returns a cached accessor for conn or asks its Provider to
// create one, then caches it (spec §4.8). Fails fast if the Provider's
// access method does not match conn's.
func (f *Factory) GetAccessor(conn *connection.Connection) (accessor.ResourceAccessor, error) {
	p := conn.Provider()
	if p.AccessMethod != conn.AccessMethod() {
		return nil, fmt.Errorf("factory: provider access method %s does not match connection access method %s", p.AccessMethod, conn.AccessMethod())
	}

	cache := f.cacheFor(conn)

	f.mu.Lock()
	e, ok := cache[conn.ID()]
	if !ok {
		e = &entry{}
		cache[conn.ID()] = e
	}
	f.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.built {
		return e.accessor, e.err
	}

	a, err := p.CreateAccessor(conn)
	if err != nil {
		return nil, err
	}
	e.accessor = a
	e.built = true

	return a, nil
}

// ClearCache evicts every cached accessor across both bb and mcp caches.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bb = make(map[string]*entry)
	f.mcp = make(map[string]*entry)
}

// ClearConnectionCache evicts the cached accessor for a single connection
// id from both caches.
func (f *Factory) ClearConnectionCache(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bb, id)
	delete(f.mcp, id)
}

// ─── Process-wide singleton ───

var (
	instanceMu sync.Mutex
	instance   *Factory
)

// Instance returns the process-wide Factory singleton, constructing it on
// first call.
func Instance() *Factory {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New()
	}
	return instance
}

// ResetInstanceForTest replaces the process-wide singleton, for test
// isolation (spec §9 "test-only constructor to bypass the singleton").
func ResetInstanceForTest() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = New()
}
