// Package ignite provides a high-performance key/value data store
// designed for fast read and write operations, inspired by Bitcask.
// It combines an in-memory key directory with an append-only log
// structure on disk to achieve high throughput. It is designed for
// applications requiring fast read and write operations, such as
// caching, session management, and real-time data processing, aiming to
// provide a simple, efficient, and reliable solution for persistent
// key-value storage in Go applications.
package ignite

import (
	"context"

	"github.com/ignite-kv/ignite/internal/engine"
	"github.com/ignite-kv/ignite/internal/stats"
	"github.com/ignite-kv/ignite/pkg/logger"
	"github.com/ignite-kv/ignite/pkg/options"
)

// Instance represents an open ignite store.
//
// Instance is the primary entry point for interacting with the Ignite
// store, providing methods for putting, getting, deleting, and listing
// key-value pairs, plus byte-counter observability via Stats.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// NewInstance opens (creating if necessary) an ignite store at the
// configured data directory, applying any functional options over
// ignite's defaults. service names the store in its structured logs.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{
		Logger:  log,
		Options: &defaultOpts,
		Stats:   stats.New(),
	})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Put stores a key-value pair in the database, appended to the
// write-ahead log before returning. The log is fsynced at each flush and
// on Close, not on every Put. If the key already exists, its value is
// updated.
func (i *Instance) Put(key string, value []byte) error {
	return i.engine.Put([]byte(key), value)
}

// Get retrieves the value associated with the given key. ok is false if
// the key has no live entry.
func (i *Instance) Get(key string) (value []byte, ok bool, err error) {
	return i.engine.Get([]byte(key))
}

// Contains reports whether key has a live (non-tombstone) entry.
func (i *Instance) Contains(key string) bool {
	return i.engine.Contains([]byte(key))
}

// Delete removes a key-value pair from the database. A no-op if the key
// is already absent; otherwise the deletion is written as a tombstone
// and the underlying space is reclaimed during a later compaction.
func (i *Instance) Delete(key string) error {
	return i.engine.Delete([]byte(key))
}

// ListKeys returns every live key the store currently holds.
func (i *Instance) ListKeys() ([]string, error) {
	keys, err := i.engine.ListKeys()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for idx, k := range keys {
		out[idx] = string(k)
	}
	return out, nil
}

// Stats reports a point-in-time snapshot of the store's byte counters
// and derived space/write amplification. Purely observational.
func (i *Instance) Stats() (stats.Stats, error) {
	return i.engine.Stats()
}

// Close gracefully shuts down the Ignite DB instance: it stops the
// compaction worker, fsyncs the write-ahead log (unflushed writes stay
// there and are replayed into the memtable on the next open), and
// releases all associated resources.
func (i *Instance) Close() error {
	return i.engine.Close()
}
