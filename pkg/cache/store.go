// Package cache provides content-addressed statement ids and the bounded
// artifact stores keyed by them.
//
// A Store is an LRU split into shards, each with its own mutex, so that
// lookups for unrelated statements do not contend. Values are computed
// outside the shard lock; concurrent requests for the same missing id share
// a single computation.
//
// Capacity is split evenly across shards and recency is tracked per shard,
// so eviction is only approximately least-recently-used: a shard that
// receives more than its share of ids evicts before the store as a whole is
// full. The store never holds more than the configured capacity rounded up
// to a multiple of the shard count. Use WithShards(1) for exact LRU order.
package cache

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"
)

// Default sizing.
const (
	DefaultCapacity = 1000
	DefaultShards   = 16
)

// ErrNilCompute is returned by GetOrCompute when no compute function is
// given.
var ErrNilCompute = errors.New("cache: nil compute function")

// Stats are cumulative counters for a Store. Evictions counts every entry
// dropped by capacity pressure or by Remove, including derived ids.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Option configures a Store.
type Option func(*options)

type options struct {
	capacity int
	shards   int
	logger   *slog.Logger
}

// WithCapacity sets the total number of entries the store keeps. Each shard
// holds an equal part of it.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithShards sets the number of shards. Each shard evicts on its own once it
// holds capacity/n entries, which may happen before the store is full. With
// one shard, eviction order is exact least-recently-used across the whole
// store.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithLogger sets the logger used for eviction tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Store is a concurrency-safe LRU of artifacts of type T.
type Store[T any] struct {
	shards []*shard
	group  singleflight.Group
	logger *slog.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard struct {
	mu       sync.Mutex
	perShard int
	entries  *lru.Cache
	// children maps a root id to the ids derived from it.
	children map[StatementID]map[StatementID]struct{}
}

// NewStore creates an empty store.
func NewStore[T any](opts ...Option) *Store[T] {
	o := options{
		capacity: DefaultCapacity,
		shards:   DefaultShards,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shards > o.capacity {
		o.shards = o.capacity
	}

	s := &Store[T]{
		shards: make([]*shard, o.shards),
		logger: o.logger,
	}
	perShard := (o.capacity + o.shards - 1) / o.shards
	for i := range s.shards {
		sh := &shard{perShard: perShard}
		sh.reset(s.onEvicted(sh))
		s.shards[i] = sh
	}
	return s
}

func (sh *shard) reset(onEvicted func(lru.Key, any)) {
	sh.entries = lru.New(sh.perShard)
	sh.entries.OnEvicted = onEvicted
	sh.children = make(map[StatementID]map[StatementID]struct{})
}

// onEvicted runs with the shard lock held, from inside the lru. Removing a
// root removes every id derived from it.
func (s *Store[T]) onEvicted(sh *shard) func(lru.Key, any) {
	return func(key lru.Key, _ any) {
		id := key.(StatementID)
		s.evictions.Add(1)
		s.logger.Debug("cache entry evicted", "id", id.String())

		if !id.IsRoot() {
			if kids := sh.children[id.Root()]; kids != nil {
				delete(kids, id)
				if len(kids) == 0 {
					delete(sh.children, id.Root())
				}
			}
			return
		}
		kids := sh.children[id]
		delete(sh.children, id)
		for kid := range kids {
			sh.entries.Remove(kid)
		}
	}
}

func (s *Store[T]) shardFor(id StatementID) *shard {
	return s.shards[id.shardKey()%uint64(len(s.shards))]
}

// Get returns the cached value for id and marks it recently used.
func (s *Store[T]) Get(id StatementID) (T, bool) {
	v, ok := s.lookup(id)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

func (s *Store[T]) lookup(id StatementID) (T, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, ok := sh.entries.Get(id)
	if !ok {
		var zero T
		return zero, false
	}
	out, _ := v.(T)
	return out, true
}

// Add inserts or replaces the value for id.
func (s *Store[T]) Add(id StatementID, value T) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if !id.IsRoot() {
		root := id.Root()
		kids := sh.children[root]
		if kids == nil {
			kids = make(map[StatementID]struct{})
			sh.children[root] = kids
		}
		kids[id] = struct{}{}
	}
	sh.entries.Add(id, value)
}

// Remove drops id and, for a root id, everything derived from it.
func (s *Store[T]) Remove(id StatementID) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.entries.Remove(id)
	if id.IsRoot() {
		// Children may be cached while their root is not.
		kids := sh.children[id]
		delete(sh.children, id)
		for kid := range kids {
			sh.entries.Remove(kid)
		}
	}
}

// GetOrCompute returns the cached value for id, computing and inserting it
// on a miss. The compute function runs without any shard lock held, and
// concurrent callers asking for the same id share one call. A failed
// computation is not cached.
func (s *Store[T]) GetOrCompute(id StatementID, compute func() (T, error)) (T, error) {
	var zero T
	if compute == nil {
		return zero, ErrNilCompute
	}
	if v, ok := s.Get(id); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(id.String(), func() (any, error) {
		// Another caller may have finished between our miss and this call.
		if v, ok := s.lookup(id); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		s.Add(id, v)
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Len returns the number of cached entries.
func (s *Store[T]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += sh.entries.Len()
		sh.mu.Unlock()
	}
	return n
}

// Clear drops every entry. It does not count as eviction.
func (s *Store[T]) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.reset(s.onEvicted(sh))
		sh.mu.Unlock()
	}
}

// Stats returns a snapshot of the store's counters.
func (s *Store[T]) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}
