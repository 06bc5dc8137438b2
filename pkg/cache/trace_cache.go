package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// TraceCache is a bounded in-memory store of values keyed by base id.
// Eviction is based on LRU and LFU policies, and values expire after the configured TTL.
type TraceCache[ValueType any] interface {
	// GetOrCreate returns the value stored under key, storing the result of create when there is none.
	GetOrCreate(key string, create func() ValueType) (ValueType, error)
	Get(key string) (ValueType, error)
	// Touch restarts the TTL of a present key.
	Touch(key string) error
	Delete(key string)
	// Keys lists the keys that are still present, in insertion order.
	Keys() []string
	Close()
}

type cacheEntry[ValueType any] struct {
	key   string
	value ValueType
	seq   uint64
}

type TraceCacheImpl[ValueType any] struct {
	cache    *ristretto.Cache
	ttl      time.Duration
	logger   *zap.Logger
	createMu sync.Mutex
	indexMu  sync.Mutex
	index    map[string]*cacheEntry[ValueType]
	nextSeq  uint64
}

func NewTraceCacheImpl[ValueType any](
	maxEntries int64,
	ttl time.Duration,
	logger *zap.Logger,
) (*TraceCacheImpl[ValueType], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive, got %d", maxEntries)
	}
	tc := &TraceCacheImpl[ValueType]{
		ttl:    ttl,
		logger: logger,
		index:  make(map[string]*cacheEntry[ValueType]),
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnExit:             tc.onExit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create trace cache: %w", err)
	}
	tc.cache = cache
	return tc, nil
}

func (tc *TraceCacheImpl[ValueType]) Get(key string) (ValueType, error) {
	var zero ValueType
	value, found := tc.cache.Get(key)
	if !found {
		return zero, ErrKeyNotFound
	}
	entry, ok := value.(*cacheEntry[ValueType])
	if !ok {
		return zero, fmt.Errorf("value not of expected type %T returned from cache when getting", value)
	}
	return entry.value, nil
}

func (tc *TraceCacheImpl[ValueType]) GetOrCreate(key string, create func() ValueType) (ValueType, error) {
	if value, err := tc.Get(key); err == nil {
		return value, nil
	}

	tc.createMu.Lock()
	defer tc.createMu.Unlock()
	if value, err := tc.Get(key); err == nil {
		return value, nil
	}

	tc.indexMu.Lock()
	tc.nextSeq++
	entry := &cacheEntry[ValueType]{key: key, value: create(), seq: tc.nextSeq}
	tc.index[key] = entry
	tc.indexMu.Unlock()

	var zero ValueType
	if !tc.cache.SetWithTTL(key, entry, 1, tc.ttl) {
		tc.forget(entry)
		return zero, ErrSetFailed
	}
	tc.cache.Wait()
	if _, found := tc.cache.Get(key); !found {
		tc.logger.Warn("Trace cache rejected a new trace", zap.String("key", key))
		tc.forget(entry)
		return zero, ErrSetFailed
	}
	return entry.value, nil
}

func (tc *TraceCacheImpl[ValueType]) Touch(key string) error {
	tc.createMu.Lock()
	defer tc.createMu.Unlock()
	if _, found := tc.cache.Get(key); !found {
		return ErrKeyNotFound
	}

	// ristretto reports the replaced value through OnExit, so the index has to point
	// at the new entry before the update is made.
	tc.indexMu.Lock()
	current, ok := tc.index[key]
	if !ok {
		tc.indexMu.Unlock()
		return ErrKeyNotFound
	}
	refreshed := &cacheEntry[ValueType]{key: key, value: current.value, seq: current.seq}
	tc.index[key] = refreshed
	tc.indexMu.Unlock()

	if !tc.cache.SetWithTTL(key, refreshed, 1, tc.ttl) {
		tc.forget(refreshed)
		return ErrSetFailed
	}
	return nil
}

func (tc *TraceCacheImpl[ValueType]) Delete(key string) {
	tc.indexMu.Lock()
	delete(tc.index, key)
	tc.indexMu.Unlock()
	tc.cache.Del(key)
	tc.cache.Wait()
}

func (tc *TraceCacheImpl[ValueType]) Keys() []string {
	tc.indexMu.Lock()
	entries := make([]*cacheEntry[ValueType], 0, len(tc.index))
	for _, entry := range tc.index {
		entries = append(entries, entry)
	}
	tc.indexMu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, found := tc.cache.Get(entry.key); found {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

func (tc *TraceCacheImpl[ValueType]) Close() {
	tc.cache.Close()
}

func (tc *TraceCacheImpl[ValueType]) onExit(value interface{}) {
	entry, ok := value.(*cacheEntry[ValueType])
	if !ok {
		return
	}
	tc.forget(entry)
}

func (tc *TraceCacheImpl[ValueType]) forget(entry *cacheEntry[ValueType]) {
	tc.indexMu.Lock()
	defer tc.indexMu.Unlock()
	if tc.index[entry.key] == entry {
		delete(tc.index, entry.key)
	}
}

var (
	ErrKeyNotFound = errors.New("key not found within the cache")
	ErrSetFailed   = errors.New("failed to set value in cache")
)
