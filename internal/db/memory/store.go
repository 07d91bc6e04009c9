// Package memory implements db.Store in process memory: hash documents, a
// TTL-aware key-value map, and brute-force cosine KNN over registered vector
// indexes. It backs local runs and tests where no Redis server is available;
// the driver is selected via database.driver in the configuration.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/henribesnard/ohadai-sub001/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// Store is an in-process db.Store.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	kv      map[string]kvEntry
	indexes map[string]*db.IndexDefinition
}

// NewStore creates an empty in-process store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		kv:      make(map[string]kvEntry),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// --- HashStore ---

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HSetMulti stores multiple hashes.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, item := range items {
		if err := s.HSet(ctx, item.Key, item.Fields); err != nil {
			return err
		}
	}
	return nil
}

// HGetAll returns a copy of all fields of a hash.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// Del deletes a key from both hash and KV spaces.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.kv, key)
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	entry, ok := s.kv[key]
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return false, nil
	}
	return true, nil
}

// --- KVStore ---

// Get retrieves a value by key. Expired entries are misses and evicted.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.kv, key)
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: cloneBytes(value)}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: cloneBytes(value), expiresAt: time.Now().Add(ttl)}
	return nil
}

// --- IndexManager ---

// CreateIndex registers a vector index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.indexes[def.Name] = def
	return nil
}

// DropIndex removes an index definition.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether an index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

func (s *Store) indexPrefixes(name string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.indexes[name]
	if !ok {
		return nil, false
	}
	return def.Prefixes, true
}

func (s *Store) hashesUnderPrefixes(prefixes []string) []db.HashSetItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []db.HashSetItem
	for key, fields := range s.hashes {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				items = append(items, db.HashSetItem{Key: key, Fields: fields})
				break
			}
		}
	}
	return items
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
