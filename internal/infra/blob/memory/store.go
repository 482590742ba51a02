// Package memory provides an in-memory snapshot blob store for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"seedcore/internal/blob/core"
)

var _ core.Store = (*Store)(nil)

type entry struct {
	info core.Info
	data []byte
}

// Store keeps blobs in a map guarded by a mutex.
type Store struct {
	mu    sync.Mutex
	blobs map[string]entry
}

// NewStore returns an empty in-memory blob store.
func NewStore() *Store {
	return &Store{blobs: make(map[string]entry)}
}

// Driver implements core.Store.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put implements core.Store, overwriting any existing key.
func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) (core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := core.Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
	}
	s.blobs[key] = entry{info: info, data: append([]byte(nil), data...)}
	return info, nil
}

// Get implements core.Store.
func (s *Store) Get(_ context.Context, key string) (core.Info, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.blobs[key]
	if !ok {
		return core.Info{}, nil, core.ErrNotFound
	}
	return e.info, append([]byte(nil), e.data...), nil
}

// List implements core.Store.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Info
	for key, e := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, e.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete implements core.Store.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return false, nil
	}
	delete(s.blobs, key)
	return true, nil
}
