package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

type memCollection struct {
	records []json.RawMessage
	version int64
}

// MemoryStore keeps collections in process memory. It is used by tests and
// by STORE_BACKEND=memory for throwaway runs.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) ReadAll(ctx context.Context, collection string) (Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, unavailable("read "+collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return Snapshot{}, nil
	}
	return Snapshot{Records: cloneRecords(c.records), Version: memVersion(c.version)}, nil
}

func (s *MemoryStore) WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected Version) (Version, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", unavailable("write "+collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	var current Version
	if ok {
		current = memVersion(c.version)
	}
	if current != expected {
		return "", ErrConflict
	}
	if !ok {
		c = &memCollection{}
		s.collections[collection] = c
	}
	c.records = cloneRecords(records)
	c.version++
	return memVersion(c.version), nil
}

func (s *MemoryStore) Close() error { return nil }

func memVersion(v int64) Version {
	return Version(strconv.FormatInt(v, 10))
}

func cloneRecords(in []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(in))
	for i, r := range in {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}
