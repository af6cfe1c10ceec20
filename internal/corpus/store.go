package corpus

import (
	"bytes"
	"sync"

	"github.com/sha1n/relic-corpus/internal/symbols"
)

// FragmentStore buffers ingested blobs until Build groups them by SymbolID.
// Put must be safe for concurrent use.
type FragmentStore interface {
	// Put records one encoded fragment for id. The store keeps its own copy of blob.
	Put(id symbols.SymbolID, blob []byte) error

	// ForEachGroup calls fn once per distinct id with every blob stored for it.
	// Blobs stay valid after fn returns. Iteration stops at the first error.
	ForEachGroup(fn func(id symbols.SymbolID, blobs [][]byte) error) error

	Close() error
}

// MemoryStore is the default FragmentStore. Groups are visited in first-seen order.
type MemoryStore struct {
	mu     sync.Mutex
	groups map[symbols.SymbolID][][]byte
	order  []symbols.SymbolID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{groups: make(map[symbols.SymbolID][][]byte)}
}

func (s *MemoryStore) Put(id symbols.SymbolID, blob []byte) error {
	blob = bytes.Clone(blob)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		s.order = append(s.order, id)
	}
	s.groups[id] = append(s.groups[id], blob)
	return nil
}

func (s *MemoryStore) ForEachGroup(fn func(id symbols.SymbolID, blobs [][]byte) error) error {
	s.mu.Lock()
	order := s.order
	groups := s.groups
	s.mu.Unlock()

	for _, id := range order {
		if err := fn(id, groups[id]); err != nil {
			return err
		}
	}
	return nil
}

// Close drops every buffered blob.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = make(map[symbols.SymbolID][][]byte)
	s.order = nil
	return nil
}
