package badger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

var _ corpus.FragmentStore = (*FragmentStore)(nil)

const (
	seqSize = 8
	keySize = symbols.SymbolIDSize + seqSize
)

// FragmentStore spills ingested fragments to BadgerDB. Keys are the SymbolID followed
// by a big-endian ingest sequence, so a key-ordered scan yields each group's blobs
// contiguously and in ingest order.
type FragmentStore struct {
	db   *dgbadger.DB
	seq  atomic.Uint64
	owns bool
}

// NewFragmentStore wraps an open database. The store does not close db.
func NewFragmentStore(db *dgbadger.DB) *FragmentStore {
	return &FragmentStore{db: db}
}

// OpenFragmentStore opens a database for cfg and discards anything a previous run
// left in it. Close closes the database.
func OpenFragmentStore(cfg Config) (*FragmentStore, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.DropAll(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reset fragment store: %w", err)
	}
	return &FragmentStore{db: db, owns: true}, nil
}

func fragmentKey(id symbols.SymbolID, seq uint64) []byte {
	key := make([]byte, keySize)
	copy(key, id[:])
	binary.BigEndian.PutUint64(key[symbols.SymbolIDSize:], seq)
	return key
}

// Put stores a copy of blob under id.
func (s *FragmentStore) Put(id symbols.SymbolID, blob []byte) error {
	key := fragmentKey(id, s.seq.Add(1))
	return s.db.Update(func(txn *dgbadger.Txn) error {
		return txn.Set(key, bytes.Clone(blob))
	})
}

// ForEachGroup scans the store in key order and calls fn once per SymbolID.
func (s *FragmentStore) ForEachGroup(fn func(id symbols.SymbolID, blobs [][]byte) error) error {
	return s.db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		var (
			current symbols.SymbolID
			blobs   [][]byte
		)
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != keySize {
				return fmt.Errorf("malformed fragment key of %d bytes", len(key))
			}
			var id symbols.SymbolID
			copy(id[:], key)

			if len(blobs) > 0 && id != current {
				if err := fn(current, blobs); err != nil {
					return err
				}
				blobs = nil
			}
			blob, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read fragment of %s: %w", id, err)
			}
			current = id
			blobs = append(blobs, blob)
		}
		if len(blobs) > 0 {
			return fn(current, blobs)
		}
		return nil
	})
}

// Close closes the database when the store opened it.
func (s *FragmentStore) Close() error {
	if !s.owns {
		return nil
	}
	return s.db.Close()
}
