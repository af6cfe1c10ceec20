// Package corpus merges encoded symbol fragments into a canonical, read-only
// symbol graph.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sha1n/relic-corpus/internal/codec"
	"github.com/sha1n/relic-corpus/internal/merge"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// Builder collects fragments from concurrent producers and builds a Corpus once.
type Builder struct {
	store   FragmentStore
	workers int
	logger  *slog.Logger

	mu        sync.RWMutex // Ingest holds it shared, Build exclusively
	started   bool
	fragments atomic.Int64
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers sets the reduce pool size. Values <= 0 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithStore replaces the default in-memory fragment store.
func WithStore(s FragmentStore) Option {
	return func(b *Builder) {
		if s != nil {
			b.store = s
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		store:   NewMemoryStore(),
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ingest records one encoded fragment for id. It is safe for concurrent use and
// fails with ErrBuildStarted once Build has been called.
func (b *Builder) Ingest(id symbols.SymbolID, blob []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.started {
		return ErrBuildStarted
	}
	if err := b.store.Put(id, blob); err != nil {
		return fmt.Errorf("ingest %s: %w", id, err)
	}
	b.fragments.Add(1)
	fragmentsIngested.Inc()
	return nil
}

// Build decodes and reduces every group in parallel, then canonicalizes the result.
// A failing group never stops its siblings; if any failed, Build returns a
// *BuildError after all groups were attempted. Build runs once per Builder.
//
// Build does not observe ctx cancellation; ctx only scopes logging.
func (b *Builder) Build(ctx context.Context) (*Corpus, error) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil, ErrBuildStarted
	}
	b.started = true
	b.mu.Unlock()

	start := time.Now()
	defer func() { buildDuration.Observe(time.Since(start).Seconds()) }()

	tbl := newTable()
	var failures atomic.Int64
	var failed failureLog
	var groups int

	g := new(errgroup.Group)
	g.SetLimit(b.workers)

	err := b.store.ForEachGroup(func(id symbols.SymbolID, blobs [][]byte) error {
		groups++
		g.Go(func() error {
			info, err := reduceGroup(id, blobs)
			if err != nil {
				failures.Add(1)
				failed.add(err)
				b.logger.WarnContext(ctx, "Failed to build symbol", "symbol_id", id.String(), "error", err)
				return nil
			}
			tbl.insert(info)
			return nil
		})
		return nil
	})
	_ = g.Wait() // jobs record failures instead of returning them
	if err != nil {
		return nil, fmt.Errorf("failed to group fragments: %w", err)
	}

	if n := failures.Load(); n > 0 {
		b.logger.ErrorContext(ctx, "Corpus build failed", "groups", groups, "failures", n)
		return nil, &BuildError{Failures: int(n), Errs: failed.errs}
	}

	c := newCorpus(tbl.seal(), b.logger)
	c.stats.Fragments = int(b.fragments.Load())
	c.canonicalize()
	symbolsBuilt.Set(float64(c.Len()))

	b.logger.InfoContext(ctx, "Corpus built",
		"symbols", c.Len(),
		"fragments", c.stats.Fragments,
		"duration", time.Since(start).Round(time.Millisecond))
	return c, nil
}

// Close releases the fragment store.
func (b *Builder) Close() error {
	return b.store.Close()
}

// reduceGroup decodes every fragment of one symbol and folds them together.
func reduceGroup(id symbols.SymbolID, blobs [][]byte) (symbols.Info, error) {
	infos := make([]symbols.Info, 0, len(blobs))
	for i, blob := range blobs {
		info, err := codec.Decode(blob)
		if err != nil {
			buildFailures.WithLabelValues(stageDecode).Inc()
			return nil, fmt.Errorf("symbol %s fragment %d: %w", id, i, err)
		}
		if got := info.Base().ID; got != id {
			buildFailures.WithLabelValues(stageDecode).Inc()
			return nil, fmt.Errorf("symbol %s fragment %d: %w", id, i,
				&merge.InvariantError{ID: id, Reason: fmt.Sprintf("fragment carries id %s", got)})
		}
		infos = append(infos, info)
	}

	merged, err := merge.Reduce(infos)
	if err != nil {
		buildFailures.WithLabelValues(stageMerge).Inc()
		return nil, fmt.Errorf("symbol %s: %w", id, err)
	}
	return merged, nil
}

// table is the keyed store written by reduce jobs.
type table struct {
	mu     sync.Mutex
	sealed bool
	infos  map[symbols.SymbolID]symbols.Info
}

func newTable() *table {
	return &table{infos: make(map[symbols.SymbolID]symbols.Info)}
}

func (t *table) insert(info symbols.Info) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		panic("corpus: insert after canonicalization started")
	}
	t.infos[info.Base().ID] = info
}

// seal forbids further inserts and hands the map over.
func (t *table) seal() map[symbols.SymbolID]symbols.Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	return t.infos
}
