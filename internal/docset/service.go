// Package docset builds a corpus from the fragment archives in a directory and
// serves it to MCP tools.
package docset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sha1n/relic-corpus/internal/archive"
	"github.com/sha1n/relic-corpus/internal/codec"
	"github.com/sha1n/relic-corpus/internal/config"
	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/storage/badger"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

const (
	// LockFilename is the name of the build lock file
	LockFilename = "build.lock"

	// SpillDirname is the BadgerDB directory used when fragments spill to disk
	SpillDirname = "fragments.badger"

	// MaxParallelReads is the maximum number of archives read concurrently
	MaxParallelReads = 4
)

// ErrNotReady is returned when the corpus has not been built yet.
var ErrNotReady = errors.New("corpus not ready")

// Service builds the corpus and its search index and hands them to the tools.
type Service struct {
	settings *config.CorpusSettings
	filter   *FileFilter
	indexer  *Indexer
	manifest *Manifest
	lock     *FileLock

	mu     sync.RWMutex
	corpus *corpus.Corpus
	index  bleve.Index
	ready  bool
}

// NewService creates a new docset service.
func NewService(settings *config.CorpusSettings) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if err := os.MkdirAll(settings.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	manifest, err := LoadManifest(filepath.Join(settings.BaseDir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	return &Service{
		settings: settings,
		filter:   NewFileFilter(),
		indexer:  NewIndexer(settings.BaseDir, settings.PersistIndex),
		manifest: manifest,
		lock:     NewFileLock(filepath.Join(settings.BaseDir, LockFilename)),
	}, nil
}

// Initialize builds the corpus and its index under the build lock, records the
// outcome in the manifest and marks the service ready.
func (s *Service) Initialize(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		c, err := s.Build(ctx)
		if err != nil {
			return err
		}

		index, err := s.indexer.Create()
		if err != nil {
			return err
		}
		n, err := IndexCorpus(index, c)
		if err != nil {
			_ = index.Close()
			return fmt.Errorf("failed to index corpus: %w", err)
		}
		slog.Info("Corpus indexed", "documents", n)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.corpus = c
		s.index = index
		s.ready = true
		return nil
	})
}

// BuildLocked runs Build under the build lock without indexing. The service
// does not become ready.
func (s *Service) BuildLocked(ctx context.Context) (c *corpus.Corpus, err error) {
	err = s.withLock(ctx, func() error {
		c, err = s.Build(ctx)
		return err
	})
	return c, err
}

func (s *Service) withLock(ctx context.Context, fn func() error) error {
	waited, err := s.lock.Acquire(ctx, s.settings.LockTimeout)
	if err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if waited {
		slog.Info("Acquired build lock after another instance released it")
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			slog.Error("Failed to release build lock", "error", err)
		}
	}()
	return fn()
}

// Build ingests every archive under the input directory and builds the corpus.
// Fragments that fail to decode are skipped and counted per archive so a single
// stale archive does not fail the build; an unreadable archive fails it.
// The manifest is saved whatever the outcome.
func (s *Service) Build(ctx context.Context) (c *corpus.Corpus, err error) {
	start := time.Now()
	buildID := s.manifest.BeginBuild()
	slog.Info("Starting corpus build", "build_id", buildID, "input_dir", s.settings.InputDir)

	defer func() {
		summary := BuildSummary{Duration: time.Since(start), Err: err}
		if c != nil {
			stats := c.Stats()
			summary.Symbols = stats.Symbols
			summary.Fragments = stats.Fragments
			summary.ByKind = make(map[string]int, len(stats.ByKind))
			for kind, n := range stats.ByKind {
				summary.ByKind[kind.String()] = n
			}
		}
		s.manifest.FinishBuild(summary)
		if saveErr := s.saveManifest(); saveErr != nil {
			slog.Error("Failed to save manifest", "error", saveErr)
		}
	}()

	paths, err := s.filter.Discover(s.settings.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}
	if len(paths) == 0 {
		slog.Warn("No fragment archives found", "input_dir", s.settings.InputDir)
	}

	store, err := s.fragmentStore()
	if err != nil {
		return nil, err
	}
	builder := corpus.NewBuilder(
		corpus.WithWorkers(s.settings.Workers),
		corpus.WithStore(store),
	)
	defer func() {
		if err := builder.Close(); err != nil {
			slog.Error("Failed to close fragment store", "error", err)
		}
	}()

	if err := s.ingestAll(ctx, builder, paths); err != nil {
		return nil, err
	}
	return builder.Build(ctx)
}

// ingestAll reads archives in parallel. Every archive is attempted; the error
// reports how many failed.
func (s *Service) ingestAll(ctx context.Context, builder *corpus.Builder, paths []string) error {
	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelReads)

	for _, path := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			state, err := s.ingestArchive(builder, path)
			if err != nil {
				slog.Error("Failed to ingest archive", "path", path, "error", err)
				state.Error = err.Error()
				failed.Add(1)
			} else if state.Rejected > 0 {
				slog.Warn("Skipped undecodable fragments", "path", path, "rejected", state.Rejected)
			}
			s.manifest.SetArchiveState(path, state)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d archive(s) failed to ingest", n)
	}
	return nil
}

func (s *Service) ingestArchive(builder *corpus.Builder, path string) (ArchiveState, error) {
	var state ArchiveState
	if fi, err := os.Stat(path); err == nil {
		state.Size = fi.Size()
		state.ModTime = fi.ModTime()
	}

	_, err := archive.ReadFile(path, func(id symbols.SymbolID, blob []byte) error {
		// Full decode; the reduce job decodes accepted blobs again.
		if _, err := codec.Decode(blob); err != nil {
			state.Rejected++
			return nil
		}
		if err := builder.Ingest(id, blob); err != nil {
			return err
		}
		state.Fragments++
		return nil
	})
	return state, err
}

func (s *Service) fragmentStore() (corpus.FragmentStore, error) {
	if !s.settings.SpillToDisk {
		return corpus.NewMemoryStore(), nil
	}
	cfg := badger.DefaultConfig()
	cfg.Path = filepath.Join(s.settings.BaseDir, SpillDirname)
	store, err := badger.OpenFragmentStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open spill store: %w", err)
	}
	return store, nil
}

func (s *Service) saveManifest() error {
	return s.manifest.Save(filepath.Join(s.settings.BaseDir, ManifestFilename))
}

// IsReady returns true once the corpus and index are available.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Corpus returns the built corpus.
func (s *Service) Corpus() (*corpus.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, ErrNotReady
	}
	return s.corpus, nil
}

// Index returns the search index.
func (s *Service) Index() (bleve.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready || s.index == nil {
		return nil, ErrNotReady
	}
	return s.index, nil
}

// Manifest returns the build manifest.
func (s *Service) Manifest() *Manifest {
	return s.manifest
}

// Settings returns the service settings.
func (s *Service) Settings() *config.CorpusSettings {
	return s.settings
}

// Close releases the index.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false
	s.corpus = nil
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return fmt.Errorf("failed to close index: %w", err)
		}
		s.index = nil
	}
	return nil
}
