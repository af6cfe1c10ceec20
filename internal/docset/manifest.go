package docset

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest records the outcome of the last corpus build in a base directory.
type Manifest struct {
	Version   int                     `json:"version"`
	BuildID   string                  `json:"build_id,omitempty"`
	LastBuild time.Time               `json:"last_build"`
	Duration  time.Duration           `json:"duration_ns,omitempty"`
	Symbols   int                     `json:"symbols"`
	Fragments int                     `json:"fragments"`
	ByKind    map[string]int          `json:"by_kind,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Archives  map[string]ArchiveState `json:"archives"`
	mu        sync.RWMutex            `json:"-"`
}

// ArchiveState records what one archive contributed to the last build.
type ArchiveState struct {
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
	Fragments int       `json:"fragments"`
	Rejected  int       `json:"rejected,omitempty"` // fragments that failed to decode
	Error     string    `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version:  ManifestVersion,
		Archives: make(map[string]ArchiveState),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Version > ManifestVersion {
		return nil, fmt.Errorf("manifest version %d is newer than supported version %d", manifest.Version, ManifestVersion)
	}
	if manifest.Archives == nil {
		manifest.Archives = make(map[string]ArchiveState)
	}
	return &manifest, nil
}

// Save writes the manifest to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}

// BeginBuild assigns a fresh build ID and forgets the previous build's archives.
func (m *Manifest) BeginBuild() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BuildID = uuid.NewString()
	m.Archives = make(map[string]ArchiveState)
	m.Error = ""
	return m.BuildID
}

// SetArchiveState records the state of one archive.
func (m *Manifest) SetArchiveState(path string, state ArchiveState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Archives[path] = state
}

// GetArchiveState returns the recorded state of an archive.
func (m *Manifest) GetArchiveState(path string) (ArchiveState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Archives[path]
	return state, ok
}

// ArchivePaths returns every recorded archive path, sorted.
func (m *Manifest) ArchivePaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.Archives))
}

// ArchivesWithErrors returns the archives that failed, keyed by path.
func (m *Manifest) ArchivesWithErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for path, state := range m.Archives {
		if state.Error != "" {
			result[path] = state.Error
		}
	}
	return result
}

// BuildSummary is the outcome of one corpus build.
type BuildSummary struct {
	Symbols   int
	Fragments int
	ByKind    map[string]int
	Duration  time.Duration
	Err       error
}

// FinishBuild records the outcome of the current build.
func (m *Manifest) FinishBuild(s BuildSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBuild = time.Now()
	m.Duration = s.Duration
	m.Symbols = s.Symbols
	m.Fragments = s.Fragments
	m.ByKind = s.ByKind
	m.Error = ""
	if s.Err != nil {
		m.Error = s.Err.Error()
	}
}
