package docset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sha1n/relic-corpus/internal/archive"
	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

func TestNewService_NilSettings(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Error("Expected error for nil settings")
	}
}

func TestNewService_CreatesBaseDir(t *testing.T) {
	settings := testSettings(t)
	settings.BaseDir = filepath.Join(settings.BaseDir, "nested", "base")

	newTestService(t, settings)

	if _, err := os.Stat(settings.BaseDir); err != nil {
		t.Errorf("Base directory should exist: %v", err)
	}
}

func TestService_NotReady(t *testing.T) {
	svc := newTestService(t, testSettings(t))

	if svc.IsReady() {
		t.Error("Service should not be ready before Initialize")
	}
	if _, err := svc.Corpus(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Corpus error = %v, want ErrNotReady", err)
	}
	if _, err := svc.Index(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Index error = %v, want ErrNotReady", err)
	}
}

func TestService_Initialize(t *testing.T) {
	svc := setupReadyService(t)

	if !svc.IsReady() {
		t.Fatal("Service should be ready after Initialize")
	}
	c, err := svc.Corpus()
	if err != nil {
		t.Fatalf("Corpus failed: %v", err)
	}
	if c.Len() != len(geoHeader()) {
		t.Errorf("Len = %d, want %d", c.Len(), len(geoHeader()))
	}
	if got := c.QualifiedName(pointXID); got != "geo::Point::x" {
		t.Errorf("QualifiedName = %q, want geo::Point::x", got)
	}

	index, err := svc.Index()
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	count, err := index.DocCount()
	if err != nil {
		t.Fatalf("DocCount failed: %v", err)
	}
	if int(count) != c.Len()-1 {
		t.Errorf("DocCount = %d, want %d", count, c.Len()-1)
	}

	m := svc.Manifest()
	if m.BuildID == "" {
		t.Error("Expected a build ID")
	}
	if m.Symbols != c.Len() || m.Fragments != len(geoHeader()) {
		t.Errorf("manifest Symbols/Fragments = %d/%d", m.Symbols, m.Fragments)
	}
	if m.ByKind["namespace"] != 2 {
		t.Errorf("ByKind[namespace] = %d, want 2", m.ByKind["namespace"])
	}
	if m.Error != "" {
		t.Errorf("manifest Error = %q", m.Error)
	}

	saved, err := LoadManifest(filepath.Join(svc.Settings().BaseDir, ManifestFilename))
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if saved.BuildID != m.BuildID {
		t.Error("Manifest should be saved after the build")
	}
}

func TestService_MergesAcrossArchives(t *testing.T) {
	settings := testSettings(t)
	infos := geoHeader()
	writeArchive(t, settings.InputDir, "a", infos[:3]...)
	writeArchive(t, filepath.Join(settings.InputDir, "sub"), "b", infos[3:]...)

	// a second declaration of distance seen by another translation unit
	redecl := &symbols.FunctionInfo{SymbolInfo: symbols.SymbolInfo{
		InfoBase: symbols.InfoBase{ID: distanceID},
		Loc:      []symbols.Location{{Line: 3, File: "geo/fwd.hpp"}},
	}}
	writeArchive(t, settings.InputDir, "c", redecl)

	svc := newTestService(t, settings)
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	c, _ := svc.Corpus()
	info, ok := c.Get(distanceID)
	if !ok {
		t.Fatal("distance missing")
	}
	fn := info.(*symbols.FunctionInfo)
	if len(fn.Loc) != 2 {
		t.Errorf("Loc = %v, want 2 locations", fn.Loc)
	}
	if fn.Name != "distance" {
		t.Errorf("Name = %q", fn.Name)
	}
	if got := len(svc.Manifest().ArchivePaths()); got != 3 {
		t.Errorf("recorded %d archives, want 3", got)
	}
}

func TestService_SkipsUndecodableFragments(t *testing.T) {
	settings := testSettings(t)
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)

	stalePath := filepath.Join(settings.InputDir, "stale"+archive.Extension)
	err := archive.WriteFile(stalePath, []archive.Fragment{
		{ID: symbols.SymbolIDFromUSR("c:@F@old"), Blob: staleBlob(t)},
		{ID: symbols.SymbolIDFromUSR("c:@F@junk"), Blob: []byte("not a bitstream")},
	})
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	svc := newTestService(t, settings)
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	state, ok := svc.Manifest().GetArchiveState(stalePath)
	if !ok {
		t.Fatal("Expected state for the stale archive")
	}
	if state.Rejected != 2 || state.Fragments != 0 {
		t.Errorf("Rejected/Fragments = %d/%d, want 2/0", state.Rejected, state.Fragments)
	}
	c, _ := svc.Corpus()
	if c.Len() != len(geoHeader()) {
		t.Errorf("Len = %d, want %d", c.Len(), len(geoHeader()))
	}
}

func TestService_CorruptArchiveFailsBuild(t *testing.T) {
	settings := testSettings(t)
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)
	corrupt := filepath.Join(settings.InputDir, "broken"+archive.Extension)
	if err := os.WriteFile(corrupt, []byte("garbage"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	svc := newTestService(t, settings)
	if err := svc.Initialize(context.Background()); err == nil {
		t.Fatal("Expected Initialize to fail")
	}
	if svc.IsReady() {
		t.Error("Service should not be ready after a failed build")
	}

	errs := svc.Manifest().ArchivesWithErrors()
	if _, ok := errs[corrupt]; !ok || len(errs) != 1 {
		t.Errorf("ArchivesWithErrors = %v", errs)
	}
	if svc.Manifest().Error == "" {
		t.Error("Expected the build error in the manifest")
	}
}

func TestService_MergeFailureFailsBuild(t *testing.T) {
	settings := testSettings(t)
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)

	// same ID reported as a different kind
	clash := &symbols.EnumInfo{SymbolInfo: symbols.SymbolInfo{InfoBase: symbols.InfoBase{ID: pointID, Name: "Point"}}}
	writeArchive(t, settings.InputDir, "clash", clash)

	svc := newTestService(t, settings)
	c, err := svc.Build(context.Background())
	if c != nil {
		t.Error("A failed build should not return a corpus")
	}
	var buildErr *corpus.BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Build error = %v, want *corpus.BuildError", err)
	}
	if buildErr.Failures != 1 {
		t.Errorf("Failures = %d, want 1", buildErr.Failures)
	}
}

func TestService_EmptyInputDir(t *testing.T) {
	svc := newTestService(t, testSettings(t))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	c, _ := svc.Corpus()
	if c.Len() != 1 {
		t.Errorf("Len = %d, want only the global namespace", c.Len())
	}
	if c.GlobalNamespace() == nil {
		t.Error("Expected a global namespace")
	}
}

func TestService_SpillToDisk(t *testing.T) {
	settings := testSettings(t)
	settings.SpillToDisk = true
	settings.Workers = 2
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)

	svc := newTestService(t, settings)
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(settings.BaseDir, SpillDirname)); err != nil {
		t.Errorf("Spill store should exist: %v", err)
	}
	c, _ := svc.Corpus()
	if got := c.Lookup("geo::distance"); len(got) != 1 {
		t.Errorf("Lookup = %d matches, want 1", len(got))
	}
}

func TestService_PersistIndex(t *testing.T) {
	settings := testSettings(t)
	settings.PersistIndex = true
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)

	svc := newTestService(t, settings)
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(settings.BaseDir, IndexDirname)); err != nil {
		t.Errorf("Persisted index should exist: %v", err)
	}
}

func TestService_LockTimeout(t *testing.T) {
	settings := testSettings(t)
	settings.LockTimeout = 50 * time.Millisecond

	holder := NewFileLock(filepath.Join(settings.BaseDir, LockFilename))
	if _, err := holder.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer releaseLock(t, holder)

	svc := newTestService(t, settings)
	err := svc.Initialize(context.Background())
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Initialize error = %v, want ErrLockTimeout", err)
	}
}

func TestService_CloseResetsReady(t *testing.T) {
	svc := setupReadyService(t)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if svc.IsReady() {
		t.Error("Service should not be ready after Close")
	}
}

func TestService_BuildLocked(t *testing.T) {
	settings := testSettings(t)
	writeArchive(t, settings.InputDir, "geo", geoHeader()...)

	svc := newTestService(t, settings)
	c, err := svc.BuildLocked(context.Background())
	if err != nil {
		t.Fatalf("BuildLocked failed: %v", err)
	}
	if c.Len() != len(geoHeader()) {
		t.Errorf("Len = %d, want %d", c.Len(), len(geoHeader()))
	}
	if svc.IsReady() {
		t.Error("BuildLocked should not make the service ready")
	}

	// the lock is free again
	lock := NewFileLock(filepath.Join(settings.BaseDir, LockFilename))
	defer releaseLock(t, lock)
	if _, err := lock.Acquire(context.Background(), 50*time.Millisecond); err != nil {
		t.Errorf("Lock should be released after the build: %v", err)
	}
}
