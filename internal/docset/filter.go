package docset

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sha1n/relic-corpus/internal/archive"
)

// DefaultExcludePatterns lists paths never scanned for archives.
var DefaultExcludePatterns = []string{
	".git/**", "node_modules/**", ".relic-corpus/**",
	"*.tmp", "*.partial",
}

// FileFilter decides which files under the input directory are fragment archives.
type FileFilter struct {
	extension string
	patterns  []string
}

// NewFileFilter creates a filter that accepts fragment archives and applies the
// default exclusions.
func NewFileFilter() *FileFilter {
	return NewFileFilterWithPatterns(DefaultExcludePatterns)
}

// NewFileFilterWithPatterns creates a filter with custom exclusion patterns.
func NewFileFilterWithPatterns(patterns []string) *FileFilter {
	return &FileFilter{
		extension: archive.Extension,
		patterns:  patterns,
	}
}

// ShouldInclude reports whether relPath, relative to the input directory, names an
// archive that should be ingested.
func (f *FileFilter) ShouldInclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if !strings.HasSuffix(relPath, f.extension) || isHidden(relPath) {
		return false
	}
	return !f.ShouldExclude(relPath)
}

// ShouldExclude reports whether relPath matches an exclusion pattern.
func (f *FileFilter) ShouldExclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range f.patterns {
		if matchPattern(pattern, relPath) {
			return true
		}
	}
	return false
}

// Discover walks root and returns every accepted archive path, sorted.
// Unreadable entries are skipped.
func (f *FileFilter) Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if isHidden(filepath.ToSlash(rel)) || f.ShouldExclude(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if f.ShouldInclude(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

// isHidden reports whether the last path element starts with a dot.
func isHidden(relPath string) bool {
	return strings.HasPrefix(filepath.Base(relPath), ".")
}

// matchPattern matches a slash-separated path against a glob. A "dir/**" pattern
// matches dir at any depth; other patterns match the full path or the base name.
func matchPattern(pattern, path string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
		if path == dir || strings.HasPrefix(path, dir+"/") {
			return true
		}
		return strings.Contains("/"+path, "/"+dir+"/")
	}
	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}
