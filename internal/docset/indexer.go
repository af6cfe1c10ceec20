package docset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/domain"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

const (
	// IndexDirname is the on-disk index directory under the base directory
	IndexDirname = "index.bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 500
)

// Indexer builds the search index for a corpus.
type Indexer struct {
	baseDir string
	persist bool
}

// NewIndexer creates an indexer. With persist set the index lives under baseDir;
// otherwise it is memory only.
func NewIndexer(baseDir string, persist bool) *Indexer {
	return &Indexer{baseDir: baseDir, persist: persist}
}

// Path returns the on-disk location of a persisted index.
func (i *Indexer) Path() string {
	return filepath.Join(i.baseDir, IndexDirname)
}

// CreateIndexMapping creates the Bleve index mapping for symbol documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	text := func(field string, analyzer string) {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = analyzer
		f.Store = true
		docMapping.AddFieldMappingsAt(field, f)
	}

	// Names are analyzed so "vector" finds "std::vector"
	text(domain.SymbolFieldName, standard.Name)
	text(domain.SymbolFieldQualifiedName, standard.Name)
	text(domain.SymbolFieldBrief, standard.Name)
	text(domain.SymbolFieldDoc, standard.Name)

	text(domain.SymbolFieldKind, keyword.Name)
	text(domain.SymbolFieldFile, keyword.Name)

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.SymbolFieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Create returns a fresh, empty index. A persisted index from an earlier build is
// replaced.
func (i *Indexer) Create() (bleve.Index, error) {
	if !i.persist {
		index, err := bleve.NewMemOnly(CreateIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
		return index, nil
	}

	if err := os.RemoveAll(i.Path()); err != nil {
		return nil, fmt.Errorf("failed to remove previous index: %w", err)
	}
	index, err := bleve.New(i.Path(), CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// IndexCorpus adds a document for every symbol except the global namespace and
// returns how many were indexed.
func IndexCorpus(index bleve.Index, c *corpus.Corpus) (int, error) {
	batch := index.NewBatch()
	total := 0

	for _, id := range c.Index() {
		if id == symbols.GlobalNamespaceID {
			continue
		}
		info, _ := c.Get(id)
		doc := NewSymbolDocument(c, info)
		if err := batch.Index(doc.ID, doc); err != nil {
			return total, fmt.Errorf("failed to index %s: %w", doc.QualifiedName, err)
		}

		if batch.Size() >= MaxBatchSize {
			if err := index.Batch(batch); err != nil {
				return total, fmt.Errorf("batch index failed: %w", err)
			}
			total += batch.Size()
			batch.Reset()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return total, fmt.Errorf("final batch index failed: %w", err)
		}
		total += batch.Size()
	}
	return total, nil
}

// NewSymbolDocument projects a canonical symbol to its search document.
func NewSymbolDocument(c *corpus.Corpus, info symbols.Info) domain.SymbolDocument {
	base := info.Base()
	return domain.SymbolDocument{
		ID:            base.ID.String(),
		Name:          base.Name,
		QualifiedName: c.QualifiedName(base.ID),
		Kind:          info.Kind().String(),
		Brief:         base.Doc.Brief(),
		Doc:           docText(base.Doc),
		File:          primaryFile(info),
	}
}

func docText(d *symbols.DocComment) string {
	if d == nil {
		return ""
	}
	parts := make([]string, 0, len(d.Blocks))
	for i := range d.Blocks {
		if text := d.Blocks[i].Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// primaryFile returns the definition file, falling back to the first declaration.
func primaryFile(info symbols.Info) string {
	loc := symbols.Locations(info)
	if loc == nil {
		return ""
	}
	if loc.DefLoc != nil {
		return loc.DefLoc.File
	}
	if len(loc.Loc) > 0 {
		return loc.Loc[0].File
	}
	return ""
}
