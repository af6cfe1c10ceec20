package corpus

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/sha1n/relic-corpus/internal/symbols"
)

// ScopeSeparator joins the components of a fully qualified name.
const ScopeSeparator = "::"

// SkipChildren may be returned by a Visitor to skip the children of the visited symbol.
var SkipChildren = errors.New("skip children")

// Visitor is called for every symbol reached by Traverse. depth is 0 for the
// global namespace.
type Visitor func(info symbols.Info, depth int) error

// Stats summarizes a built corpus.
type Stats struct {
	Symbols   int                  `json:"symbols" yaml:"symbols"`
	Fragments int                  `json:"fragments" yaml:"fragments"`
	ByKind    map[symbols.Kind]int `json:"by_kind" yaml:"by_kind"`
}

// Corpus is the canonical, immutable symbol graph. It has no mutating methods and
// is safe for concurrent readers.
type Corpus struct {
	infos     map[symbols.SymbolID]symbols.Info
	fqn       map[symbols.SymbolID]string
	byName    map[string][]symbols.SymbolID
	index     []symbols.SymbolID
	canonical bool
	stats     Stats
}

func newCorpus(infos map[symbols.SymbolID]symbols.Info, logger *slog.Logger) *Corpus {
	if _, ok := infos[symbols.GlobalNamespaceID]; !ok {
		logger.Warn("No fragment for the global namespace, using an empty one")
		infos[symbols.GlobalNamespaceID] = symbols.New(symbols.KindNamespace, symbols.GlobalNamespaceID)
	}
	return &Corpus{infos: infos}
}

// Get returns the canonical record for id.
func (c *Corpus) Get(id symbols.SymbolID) (symbols.Info, bool) {
	info, ok := c.infos[id]
	return info, ok
}

// GlobalNamespace returns the root of the symbol graph.
func (c *Corpus) GlobalNamespace() *symbols.NamespaceInfo {
	ns, _ := c.infos[symbols.GlobalNamespaceID].(*symbols.NamespaceInfo)
	return ns
}

// Len returns the number of canonical symbols, including the global namespace.
func (c *Corpus) Len() int {
	return len(c.infos)
}

// Index returns every SymbolID sorted by fully qualified name.
func (c *Corpus) Index() []symbols.SymbolID {
	return slices.Clone(c.index)
}

// QualifiedName returns the fully qualified name of id, or "" when id is unknown
// or is the global namespace.
func (c *Corpus) QualifiedName(id symbols.SymbolID) string {
	return c.fqn[id]
}

// Lookup returns every symbol whose fully qualified name is fqn, in index order.
// Overloads share a name, so more than one symbol may match.
func (c *Corpus) Lookup(fqn string) []symbols.Info {
	ids := c.byName[strings.TrimPrefix(fqn, ScopeSeparator)]
	if len(ids) == 0 {
		return nil
	}
	out := make([]symbols.Info, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.infos[id])
	}
	return out
}

// Stats returns counts describing the corpus.
func (c *Corpus) Stats() Stats {
	s := c.stats
	s.ByKind = make(map[symbols.Kind]int, len(c.stats.ByKind))
	for k, n := range c.stats.ByKind {
		s.ByKind[k] = n
	}
	return s
}

// Children returns the canonical child IDs of a namespace or record, category by
// category. Other kinds have no children.
func Children(info symbols.Info) []symbols.SymbolID {
	var m *symbols.Members
	switch v := info.(type) {
	case *symbols.NamespaceInfo:
		m = &v.Children
	case *symbols.RecordInfo:
		m = &v.Members
	default:
		return nil
	}
	ids := make([]symbols.SymbolID, 0, m.Len())
	for _, cat := range symbols.Categories() {
		for _, ref := range *m.List(cat) {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// Traverse walks the graph in pre-order from the global namespace, following child
// references in canonical order. Each symbol is visited at most once and references
// to unknown symbols are skipped. Returning SkipChildren prunes the subtree; any
// other error stops the walk and is returned.
func (c *Corpus) Traverse(fn Visitor) error {
	visited := make(map[symbols.SymbolID]struct{}, len(c.infos))
	err := c.walk(symbols.GlobalNamespaceID, 0, visited, fn)
	if errors.Is(err, SkipChildren) {
		return nil
	}
	return err
}

func (c *Corpus) walk(id symbols.SymbolID, depth int, visited map[symbols.SymbolID]struct{}, fn Visitor) error {
	if _, ok := visited[id]; ok {
		return nil
	}
	info, ok := c.infos[id]
	if !ok {
		return nil
	}
	visited[id] = struct{}{}

	if err := fn(info, depth); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	for _, child := range Children(info) {
		if err := c.walk(child, depth+1, visited, fn); err != nil {
			return err
		}
	}
	return nil
}
