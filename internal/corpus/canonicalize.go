package corpus

import (
	"slices"
	"strings"

	"github.com/sha1n/relic-corpus/internal/symbols"
)

// canonicalize sorts every child list and the index by fully qualified name and
// normalizes docs. It runs single-threaded after every insert, and a second call
// is a no-op.
func (c *Corpus) canonicalize() {
	if c.canonical {
		return
	}

	c.fqn = make(map[symbols.SymbolID]string, len(c.infos))
	for id := range c.infos {
		c.fqn[id] = c.qualify(id)
	}

	c.stats.Symbols = len(c.infos)
	c.stats.ByKind = make(map[symbols.Kind]int)
	for _, info := range c.infos {
		c.stats.ByKind[info.Kind()]++
		info.Base().Doc.Normalize()
		if doc := info.Base().Doc; doc != nil && len(doc.Blocks) == 0 {
			info.Base().Doc = nil
		}
		c.sortChildren(info)
	}

	c.index = make([]symbols.SymbolID, 0, len(c.infos))
	for id := range c.infos {
		c.index = append(c.index, id)
	}
	slices.SortFunc(c.index, c.compareIDs)

	c.byName = make(map[string][]symbols.SymbolID)
	for _, id := range c.index {
		if name := c.fqn[id]; name != "" {
			c.byName[name] = append(c.byName[name], id)
		}
	}

	c.canonical = true
}

// qualify joins the names of id's enclosing scopes, outermost first, with its own.
// A parent reference without a name falls back to the parent's record.
func (c *Corpus) qualify(id symbols.SymbolID) string {
	info, ok := c.infos[id]
	if !ok {
		return ""
	}
	base := info.Base()

	parts := make([]string, 0, len(base.Parents)+1)
	for i := len(base.Parents) - 1; i >= 0; i-- {
		ref := base.Parents[i]
		name := ref.Name
		if name == "" {
			if parent, ok := c.infos[ref.ID]; ok {
				name = parent.Base().Name
			}
		}
		if name != "" {
			parts = append(parts, name)
		}
	}
	if base.Name != "" {
		parts = append(parts, base.Name)
	}
	return strings.Join(parts, ScopeSeparator)
}

// compareIDs orders by fully qualified name, then by SymbolID so overloads and
// unnamed symbols have a stable position.
func (c *Corpus) compareIDs(a, b symbols.SymbolID) int {
	if r := CompareSymbolNames(c.fqn[a], c.fqn[b]); r != 0 {
		return r
	}
	return a.Compare(b)
}

func (c *Corpus) compareRefs(a, b symbols.MemberRef) int {
	return c.compareIDs(a.ID, b.ID)
}

func (c *Corpus) sortChildren(info symbols.Info) {
	switch v := info.(type) {
	case *symbols.NamespaceInfo:
		c.sortMembers(&v.Children)
	case *symbols.RecordInfo:
		c.sortMembers(&v.Members)
		slices.SortFunc(v.Friends, c.compareIDs)
	case *symbols.SpecializationInfo:
		slices.SortFunc(v.Members, func(a, b symbols.SpecializedMember) int {
			return c.compareIDs(a.Specialized, b.Specialized)
		})
	}
}

func (c *Corpus) sortMembers(m *symbols.Members) {
	for _, cat := range symbols.Categories() {
		slices.SortFunc(*m.List(cat), c.compareRefs)
	}
}
