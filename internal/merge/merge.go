// Package merge folds the partial observations of one symbol into a single record.
package merge

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sha1n/relic-corpus/internal/symbols"
)

// InvariantError reports a group that cannot come from a consistent Extractor:
// an empty group, or observations disagreeing on ID or kind.
type InvariantError struct {
	ID     symbols.SymbolID
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("merge invariant violated for %s: %s", e.ID, e.Reason)
}

// Reduce folds infos left to right into infos[0] and returns it. Reduce takes
// ownership of every element; the result aliases infos[0].
//
// Identity scalars, the definition location and the "first full definition" fields
// keep the accumulator's value unless it is empty. Docs are appended, declaration
// locations and child references are unioned, and flag sets are ORed.
func Reduce(infos []symbols.Info) (symbols.Info, error) {
	if len(infos) == 0 {
		return nil, &InvariantError{Reason: "empty group"}
	}
	acc := infos[0]
	if acc == nil {
		return nil, &InvariantError{Reason: "nil observation"}
	}
	id := acc.Base().ID

	for _, other := range infos[1:] {
		if other == nil {
			return nil, &InvariantError{ID: id, Reason: "nil observation"}
		}
		if other.Kind() != acc.Kind() {
			return nil, &InvariantError{ID: id, Reason: fmt.Sprintf("kind %s merged into %s", other.Kind(), acc.Kind())}
		}
		if other.Base().ID != id {
			return nil, &InvariantError{ID: id, Reason: fmt.Sprintf("id %s merged into group", other.Base().ID)}
		}
		mergeInto(acc, other)
	}

	if si := symbols.Locations(acc); si != nil {
		si.Loc = sortLocations(si.Loc)
	}
	dedupChildren(acc)
	return acc, nil
}

// dedupChildren drops repeated child references, including those a single
// observation carried on its own.
func dedupChildren(info symbols.Info) {
	switch v := info.(type) {
	case *symbols.NamespaceInfo:
		mergeMembers(&v.Children, &symbols.Members{})
	case *symbols.RecordInfo:
		mergeMembers(&v.Members, &symbols.Members{})
		v.Friends = unionIDs(v.Friends, nil)
	case *symbols.SpecializationInfo:
		v.Members = unionSpecialized(v.Members, nil)
	}
}

// mergeInto folds other into acc. Both have the same concrete type.
func mergeInto(acc, other symbols.Info) {
	switch a := acc.(type) {
	case *symbols.NamespaceInfo:
		b := other.(*symbols.NamespaceInfo)
		mergeBase(&a.InfoBase, &b.InfoBase)
		a.Flags |= b.Flags
		mergeMembers(&a.Children, &b.Children)

	case *symbols.RecordInfo:
		b := other.(*symbols.RecordInfo)
		mergeSymbol(&a.SymbolInfo, &b.SymbolInfo)
		a.KeyKind = firstNonZero(a.KeyKind, b.KeyKind)
		a.IsTypedef = a.IsTypedef || b.IsTypedef
		a.Flags |= b.Flags
		if len(a.Bases) == 0 {
			a.Bases = b.Bases
		}
		mergeMembers(&a.Members, &b.Members)
		a.Friends = unionIDs(a.Friends, b.Friends)
		a.Template = firstTemplate(a.Template, b.Template)

	case *symbols.FunctionInfo:
		b := other.(*symbols.FunctionInfo)
		mergeSymbol(&a.SymbolInfo, &b.SymbolInfo)
		a.Class = firstNonZero(a.Class, b.Class)
		a.Flags |= b.Flags
		if a.ReturnType.IsEmpty() {
			a.ReturnType = b.ReturnType
		}
		if len(a.Params) == 0 {
			a.Params = b.Params
		}
		a.Template = firstTemplate(a.Template, b.Template)

	case *symbols.EnumInfo:
		b := other.(*symbols.EnumInfo)
		mergeSymbol(&a.SymbolInfo, &b.SymbolInfo)
		a.Scoped = a.Scoped || b.Scoped
		if a.Underlying == nil || (a.Underlying.IsEmpty() && b.Underlying != nil) {
			a.Underlying = b.Underlying
		}
		if len(a.Values) == 0 {
			a.Values = b.Values
		}

	case *symbols.TypedefInfo:
		b := other.(*symbols.TypedefInfo)
		mergeSymbol(&a.SymbolInfo, &b.SymbolInfo)
		a.IsUsing = a.IsUsing || b.IsUsing
		if a.Underlying.IsEmpty() {
			a.Underlying = b.Underlying
		}
		a.Template = firstTemplate(a.Template, b.Template)

	case *symbols.VariableInfo:
		b := other.(*symbols.VariableInfo)
		mergeSymbol(&a.SymbolInfo, &b.SymbolInfo)
		a.Flags |= b.Flags
		if a.Type.IsEmpty() {
			a.Type = b.Type
		}
		a.Template = firstTemplate(a.Template, b.Template)

	case *symbols.FieldInfo:
		b := other.(*symbols.FieldInfo)
		mergeSymbol(&a.SymbolInfo, &b.SymbolInfo)
		a.Flags |= b.Flags
		if a.Type.IsEmpty() {
			a.Type = b.Type
		}
		a.Default = firstNonZero(a.Default, b.Default)

	case *symbols.SpecializationInfo:
		b := other.(*symbols.SpecializationInfo)
		mergeBase(&a.InfoBase, &b.InfoBase)
		if a.Primary.IsZero() {
			a.Primary = b.Primary
		}
		if len(a.Args) == 0 {
			a.Args = b.Args
		}
		a.Members = unionSpecialized(a.Members, b.Members)
	}
}

func mergeBase(a, b *symbols.InfoBase) {
	a.Name = firstNonZero(a.Name, b.Name)
	a.Access = firstNonZero(a.Access, b.Access)
	if len(a.Parents) == 0 {
		a.Parents = b.Parents
	}
	if b.Doc != nil {
		if a.Doc == nil {
			a.Doc = &symbols.DocComment{}
		}
		a.Doc.Append(b.Doc)
	}
}

func mergeSymbol(a, b *symbols.SymbolInfo) {
	mergeBase(&a.InfoBase, &b.InfoBase)
	if a.DefLoc == nil {
		a.DefLoc = b.DefLoc
	}
	a.Loc = append(a.Loc, b.Loc...)
}

func mergeMembers(a, b *symbols.Members) {
	for _, c := range symbols.Categories() {
		la, lb := a.List(c), b.List(c)
		*la = unionRefs(*la, *lb)
	}
}

func firstNonZero[T comparable](a, b T) T {
	var zero T
	if a == zero {
		return b
	}
	return a
}

func firstTemplate(a, b *symbols.TemplateInfo) *symbols.TemplateInfo {
	if a.IsEmpty() && !b.IsEmpty() {
		return b
	}
	if a == nil {
		return b
	}
	return a
}

// sortLocations orders by line, then file, and drops exact duplicates.
func sortLocations(locs []symbols.Location) []symbols.Location {
	slices.SortFunc(locs, func(x, y symbols.Location) int {
		if c := cmp.Compare(x.Line, y.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(x.File, y.File); c != 0 {
			return c
		}
		switch {
		case x.Documented == y.Documented:
			return 0
		case !x.Documented:
			return -1
		default:
			return 1
		}
	})
	return slices.Compact(locs)
}

func unionRefs(a, b []symbols.MemberRef) []symbols.MemberRef {
	if len(b) == 0 && len(a) < 2 {
		return a
	}
	seen := make(map[symbols.SymbolID]struct{}, len(a)+len(b))
	out := make([]symbols.MemberRef, 0, len(a)+len(b))
	for _, list := range [][]symbols.MemberRef{a, b} {
		for _, ref := range list {
			if _, ok := seen[ref.ID]; ok {
				continue
			}
			seen[ref.ID] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

func unionIDs(a, b []symbols.SymbolID) []symbols.SymbolID {
	if len(b) == 0 && len(a) < 2 {
		return a
	}
	seen := make(map[symbols.SymbolID]struct{}, len(a)+len(b))
	out := make([]symbols.SymbolID, 0, len(a)+len(b))
	for _, id := range slices.Concat(a, b) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionSpecialized(a, b []symbols.SpecializedMember) []symbols.SpecializedMember {
	if len(b) == 0 && len(a) < 2 {
		return a
	}
	seen := make(map[symbols.SymbolID]struct{}, len(a)+len(b))
	out := make([]symbols.SpecializedMember, 0, len(a)+len(b))
	for _, m := range slices.Concat(a, b) {
		if _, ok := seen[m.Specialized]; ok {
			continue
		}
		seen[m.Specialized] = struct{}{}
		out = append(out, m)
	}
	return out
}
