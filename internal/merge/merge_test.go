package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/relic-corpus/internal/symbols"
)

var fnID = symbols.SymbolIDFromUSR("c:@F@resize#I#")

func function(mutate func(f *symbols.FunctionInfo)) *symbols.FunctionInfo {
	f := symbols.New(symbols.KindFunction, fnID).(*symbols.FunctionInfo)
	mutate(f)
	return f
}

func namespace(id symbols.SymbolID, children ...symbols.SymbolID) *symbols.NamespaceInfo {
	ns := symbols.New(symbols.KindNamespace, id).(*symbols.NamespaceInfo)
	for _, c := range children {
		ns.Children.Namespaces = append(ns.Children.Namespaces, symbols.MemberRef{ID: c})
	}
	return ns
}

func TestReduce_DefinitionAndParams(t *testing.T) {
	declared := function(func(f *symbols.FunctionInfo) {
		f.DefLoc = &symbols.Location{Line: 10, File: "a.hpp"}
	})
	defined := function(func(f *symbols.FunctionInfo) {
		f.Params = []symbols.Param{
			{Name: "n", Type: symbols.TypeInfo{Name: "size_t"}},
			{Name: "value", Type: symbols.TypeInfo{Name: "const T&"}},
		}
	})

	got, err := Reduce([]symbols.Info{declared, defined})
	require.NoError(t, err)

	fn := got.(*symbols.FunctionInfo)
	require.NotNil(t, fn.DefLoc)
	assert.Equal(t, symbols.Location{Line: 10, File: "a.hpp"}, *fn.DefLoc)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "n", fn.Params[0].Name)
	assert.Equal(t, "value", fn.Params[1].Name)
}

func TestReduce_DisjointChildrenAnyOrder(t *testing.T) {
	id := symbols.SymbolIDFromUSR("c:@N@boost")
	a, b, c := symbols.SymbolID{1}, symbols.SymbolID{2}, symbols.SymbolID{3}

	orders := [][]symbols.SymbolID{{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a}}
	for _, order := range orders {
		infos := make([]symbols.Info, 0, len(order))
		for _, child := range order {
			infos = append(infos, namespace(id, child))
		}

		got, err := Reduce(infos)
		require.NoError(t, err)

		var ids []symbols.SymbolID
		for _, ref := range got.(*symbols.NamespaceInfo).Children.Namespaces {
			ids = append(ids, ref.ID)
		}
		assert.ElementsMatch(t, []symbols.SymbolID{a, b, c}, ids)
	}
}

func TestReduce_ContentIsOrderIndependent(t *testing.T) {
	build := func() (*symbols.RecordInfo, *symbols.RecordInfo) {
		id := symbols.SymbolIDFromUSR("c:@S@widget")
		x := symbols.New(symbols.KindRecord, id).(*symbols.RecordInfo)
		x.Flags = symbols.RecordFinal
		x.Loc = []symbols.Location{{Line: 9, File: "b.hpp"}, {Line: 3, File: "a.hpp"}}
		x.Members.Functions = []symbols.MemberRef{{ID: symbols.SymbolID{1}}, {ID: symbols.SymbolID{2}}}
		x.Friends = []symbols.SymbolID{{7}}

		y := symbols.New(symbols.KindRecord, id).(*symbols.RecordInfo)
		y.Flags = symbols.RecordPolymorphic
		y.Loc = []symbols.Location{{Line: 3, File: "a.hpp"}, {Line: 1, File: "z.hpp"}}
		y.Members.Functions = []symbols.MemberRef{{ID: symbols.SymbolID{2}}, {ID: symbols.SymbolID{3}}}
		y.Members.Fields = []symbols.MemberRef{{ID: symbols.SymbolID{4}}}
		y.Friends = []symbols.SymbolID{{8}, {7}}
		return x, y
	}

	x1, y1 := build()
	xy, err := Reduce([]symbols.Info{x1, y1})
	require.NoError(t, err)

	x2, y2 := build()
	yx, err := Reduce([]symbols.Info{y2, x2})
	require.NoError(t, err)

	r1, r2 := xy.(*symbols.RecordInfo), yx.(*symbols.RecordInfo)
	assert.Equal(t, r1.Loc, r2.Loc, "locations are sorted")
	assert.Equal(t, []symbols.Location{{Line: 1, File: "z.hpp"}, {Line: 3, File: "a.hpp"}, {Line: 9, File: "b.hpp"}}, r1.Loc)
	assert.ElementsMatch(t, r1.Members.Functions, r2.Members.Functions)
	assert.Len(t, r1.Members.Functions, 3)
	assert.ElementsMatch(t, r1.Members.Fields, r2.Members.Fields)
	assert.ElementsMatch(t, r1.Friends, r2.Friends)
	assert.Len(t, r1.Friends, 2)
	assert.Equal(t, symbols.RecordFinal|symbols.RecordPolymorphic, r1.Flags)
	assert.Equal(t, r1.Flags, r2.Flags)
}

func TestReduce_FirstSeenOrder(t *testing.T) {
	id := symbols.SymbolID{5}
	got, err := Reduce([]symbols.Info{
		namespace(id, symbols.SymbolID{3}, symbols.SymbolID{1}),
		namespace(id, symbols.SymbolID{2}, symbols.SymbolID{3}),
	})
	require.NoError(t, err)

	assert.Equal(t, []symbols.MemberRef{
		{ID: symbols.SymbolID{3}}, {ID: symbols.SymbolID{1}}, {ID: symbols.SymbolID{2}},
	}, got.(*symbols.NamespaceInfo).Children.Namespaces)
}

func TestReduce_DocsAreAppended(t *testing.T) {
	para := symbols.Block{Kind: symbols.BlockParagraph, Children: []symbols.Inline{{Text: "Resizes."}}}
	a := function(func(f *symbols.FunctionInfo) { f.Doc = &symbols.DocComment{Blocks: []symbols.Block{para}} })
	b := function(func(f *symbols.FunctionInfo) {})
	c := function(func(f *symbols.FunctionInfo) { f.Doc = &symbols.DocComment{Blocks: []symbols.Block{para}} })

	got, err := Reduce([]symbols.Info{b, a, c})
	require.NoError(t, err)
	assert.Len(t, got.Base().Doc.Blocks, 2, "duplicates are kept")
}

func TestReduce_IdentityFirstNonEmpty(t *testing.T) {
	anon := function(func(f *symbols.FunctionInfo) {})
	named := function(func(f *symbols.FunctionInfo) {
		f.Name = "resize"
		f.Access = symbols.AccessPublic
		f.Parents = []symbols.Reference{{ID: symbols.SymbolID{1}, Name: "vector", Kind: symbols.KindRecord}}
	})
	other := function(func(f *symbols.FunctionInfo) {
		f.Name = "other"
		f.Access = symbols.AccessPrivate
	})

	got, err := Reduce([]symbols.Info{anon, named, other})
	require.NoError(t, err)
	assert.Equal(t, "resize", got.Base().Name)
	assert.Equal(t, symbols.AccessPublic, got.Base().Access)
	assert.Len(t, got.Base().Parents, 1)
}

func TestReduce_FirstFullDefinitionWins(t *testing.T) {
	id := symbols.SymbolID{9}

	t.Run("record", func(t *testing.T) {
		a := symbols.New(symbols.KindRecord, id).(*symbols.RecordInfo)
		b := symbols.New(symbols.KindRecord, id).(*symbols.RecordInfo)
		b.Bases = []symbols.BaseInfo{{Type: symbols.TypeInfo{Name: "base"}}}
		b.Template = &symbols.TemplateInfo{Params: []symbols.TParam{{Name: "T"}}}
		b.KeyKind = symbols.KeyUnion
		b.IsTypedef = true
		c := symbols.New(symbols.KindRecord, id).(*symbols.RecordInfo)
		c.Bases = []symbols.BaseInfo{{Type: symbols.TypeInfo{Name: "ignored"}}}

		got, err := Reduce([]symbols.Info{a, b, c})
		require.NoError(t, err)
		r := got.(*symbols.RecordInfo)
		assert.Equal(t, "base", r.Bases[0].Type.Name)
		assert.Equal(t, "T", r.Template.Params[0].Name)
		assert.Equal(t, symbols.KeyUnion, r.KeyKind)
		assert.True(t, r.IsTypedef)
	})

	t.Run("enum", func(t *testing.T) {
		a := symbols.New(symbols.KindEnum, id).(*symbols.EnumInfo)
		a.Underlying = &symbols.TypeInfo{}
		b := symbols.New(symbols.KindEnum, id).(*symbols.EnumInfo)
		b.Underlying = &symbols.TypeInfo{Name: "uint8_t"}
		b.Values = []symbols.EnumValue{{Name: "red"}}
		b.Scoped = true

		got, err := Reduce([]symbols.Info{a, b})
		require.NoError(t, err)
		e := got.(*symbols.EnumInfo)
		assert.Equal(t, "uint8_t", e.Underlying.Name)
		assert.Len(t, e.Values, 1)
		assert.True(t, e.Scoped)
	})

	t.Run("typedef", func(t *testing.T) {
		a := symbols.New(symbols.KindTypedef, id).(*symbols.TypedefInfo)
		a.Template = &symbols.TemplateInfo{}
		b := symbols.New(symbols.KindTypedef, id).(*symbols.TypedefInfo)
		b.Underlying = symbols.TypeInfo{Name: "int"}
		b.IsUsing = true
		b.Template = &symbols.TemplateInfo{Args: []symbols.TArg{{Value: "int"}}}

		got, err := Reduce([]symbols.Info{a, b})
		require.NoError(t, err)
		td := got.(*symbols.TypedefInfo)
		assert.Equal(t, "int", td.Underlying.Name)
		assert.True(t, td.IsUsing)
		assert.Len(t, td.Template.Args, 1)
	})

	t.Run("function", func(t *testing.T) {
		a := function(func(f *symbols.FunctionInfo) { f.Flags = symbols.FunctionConst })
		b := function(func(f *symbols.FunctionInfo) {
			f.Flags = symbols.FunctionNoexcept
			f.ReturnType = symbols.TypeInfo{Name: "void"}
			f.Class = symbols.FunctionDestructor
		})

		got, err := Reduce([]symbols.Info{a, b})
		require.NoError(t, err)
		fn := got.(*symbols.FunctionInfo)
		assert.Equal(t, symbols.FunctionConst|symbols.FunctionNoexcept, fn.Flags)
		assert.Equal(t, "void", fn.ReturnType.Name)
		assert.Equal(t, symbols.FunctionDestructor, fn.Class)
	})

	t.Run("variable and field", func(t *testing.T) {
		v1 := symbols.New(symbols.KindVariable, id).(*symbols.VariableInfo)
		v1.Flags = symbols.VariableStatic
		v2 := symbols.New(symbols.KindVariable, id).(*symbols.VariableInfo)
		v2.Flags = symbols.VariableInline
		v2.Type = symbols.TypeInfo{Name: "int"}

		got, err := Reduce([]symbols.Info{v1, v2})
		require.NoError(t, err)
		v := got.(*symbols.VariableInfo)
		assert.Equal(t, symbols.VariableStatic|symbols.VariableInline, v.Flags)
		assert.Equal(t, "int", v.Type.Name)

		f1 := symbols.New(symbols.KindField, id).(*symbols.FieldInfo)
		f1.Flags = symbols.FieldMutable
		f2 := symbols.New(symbols.KindField, id).(*symbols.FieldInfo)
		f2.Flags = symbols.FieldBitfield
		f2.Default = "0"

		got, err = Reduce([]symbols.Info{f1, f2})
		require.NoError(t, err)
		f := got.(*symbols.FieldInfo)
		assert.Equal(t, symbols.FieldMutable|symbols.FieldBitfield, f.Flags)
		assert.Equal(t, "0", f.Default)
	})
}

func TestReduce_Specialization(t *testing.T) {
	id := symbols.SymbolID{4}
	a := symbols.New(symbols.KindSpecialization, id).(*symbols.SpecializationInfo)
	a.Members = []symbols.SpecializedMember{{Primary: symbols.SymbolID{1}, Specialized: symbols.SymbolID{2}}}
	b := symbols.New(symbols.KindSpecialization, id).(*symbols.SpecializationInfo)
	b.Primary = symbols.SymbolID{8}
	b.Args = []symbols.TArg{{Value: "bool"}}
	b.Members = []symbols.SpecializedMember{
		{Primary: symbols.SymbolID{1}, Specialized: symbols.SymbolID{2}},
		{Primary: symbols.SymbolID{3}, Specialized: symbols.SymbolID{5}},
	}

	got, err := Reduce([]symbols.Info{a, b})
	require.NoError(t, err)
	s := got.(*symbols.SpecializationInfo)
	assert.Equal(t, symbols.SymbolID{8}, s.Primary)
	assert.Len(t, s.Args, 1)
	assert.Len(t, s.Members, 2)
}

func TestReduce_LocationsDeduplicated(t *testing.T) {
	a := function(func(f *symbols.FunctionInfo) {
		f.Loc = []symbols.Location{{Line: 4, File: "b.hpp"}, {Line: 4, File: "a.hpp", Documented: true}}
	})
	b := function(func(f *symbols.FunctionInfo) {
		f.Loc = []symbols.Location{{Line: 4, File: "a.hpp", Documented: true}, {Line: 4, File: "a.hpp"}}
	})

	got, err := Reduce([]symbols.Info{a, b})
	require.NoError(t, err)
	assert.Equal(t, []symbols.Location{
		{Line: 4, File: "a.hpp"},
		{Line: 4, File: "a.hpp", Documented: true},
		{Line: 4, File: "b.hpp"},
	}, got.(*symbols.FunctionInfo).Loc)
}

func TestReduce_Single(t *testing.T) {
	ns := namespace(symbols.SymbolID{1}, symbols.SymbolID{2})
	got, err := Reduce([]symbols.Info{ns})
	require.NoError(t, err)
	assert.Same(t, ns, got)
}

func TestReduce_Invariants(t *testing.T) {
	tests := []struct {
		name  string
		infos []symbols.Info
	}{
		{name: "empty"},
		{name: "nil", infos: []symbols.Info{nil}},
		{
			name:  "kind mismatch",
			infos: []symbols.Info{namespace(fnID), function(func(*symbols.FunctionInfo) {})},
		},
		{
			name:  "id mismatch",
			infos: []symbols.Info{namespace(symbols.SymbolID{1}), namespace(symbols.SymbolID{2})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(tt.infos)
			var invariant *InvariantError
			require.True(t, errors.As(err, &invariant), "got %v", err)
			assert.NotEmpty(t, invariant.Reason)
		})
	}
}

func TestReduce_DuplicateChildrenWithinOneObservation(t *testing.T) {
	dup := func() *symbols.NamespaceInfo {
		ns := namespace(symbols.SymbolID{1})
		ns.Children.Functions = []symbols.MemberRef{{ID: symbols.SymbolID{5}}, {ID: symbols.SymbolID{5}}}
		return ns
	}

	one, err := Reduce([]symbols.Info{dup()})
	require.NoError(t, err)
	two, err := Reduce([]symbols.Info{dup(), namespace(symbols.SymbolID{1})})
	require.NoError(t, err)

	assert.Equal(t, []symbols.MemberRef{{ID: symbols.SymbolID{5}}}, one.(*symbols.NamespaceInfo).Children.Functions)
	assert.Equal(t, one, two)

	rec := symbols.New(symbols.KindRecord, symbols.SymbolID{2}).(*symbols.RecordInfo)
	rec.Friends = []symbols.SymbolID{{7}, {8}, {7}}
	rec.Members.Fields = []symbols.MemberRef{{ID: symbols.SymbolID{9}}, {ID: symbols.SymbolID{9}, Access: symbols.AccessPrivate}}
	got, err := Reduce([]symbols.Info{rec})
	require.NoError(t, err)
	assert.Equal(t, []symbols.SymbolID{{7}, {8}}, got.(*symbols.RecordInfo).Friends)
	assert.Equal(t, []symbols.MemberRef{{ID: symbols.SymbolID{9}}}, got.(*symbols.RecordInfo).Members.Fields)

	spec := symbols.New(symbols.KindSpecialization, symbols.SymbolID{3}).(*symbols.SpecializationInfo)
	spec.Members = []symbols.SpecializedMember{{Primary: symbols.SymbolID{1}, Specialized: symbols.SymbolID{4}}, {Primary: symbols.SymbolID{2}, Specialized: symbols.SymbolID{4}}}
	got, err = Reduce([]symbols.Info{spec})
	require.NoError(t, err)
	assert.Len(t, got.(*symbols.SpecializationInfo).Members, 1)
}
