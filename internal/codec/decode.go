package codec

import (
	"fmt"
	"math"
	"slices"

	bs "github.com/sha1n/relic-corpus/internal/bitstream"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// Decode parses a blob holding exactly one Info.
func Decode(data []byte) (symbols.Info, error) {
	infos, err := DecodeAll(data)
	if err != nil {
		return nil, err
	}
	if len(infos) != 1 {
		return nil, &DecodeError{
			Op:     "stream",
			Offset: len(data),
			Err:    fmt.Errorf("%w: %d top-level blocks, want 1", ErrMalformed, len(infos)),
		}
	}
	return infos[0], nil
}

// DecodeAll parses every top-level block of a blob. Any failure discards the whole
// blob and is returned as a *DecodeError.
func DecodeAll(data []byte) ([]symbols.Info, error) {
	r := bs.NewReader(data)
	if err := r.ReadHeader(Signature, Version); err != nil {
		return nil, &DecodeError{Op: "header", Offset: r.Offset(), Err: err}
	}
	if err := checkSchema(r.Schema()); err != nil {
		return nil, &DecodeError{Op: "header", Offset: r.Offset(), Err: err}
	}

	root := &rootBuilder{}
	stack := []builder{root}
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, &DecodeError{Op: "read", Offset: r.Offset(), Err: err}
		}
		top := stack[len(stack)-1]

		switch entry.Kind {
		case bs.EntryEOF:
			return root.infos, nil
		case bs.EntryEnterBlock:
			child, err := top.enter(entry.BlockID)
			if err != nil {
				return nil, &DecodeError{Op: "block", Offset: r.Offset(), Err: err}
			}
			stack = append(stack, child)
		case bs.EntryEndBlock:
			if err := top.exit(); err != nil {
				return nil, &DecodeError{Op: "block", Offset: r.Offset(), Err: err}
			}
			stack = stack[:len(stack)-1]
		case bs.EntryRecord:
			if err := top.record(entry.Record); err != nil {
				return nil, &DecodeError{Op: "record", Offset: r.Offset(), Err: err}
			}
		}
	}
}

// checkSchema rejects streams whose abbreviation for a known record differs from
// ours, so builders can rely on operand shapes.
func checkSchema(stream *bs.Schema) error {
	for _, block := range stream.Blocks() {
		for _, rec := range stream.Records(block) {
			want, ok := schema.Abbrev(block, rec)
			if !ok {
				continue
			}
			got, _ := stream.Abbrev(block, rec)
			if !slices.Equal(got, want) {
				return fmt.Errorf("%w: block %d record %d has a foreign abbreviation", ErrMalformed, block, rec)
			}
		}
	}
	return nil
}

// builder accumulates the value of one open block. exit hands the finished value
// to the enclosing builder.
type builder interface {
	record(r bs.Record) error
	enter(block uint8) (builder, error)
	exit() error
}

// leaf is embedded by builders whose blocks have no sub-blocks.
type leaf struct{}

func (leaf) enter(block uint8) (builder, error) { return nil, unexpectedBlock(block) }
func (leaf) exit() error                        { return nil }

func unexpectedBlock(block uint8) error {
	return fmt.Errorf("%w: %d", ErrUnexpectedBlock, block)
}

func undeclared(r bs.Record) error {
	return fmt.Errorf("%w: %d", ErrUndeclaredRecord, r.ID)
}

func symbolID(arr []uint64) (symbols.SymbolID, error) {
	var id symbols.SymbolID
	if len(arr) != symbols.SymbolIDSize {
		return id, fmt.Errorf("%w: symbol id of %d bytes", ErrMalformed, len(arr))
	}
	for i, v := range arr {
		id[i] = byte(v)
	}
	return id, nil
}

type rootBuilder struct {
	infos []symbols.Info
}

func (b *rootBuilder) record(r bs.Record) error { return undeclared(r) }
func (b *rootBuilder) exit() error              { return nil }

func (b *rootBuilder) enter(block uint8) (builder, error) {
	kind, ok := blockKinds[block]
	if !ok {
		return nil, fmt.Errorf("%w: top-level block %d", ErrUnexpectedBlock, block)
	}
	return &infoBuilder{
		info: symbols.New(kind, symbols.SymbolID{}),
		done: func(info symbols.Info) { b.infos = append(b.infos, info) },
	}, nil
}

type infoBuilder struct {
	info symbols.Info
	done func(symbols.Info)
}

func (b *infoBuilder) exit() error {
	b.done(b.info)
	return nil
}

func (b *infoBuilder) record(r bs.Record) error {
	switch v := b.info.(type) {
	case *symbols.NamespaceInfo:
		switch r.ID {
		case recMember:
			return addMember(&v.Children, r)
		case recBits:
			v.Flags = symbols.NamespaceFlags(r.Fields[0])
			return nil
		}
	case *symbols.RecordInfo:
		switch r.ID {
		case recMember:
			return addMember(&v.Members, r)
		case recBits:
			v.KeyKind = symbols.RecordKeyKind(r.Fields[0])
			v.IsTypedef = r.Fields[1] == 1
			v.Flags = symbols.RecordFlags(r.Fields[2])
			return nil
		case recFriend:
			id, err := symbolID(r.Array)
			if err != nil {
				return err
			}
			v.Friends = append(v.Friends, id)
			return nil
		}
	case *symbols.FunctionInfo:
		if r.ID == recBits {
			v.Class = symbols.FunctionClass(r.Fields[0])
			v.Flags = symbols.FunctionFlags(r.Fields[1])
			return nil
		}
	case *symbols.EnumInfo:
		if r.ID == recBits {
			v.Scoped = r.Fields[0] == 1
			return nil
		}
	case *symbols.TypedefInfo:
		if r.ID == recBits {
			v.IsUsing = r.Fields[0] == 1
			return nil
		}
	case *symbols.VariableInfo:
		if r.ID == recBits {
			v.Flags = symbols.VariableFlags(r.Fields[0])
			return nil
		}
	case *symbols.FieldInfo:
		switch r.ID {
		case recBits:
			v.Flags = symbols.FieldFlags(r.Fields[0])
			return nil
		case recDefault:
			v.Default = string(r.Blob)
			return nil
		}
	case *symbols.SpecializationInfo:
		switch r.ID {
		case recPrimary:
			id, err := symbolID(r.Array)
			if err != nil {
				return err
			}
			v.Primary = id
			return nil
		case recSpecMember:
			if len(r.Array) != 2*symbols.SymbolIDSize {
				return fmt.Errorf("%w: specialized member of %d bytes", ErrMalformed, len(r.Array))
			}
			primary, _ := symbolID(r.Array[:symbols.SymbolIDSize])
			specialized, _ := symbolID(r.Array[symbols.SymbolIDSize:])
			v.Members = append(v.Members, symbols.SpecializedMember{Primary: primary, Specialized: specialized})
			return nil
		}
	}
	return undeclared(r)
}

func (b *infoBuilder) enter(block uint8) (builder, error) {
	base := b.info.Base()
	switch block {
	case blockIdentity:
		return &identityBuilder{base: base}, nil
	case blockDoc:
		if base.Doc == nil {
			base.Doc = &symbols.DocComment{}
		}
		return &docBuilder{doc: base.Doc}, nil
	case blockLocation:
		if si := symbols.Locations(b.info); si != nil {
			return &locationBuilder{si: si}, nil
		}
		return nil, unexpectedBlock(block)
	}

	switch v := b.info.(type) {
	case *symbols.RecordInfo:
		switch block {
		case blockBase:
			return &baseBuilder{done: func(x symbols.BaseInfo) { v.Bases = append(v.Bases, x) }}, nil
		case blockTemplate:
			return newTemplateBuilder(&v.Template), nil
		}
	case *symbols.FunctionInfo:
		switch block {
		case blockType:
			return &typeBuilder{t: &v.ReturnType}, nil
		case blockParam:
			return &paramBuilder{done: func(p symbols.Param) { v.Params = append(v.Params, p) }}, nil
		case blockTemplate:
			return newTemplateBuilder(&v.Template), nil
		}
	case *symbols.EnumInfo:
		switch block {
		case blockType:
			v.Underlying = &symbols.TypeInfo{}
			return &typeBuilder{t: v.Underlying}, nil
		case blockEnumValue:
			return &enumValueBuilder{done: func(ev symbols.EnumValue) { v.Values = append(v.Values, ev) }}, nil
		}
	case *symbols.TypedefInfo:
		switch block {
		case blockType:
			return &typeBuilder{t: &v.Underlying}, nil
		case blockTemplate:
			return newTemplateBuilder(&v.Template), nil
		}
	case *symbols.VariableInfo:
		switch block {
		case blockType:
			return &typeBuilder{t: &v.Type}, nil
		case blockTemplate:
			return newTemplateBuilder(&v.Template), nil
		}
	case *symbols.FieldInfo:
		if block == blockType {
			return &typeBuilder{t: &v.Type}, nil
		}
	case *symbols.SpecializationInfo:
		if block == blockTArg {
			return &targBuilder{done: func(a symbols.TArg) { v.Args = append(v.Args, a) }}, nil
		}
	}
	return nil, unexpectedBlock(block)
}

func addMember(m *symbols.Members, r bs.Record) error {
	list := m.List(symbols.MemberCategory(r.Fields[0]))
	if list == nil {
		return fmt.Errorf("%w: member category %d", ErrMalformed, r.Fields[0])
	}
	id, err := symbolID(r.Array)
	if err != nil {
		return err
	}
	*list = append(*list, symbols.MemberRef{ID: id, Access: symbols.Access(r.Fields[1])})
	return nil
}

type identityBuilder struct {
	leaf
	base *symbols.InfoBase
}

func (b *identityBuilder) record(r bs.Record) error {
	switch r.ID {
	case recID:
		id, err := symbolID(r.Array)
		if err != nil {
			return err
		}
		b.base.ID = id
	case recName:
		b.base.Name = string(r.Blob)
	case recAccess:
		b.base.Access = symbols.Access(r.Fields[0])
	case recParent:
		if len(r.Blob) < symbols.SymbolIDSize {
			return fmt.Errorf("%w: parent reference of %d bytes", ErrMalformed, len(r.Blob))
		}
		id, _ := symbols.SymbolIDFromBytes(r.Blob[:symbols.SymbolIDSize])
		b.base.Parents = append(b.base.Parents, symbols.Reference{
			ID:   id,
			Name: string(r.Blob[symbols.SymbolIDSize:]),
			Kind: symbols.Kind(r.Fields[0]),
		})
	default:
		return undeclared(r)
	}
	return nil
}

type locationBuilder struct {
	leaf
	si *symbols.SymbolInfo
}

func (b *locationBuilder) record(r bs.Record) error {
	if r.ID != recDefLoc && r.ID != recDeclLoc {
		return undeclared(r)
	}
	if r.Fields[0] > math.MaxUint32 {
		return fmt.Errorf("%w: line %d", ErrMalformed, r.Fields[0])
	}
	loc := symbols.Location{Line: uint32(r.Fields[0]), Documented: r.Fields[1] == 1, File: string(r.Blob)}
	if r.ID == recDefLoc {
		b.si.DefLoc = &loc
	} else {
		b.si.Loc = append(b.si.Loc, loc)
	}
	return nil
}

type docBuilder struct {
	doc *symbols.DocComment
}

func (b *docBuilder) record(r bs.Record) error { return undeclared(r) }
func (b *docBuilder) exit() error              { return nil }

func (b *docBuilder) enter(block uint8) (builder, error) {
	if block != blockDocNode {
		return nil, unexpectedBlock(block)
	}
	return &nodeBuilder{done: func(n symbols.Block) { b.doc.Blocks = append(b.doc.Blocks, n) }}, nil
}

type nodeBuilder struct {
	leaf
	node symbols.Block
	done func(symbols.Block)
}

func (b *nodeBuilder) exit() error {
	b.done(b.node)
	return nil
}

func (b *nodeBuilder) record(r bs.Record) error {
	switch r.ID {
	case recNodeHeader:
		b.node.Kind = symbols.BlockKind(r.Fields[0])
		b.node.Admonish = symbols.Admonish(r.Fields[1])
		b.node.Direction = symbols.ParamDirection(r.Fields[2])
		b.node.Level = uint8(r.Fields[3])
	case recNodeName:
		b.node.Name = string(r.Blob)
	case recText:
		b.node.Children = append(b.node.Children, symbols.Inline{
			Style: symbols.Style(r.Fields[0]),
			Text:  string(r.Blob),
		})
	case recStyled:
		b.node.Children = append(b.node.Children, symbols.Inline{
			Kind:  symbols.InlineStyled,
			Style: symbols.Style(r.Fields[0]),
			Text:  string(r.Blob),
		})
	case recLink:
		split := r.Fields[0]
		if split > uint64(len(r.Blob)) {
			return fmt.Errorf("%w: link href length %d exceeds %d", ErrMalformed, split, len(r.Blob))
		}
		b.node.Children = append(b.node.Children, symbols.Inline{
			Kind:  symbols.InlineLink,
			Style: symbols.Style(r.Fields[1]),
			Href:  string(r.Blob[:split]),
			Text:  string(r.Blob[split:]),
		})
	default:
		return undeclared(r)
	}
	return nil
}

type typeBuilder struct {
	leaf
	t *symbols.TypeInfo
}

func (b *typeBuilder) record(r bs.Record) error {
	switch r.ID {
	case recTypeID:
		id, err := symbolID(r.Array)
		if err != nil {
			return err
		}
		b.t.ID = id
	case recTypeName:
		b.t.Name = string(r.Blob)
	default:
		return undeclared(r)
	}
	return nil
}

type baseBuilder struct {
	base symbols.BaseInfo
	done func(symbols.BaseInfo)
}

func (b *baseBuilder) record(r bs.Record) error {
	if r.ID != recItemBits {
		return undeclared(r)
	}
	b.base.Access = symbols.Access(r.Fields[0])
	b.base.Virtual = r.Fields[1] == 1
	return nil
}

func (b *baseBuilder) enter(block uint8) (builder, error) {
	if block != blockType {
		return nil, unexpectedBlock(block)
	}
	return &typeBuilder{t: &b.base.Type}, nil
}

func (b *baseBuilder) exit() error {
	b.done(b.base)
	return nil
}

type paramBuilder struct {
	param symbols.Param
	done  func(symbols.Param)
}

func (b *paramBuilder) record(r bs.Record) error {
	switch r.ID {
	case recItemName:
		b.param.Name = string(r.Blob)
	case recItemValue:
		b.param.Default = string(r.Blob)
	default:
		return undeclared(r)
	}
	return nil
}

func (b *paramBuilder) enter(block uint8) (builder, error) {
	if block != blockType {
		return nil, unexpectedBlock(block)
	}
	return &typeBuilder{t: &b.param.Type}, nil
}

func (b *paramBuilder) exit() error {
	b.done(b.param)
	return nil
}

type enumValueBuilder struct {
	leaf
	value symbols.EnumValue
	done  func(symbols.EnumValue)
}

func (b *enumValueBuilder) record(r bs.Record) error {
	switch r.ID {
	case recItemName:
		b.value.Name = string(r.Blob)
	case recItemValue:
		b.value.Value = string(r.Blob)
	case recItemExpr:
		b.value.Expr = string(r.Blob)
	default:
		return undeclared(r)
	}
	return nil
}

func (b *enumValueBuilder) exit() error {
	b.done(b.value)
	return nil
}

type templateBuilder struct {
	t *symbols.TemplateInfo
}

func newTemplateBuilder(dst **symbols.TemplateInfo) *templateBuilder {
	*dst = &symbols.TemplateInfo{}
	return &templateBuilder{t: *dst}
}

func (b *templateBuilder) record(r bs.Record) error {
	if r.ID != recItemValue {
		return undeclared(r)
	}
	id, err := symbolID(r.Array)
	if err != nil {
		return err
	}
	b.t.Primary = id
	return nil
}

func (b *templateBuilder) enter(block uint8) (builder, error) {
	switch block {
	case blockTParam:
		return &tparamBuilder{done: func(p symbols.TParam) { b.t.Params = append(b.t.Params, p) }}, nil
	case blockTArg:
		return &targBuilder{done: func(a symbols.TArg) { b.t.Args = append(b.t.Args, a) }}, nil
	}
	return nil, unexpectedBlock(block)
}

func (b *templateBuilder) exit() error { return nil }

type tparamBuilder struct {
	leaf
	param symbols.TParam
	done  func(symbols.TParam)
}

func (b *tparamBuilder) record(r bs.Record) error {
	switch r.ID {
	case recItemBits:
		b.param.Kind = symbols.TParamKind(r.Fields[0])
		b.param.Pack = r.Fields[1] == 1
	case recItemName:
		b.param.Name = string(r.Blob)
	case recItemType:
		b.param.Type = string(r.Blob)
	case recItemValue:
		b.param.Default = string(r.Blob)
	default:
		return undeclared(r)
	}
	return nil
}

func (b *tparamBuilder) exit() error {
	b.done(b.param)
	return nil
}

type targBuilder struct {
	leaf
	arg  symbols.TArg
	done func(symbols.TArg)
}

func (b *targBuilder) record(r bs.Record) error {
	if r.ID != recItemValue {
		return undeclared(r)
	}
	b.arg.Value = string(r.Blob)
	return nil
}

func (b *targBuilder) exit() error {
	b.done(b.arg)
	return nil
}
