package codec

import (
	"errors"
	"fmt"

	bs "github.com/sha1n/relic-corpus/internal/bitstream"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

var errNilInfo = errors.New("nil info")

// Encode serializes one Info into a self-contained blob.
func Encode(info symbols.Info) ([]byte, error) {
	return encodeVersion([]symbols.Info{info}, Version)
}

// EncodeAll serializes several Infos into one blob with one top-level block each.
func EncodeAll(infos []symbols.Info) ([]byte, error) {
	return encodeVersion(infos, Version)
}

func encodeVersion(infos []symbols.Info, version uint32) ([]byte, error) {
	e := encoder{w: bs.NewWriter(schema, Signature, version)}
	for _, info := range infos {
		if info == nil {
			return nil, errNilInfo
		}
		e.info(info)
	}
	data, err := e.w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

type encoder struct {
	w *bs.Writer
}

func (e *encoder) block(id uint8, body func()) {
	e.w.EnterBlock(id)
	body()
	e.w.ExitBlock()
}

func (e *encoder) rec(id uint8, fields ...uint64) {
	e.w.WriteRecord(bs.Record{ID: id, Fields: fields})
}

func (e *encoder) blob(id uint8, b []byte, fields ...uint64) {
	e.w.WriteRecord(bs.Record{ID: id, Fields: fields, Blob: b})
}

func (e *encoder) str(id uint8, s string) {
	if s != "" {
		e.blob(id, []byte(s))
	}
}

func (e *encoder) ids(id uint8, sids ...symbols.SymbolID) {
	arr := make([]uint64, 0, len(sids)*symbols.SymbolIDSize)
	for _, sid := range sids {
		for _, b := range sid {
			arr = append(arr, uint64(b))
		}
	}
	e.w.WriteRecord(bs.Record{ID: id, Array: arr})
}

func (e *encoder) idFields(id uint8, sid symbols.SymbolID, fields ...uint64) {
	arr := make([]uint64, symbols.SymbolIDSize)
	for i, b := range sid {
		arr[i] = uint64(b)
	}
	e.w.WriteRecord(bs.Record{ID: id, Fields: fields, Array: arr})
}

func (e *encoder) info(info symbols.Info) {
	switch v := info.(type) {
	case *symbols.NamespaceInfo:
		e.block(blockNamespace, func() {
			e.identity(&v.InfoBase)
			e.doc(v.Doc)
			if v.Flags != 0 {
				e.rec(recBits, uint64(v.Flags))
			}
			e.members(&v.Children)
		})
	case *symbols.RecordInfo:
		e.block(blockRecord, func() {
			e.symbol(&v.SymbolInfo)
			e.rec(recBits, uint64(v.KeyKind), b2u(v.IsTypedef), uint64(v.Flags))
			for _, b := range v.Bases {
				e.block(blockBase, func() {
					e.rec(recItemBits, uint64(b.Access), b2u(b.Virtual))
					e.typeRef(b.Type)
				})
			}
			e.members(&v.Members)
			for _, f := range v.Friends {
				e.ids(recFriend, f)
			}
			e.template(v.Template)
		})
	case *symbols.FunctionInfo:
		e.block(blockFunction, func() {
			e.symbol(&v.SymbolInfo)
			e.rec(recBits, uint64(v.Class), uint64(v.Flags))
			e.typeRef(v.ReturnType)
			for _, p := range v.Params {
				e.block(blockParam, func() {
					e.str(recItemName, p.Name)
					e.str(recItemValue, p.Default)
					e.typeRef(p.Type)
				})
			}
			e.template(v.Template)
		})
	case *symbols.EnumInfo:
		e.block(blockEnum, func() {
			e.symbol(&v.SymbolInfo)
			if v.Scoped {
				e.rec(recBits, 1)
			}
			if v.Underlying != nil {
				e.block(blockType, func() { e.typeFields(*v.Underlying) })
			}
			for _, ev := range v.Values {
				e.block(blockEnumValue, func() {
					e.str(recItemName, ev.Name)
					e.str(recItemValue, ev.Value)
					e.str(recItemExpr, ev.Expr)
				})
			}
		})
	case *symbols.TypedefInfo:
		e.block(blockTypedef, func() {
			e.symbol(&v.SymbolInfo)
			if v.IsUsing {
				e.rec(recBits, 1)
			}
			e.typeRef(v.Underlying)
			e.template(v.Template)
		})
	case *symbols.VariableInfo:
		e.block(blockVariable, func() {
			e.symbol(&v.SymbolInfo)
			if v.Flags != 0 {
				e.rec(recBits, uint64(v.Flags))
			}
			e.typeRef(v.Type)
			e.template(v.Template)
		})
	case *symbols.FieldInfo:
		e.block(blockField, func() {
			e.symbol(&v.SymbolInfo)
			if v.Flags != 0 {
				e.rec(recBits, uint64(v.Flags))
			}
			e.str(recDefault, v.Default)
			e.typeRef(v.Type)
		})
	case *symbols.SpecializationInfo:
		e.block(blockSpecialization, func() {
			e.identity(&v.InfoBase)
			e.doc(v.Doc)
			e.ids(recPrimary, v.Primary)
			for _, m := range v.Members {
				e.ids(recSpecMember, m.Primary, m.Specialized)
			}
			for _, a := range v.Args {
				e.block(blockTArg, func() { e.str(recItemValue, a.Value) })
			}
		})
	}
}

func (e *encoder) symbol(si *symbols.SymbolInfo) {
	e.identity(&si.InfoBase)
	if si.DefLoc != nil || len(si.Loc) > 0 {
		e.block(blockLocation, func() {
			if si.DefLoc != nil {
				e.location(recDefLoc, *si.DefLoc)
			}
			for _, l := range si.Loc {
				e.location(recDeclLoc, l)
			}
		})
	}
	e.doc(si.Doc)
}

func (e *encoder) identity(b *symbols.InfoBase) {
	e.block(blockIdentity, func() {
		e.ids(recID, b.ID)
		e.str(recName, b.Name)
		if b.Access != symbols.AccessNone {
			e.rec(recAccess, uint64(b.Access))
		}
		for _, p := range b.Parents {
			payload := append(append(make([]byte, 0, symbols.SymbolIDSize+len(p.Name)), p.ID[:]...), p.Name...)
			e.blob(recParent, payload, uint64(p.Kind))
		}
	})
}

func (e *encoder) location(id uint8, l symbols.Location) {
	e.blob(id, []byte(l.File), uint64(l.Line), b2u(l.Documented))
}

func (e *encoder) doc(d *symbols.DocComment) {
	if d == nil {
		return
	}
	e.block(blockDoc, func() {
		for i := range d.Blocks {
			b := &d.Blocks[i]
			e.block(blockDocNode, func() {
				e.rec(recNodeHeader, uint64(b.Kind), uint64(b.Admonish), uint64(b.Direction), uint64(b.Level))
				e.str(recNodeName, b.Name)
				for _, in := range b.Children {
					switch in.Kind {
					case symbols.InlineStyled:
						e.blob(recStyled, []byte(in.Text), uint64(in.Style))
					case symbols.InlineLink:
						e.blob(recLink, []byte(in.Href+in.Text), uint64(len(in.Href)), uint64(in.Style))
					default:
						e.blob(recText, []byte(in.Text), uint64(in.Style))
					}
				}
			})
		}
	})
}

func (e *encoder) members(m *symbols.Members) {
	for _, c := range symbols.Categories() {
		for _, ref := range *m.List(c) {
			e.idFields(recMember, ref.ID, uint64(c), uint64(ref.Access))
		}
	}
}

// typeRef emits a type sub-block unless t is empty.
func (e *encoder) typeRef(t symbols.TypeInfo) {
	if t.IsEmpty() {
		return
	}
	e.block(blockType, func() { e.typeFields(t) })
}

func (e *encoder) typeFields(t symbols.TypeInfo) {
	if !t.ID.IsZero() {
		e.ids(recTypeID, t.ID)
	}
	e.str(recTypeName, t.Name)
}

func (e *encoder) template(t *symbols.TemplateInfo) {
	if t == nil {
		return
	}
	e.block(blockTemplate, func() {
		if !t.Primary.IsZero() {
			e.ids(recItemValue, t.Primary)
		}
		for _, p := range t.Params {
			e.block(blockTParam, func() {
				e.rec(recItemBits, uint64(p.Kind), b2u(p.Pack))
				e.str(recItemName, p.Name)
				e.str(recItemType, p.Type)
				e.str(recItemValue, p.Default)
			})
		}
		for _, a := range t.Args {
			e.block(blockTArg, func() { e.str(recItemValue, a.Value) })
		}
	})
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
