// Package symbols defines the partial symbol records reported by the Extractor
// and the identity scheme that ties observations of the same declaration together.
package symbols

// Kind identifies the variant of an Info.
type Kind uint8

// Info kinds. The numeric values are part of the wire format.
const (
	KindNone Kind = iota
	KindNamespace
	KindRecord
	KindFunction
	KindEnum
	KindTypedef
	KindVariable
	KindField
	KindSpecialization
)

var kindNames = [...]string{
	KindNone:           "none",
	KindNamespace:      "namespace",
	KindRecord:         "record",
	KindFunction:       "function",
	KindEnum:           "enum",
	KindTypedef:        "typedef",
	KindVariable:       "variable",
	KindField:          "field",
	KindSpecialization: "specialization",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalYAML renders the kind by name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// ParseKind is the inverse of Kind.String. It returns KindNone for unknown names.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return Kind(k)
		}
	}
	return KindNone
}

// Access is the C++ access specifier of a declaration.
type Access uint8

const (
	AccessNone Access = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "none"
	}
}

// MarshalYAML renders the access specifier by name.
func (a Access) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// Location is a source position of a declaration or definition.
type Location struct {
	Line       uint32 `yaml:"line"`
	File       string `yaml:"file"`
	Documented bool   `yaml:"documented,omitempty"` // file is under the documented root
}

// Reference names an enclosing scope in a parent chain.
type Reference struct {
	ID   SymbolID `yaml:"id"`
	Name string   `yaml:"name,omitempty"`
	Kind Kind     `yaml:"kind"`
}

// InfoBase holds the fields shared by every Info variant.
type InfoBase struct {
	ID     SymbolID `yaml:"id"`
	Name   string   `yaml:"name,omitempty"`
	Access Access   `yaml:"access,omitempty"`

	// Parents is ordered from the innermost enclosing scope outward.
	Parents []Reference `yaml:"parents,omitempty"`

	Doc *DocComment `yaml:"doc,omitempty"`
}

// Parent returns the innermost enclosing scope. The global namespace has none.
func (b *InfoBase) Parent() (Reference, bool) {
	if len(b.Parents) == 0 {
		return Reference{}, false
	}
	return b.Parents[0], true
}

// IsRecordMember reports whether the innermost enclosing scope is a record.
func (b *InfoBase) IsRecordMember() bool {
	p, ok := b.Parent()
	return ok && p.Kind == KindRecord
}

// SymbolInfo adds source locations to InfoBase.
type SymbolInfo struct {
	InfoBase `yaml:",inline"`

	DefLoc *Location  `yaml:"def_loc,omitempty"`
	Loc    []Location `yaml:"loc,omitempty"`
}

// Info is one observation of one symbol. The set of implementations is closed:
// *NamespaceInfo, *RecordInfo, *FunctionInfo, *EnumInfo, *TypedefInfo,
// *VariableInfo, *FieldInfo and *SpecializationInfo.
type Info interface {
	Kind() Kind
	Base() *InfoBase
	isInfo()
}

// Locations returns the source locations of symbol-bearing kinds, or nil for namespaces.
func Locations(info Info) *SymbolInfo {
	switch v := info.(type) {
	case *RecordInfo:
		return &v.SymbolInfo
	case *FunctionInfo:
		return &v.SymbolInfo
	case *EnumInfo:
		return &v.SymbolInfo
	case *TypedefInfo:
		return &v.SymbolInfo
	case *VariableInfo:
		return &v.SymbolInfo
	case *FieldInfo:
		return &v.SymbolInfo
	default:
		return nil
	}
}

// New returns an empty Info of the given kind carrying id, or nil for KindNone.
func New(kind Kind, id SymbolID) Info {
	base := InfoBase{ID: id}
	switch kind {
	case KindNamespace:
		return &NamespaceInfo{InfoBase: base}
	case KindRecord:
		return &RecordInfo{SymbolInfo: SymbolInfo{InfoBase: base}}
	case KindFunction:
		return &FunctionInfo{SymbolInfo: SymbolInfo{InfoBase: base}}
	case KindEnum:
		return &EnumInfo{SymbolInfo: SymbolInfo{InfoBase: base}}
	case KindTypedef:
		return &TypedefInfo{SymbolInfo: SymbolInfo{InfoBase: base}}
	case KindVariable:
		return &VariableInfo{SymbolInfo: SymbolInfo{InfoBase: base}}
	case KindField:
		return &FieldInfo{SymbolInfo: SymbolInfo{InfoBase: base}}
	case KindSpecialization:
		return &SpecializationInfo{InfoBase: base}
	default:
		return nil
	}
}
