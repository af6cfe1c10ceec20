package symbols

// Base returns b itself. It is promoted to every Info variant.
func (b *InfoBase) Base() *InfoBase { return b }

// MemberRef is a child reference together with the access it was declared with.
type MemberRef struct {
	ID     SymbolID `yaml:"id"`
	Access Access   `yaml:"access,omitempty"`
}

// Members lists the children of a scope by category.
// Namespaces never have fields; records never have namespaces.
type Members struct {
	Namespaces      []MemberRef `yaml:"namespaces,omitempty"`
	Records         []MemberRef `yaml:"records,omitempty"`
	Functions       []MemberRef `yaml:"functions,omitempty"`
	Typedefs        []MemberRef `yaml:"typedefs,omitempty"`
	Enums           []MemberRef `yaml:"enums,omitempty"`
	Fields          []MemberRef `yaml:"fields,omitempty"`
	Variables       []MemberRef `yaml:"variables,omitempty"`
	Specializations []MemberRef `yaml:"specializations,omitempty"`
}

// MemberCategory indexes one list of Members. Values are part of the wire format.
type MemberCategory uint8

const (
	MemberNamespace MemberCategory = iota
	MemberRecord
	MemberFunction
	MemberTypedef
	MemberEnum
	MemberField
	MemberVariable
	MemberSpecialization
	memberCategoryCount
)

// Categories returns every member category in traversal order.
func Categories() []MemberCategory {
	cats := make([]MemberCategory, 0, memberCategoryCount)
	for c := MemberCategory(0); c < memberCategoryCount; c++ {
		cats = append(cats, c)
	}
	return cats
}

// List returns a pointer to the list for category c, or nil when c is out of range.
func (m *Members) List(c MemberCategory) *[]MemberRef {
	switch c {
	case MemberNamespace:
		return &m.Namespaces
	case MemberRecord:
		return &m.Records
	case MemberFunction:
		return &m.Functions
	case MemberTypedef:
		return &m.Typedefs
	case MemberEnum:
		return &m.Enums
	case MemberField:
		return &m.Fields
	case MemberVariable:
		return &m.Variables
	case MemberSpecialization:
		return &m.Specializations
	default:
		return nil
	}
}

// Len returns the total number of child references.
func (m *Members) Len() int {
	n := 0
	for _, c := range Categories() {
		n += len(*m.List(c))
	}
	return n
}

// TypeInfo refers to a type either by resolved symbol or by its spelled name.
type TypeInfo struct {
	ID   SymbolID `yaml:"id,omitempty"`
	Name string   `yaml:"name,omitempty"`
}

// IsEmpty reports whether neither the ID nor the name is set.
func (t TypeInfo) IsEmpty() bool {
	return t.ID.IsZero() && t.Name == ""
}

// IsZero lets yaml omitempty skip empty type references.
func (t TypeInfo) IsZero() bool { return t.IsEmpty() }

// BaseInfo is one entry of a class base-specifier list.
type BaseInfo struct {
	Type    TypeInfo `yaml:"type"`
	Access  Access   `yaml:"access,omitempty"`
	Virtual bool     `yaml:"virtual,omitempty"`
}

// TParamKind distinguishes template parameter forms.
type TParamKind uint8

const (
	TParamType TParamKind = iota
	TParamNonType
	TParamTemplate
)

// TParam is a template parameter.
type TParam struct {
	Kind    TParamKind `yaml:"kind"`
	Name    string     `yaml:"name,omitempty"`
	Type    string     `yaml:"type,omitempty"` // non-type parameters only
	Default string     `yaml:"default,omitempty"`
	Pack    bool       `yaml:"pack,omitempty"`
}

// TArg is a template argument as spelled in source.
type TArg struct {
	Value string `yaml:"value"`
}

// TemplateInfo describes a template head or the arguments of a specialization.
type TemplateInfo struct {
	Params []TParam `yaml:"params,omitempty"`
	Args   []TArg   `yaml:"args,omitempty"`

	// Primary is set for partial and explicit specializations.
	Primary SymbolID `yaml:"primary,omitempty"`
}

// IsEmpty reports whether the template carries no information.
func (t *TemplateInfo) IsEmpty() bool {
	return t == nil || (len(t.Params) == 0 && len(t.Args) == 0 && t.Primary.IsZero())
}

// NamespaceFlags are traits of a namespace.
type NamespaceFlags uint32

const (
	NamespaceInline NamespaceFlags = 1 << iota
	NamespaceAnonymous
)

// NamespaceInfo is a namespace observation.
type NamespaceInfo struct {
	InfoBase `yaml:",inline"`

	Flags    NamespaceFlags `yaml:"flags,omitempty"`
	Children Members        `yaml:"children,omitempty"`
}

func (*NamespaceInfo) Kind() Kind { return KindNamespace }
func (*NamespaceInfo) isInfo()    {}

// RecordKeyKind is the class-key a record was declared with.
type RecordKeyKind uint8

const (
	KeyStruct RecordKeyKind = iota
	KeyClass
	KeyUnion
)

// RecordFlags are traits of a class.
type RecordFlags uint32

const (
	RecordFinal RecordFlags = 1 << iota
	RecordFinalDestructor
	RecordAbstract
	RecordPolymorphic
	RecordEmpty
	RecordTrivial
	RecordAggregate
)

// RecordInfo is a class, struct or union observation.
type RecordInfo struct {
	SymbolInfo `yaml:",inline"`

	KeyKind   RecordKeyKind `yaml:"key_kind,omitempty"`
	IsTypedef bool          `yaml:"is_typedef,omitempty"`
	Flags     RecordFlags   `yaml:"flags,omitempty"`
	Bases     []BaseInfo    `yaml:"bases,omitempty"`
	Members   Members       `yaml:"members,omitempty"`
	Friends   []SymbolID    `yaml:"friends,omitempty"`
	Template  *TemplateInfo `yaml:"template,omitempty"`
}

func (*RecordInfo) Kind() Kind { return KindRecord }
func (*RecordInfo) isInfo()    {}

// FunctionClass distinguishes special member functions.
type FunctionClass uint8

const (
	FunctionNormal FunctionClass = iota
	FunctionConstructor
	FunctionDestructor
	FunctionConversion
)

// FunctionFlags are traits of a function.
type FunctionFlags uint32

const (
	FunctionVariadic FunctionFlags = 1 << iota
	FunctionDefaulted
	FunctionDeleted
	FunctionConst
	FunctionVolatile
	FunctionVirtual
	FunctionPure
	FunctionOverride
	FunctionFinal
	FunctionExplicit
	FunctionStatic
	FunctionInline
	FunctionConstexpr
	FunctionConsteval
	FunctionNoexcept
	FunctionNodiscard
)

// Param is a function parameter.
type Param struct {
	Type    TypeInfo `yaml:"type"`
	Name    string   `yaml:"name,omitempty"`
	Default string   `yaml:"default,omitempty"`
}

// FunctionInfo is a function or member function observation.
type FunctionInfo struct {
	SymbolInfo `yaml:",inline"`

	Class      FunctionClass `yaml:"class,omitempty"`
	Flags      FunctionFlags `yaml:"flags,omitempty"`
	ReturnType TypeInfo      `yaml:"return_type,omitempty"`
	Params     []Param       `yaml:"params,omitempty"`
	Template   *TemplateInfo `yaml:"template,omitempty"`
}

func (*FunctionInfo) Kind() Kind { return KindFunction }
func (*FunctionInfo) isInfo()    {}

// EnumValue is one enumerator.
type EnumValue struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"` // evaluated literal
	Expr  string `yaml:"expr,omitempty"`  // initializer as written
}

// EnumInfo is an enumeration observation.
type EnumInfo struct {
	SymbolInfo `yaml:",inline"`

	Scoped     bool        `yaml:"scoped,omitempty"`
	Underlying *TypeInfo   `yaml:"underlying,omitempty"`
	Values     []EnumValue `yaml:"values,omitempty"`
}

func (*EnumInfo) Kind() Kind { return KindEnum }
func (*EnumInfo) isInfo()    {}

// TypedefInfo is a typedef or alias-declaration observation.
type TypedefInfo struct {
	SymbolInfo `yaml:",inline"`

	Underlying TypeInfo      `yaml:"underlying,omitempty"`
	IsUsing    bool          `yaml:"is_using,omitempty"`
	Template   *TemplateInfo `yaml:"template,omitempty"`
}

func (*TypedefInfo) Kind() Kind { return KindTypedef }
func (*TypedefInfo) isInfo()    {}

// VariableFlags are storage traits of a variable.
type VariableFlags uint32

const (
	VariableStatic VariableFlags = 1 << iota
	VariableExtern
	VariableThreadLocal
	VariableConstexpr
	VariableConstinit
	VariableInline
)

// VariableInfo is a namespace-scope or static member variable observation.
type VariableInfo struct {
	SymbolInfo `yaml:",inline"`

	Type     TypeInfo      `yaml:"type,omitempty"`
	Flags    VariableFlags `yaml:"flags,omitempty"`
	Template *TemplateInfo `yaml:"template,omitempty"`
}

func (*VariableInfo) Kind() Kind { return KindVariable }
func (*VariableInfo) isInfo()    {}

// FieldFlags are traits of a non-static data member.
type FieldFlags uint32

const (
	FieldMutable FieldFlags = 1 << iota
	FieldBitfield
	FieldNoUniqueAddress
	FieldMaybeUnused
	FieldDeprecated
)

// FieldInfo is a non-static data member observation.
type FieldInfo struct {
	SymbolInfo `yaml:",inline"`

	Type    TypeInfo   `yaml:"type,omitempty"`
	Default string     `yaml:"default,omitempty"`
	Flags   FieldFlags `yaml:"flags,omitempty"`
}

func (*FieldInfo) Kind() Kind { return KindField }
func (*FieldInfo) isInfo()    {}

// SpecializedMember maps a member of the primary template to its specialization.
type SpecializedMember struct {
	Primary     SymbolID `yaml:"primary"`
	Specialized SymbolID `yaml:"specialized"`
}

// SpecializationInfo is an explicit specialization of a class template's members.
type SpecializationInfo struct {
	InfoBase `yaml:",inline"`

	Primary SymbolID            `yaml:"primary"`
	Args    []TArg              `yaml:"args,omitempty"`
	Members []SpecializedMember `yaml:"members,omitempty"`
}

func (*SpecializationInfo) Kind() Kind { return KindSpecialization }
func (*SpecializationInfo) isInfo()    {}
