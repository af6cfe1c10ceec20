package domain

// SymbolDocument is the searchable projection of one canonical symbol.
// It is the document stored in the Bleve index.
type SymbolDocument struct {
	// ID is the lower-case hex SymbolID. It doubles as the Bleve document ID.
	ID string `json:"id"`

	// Name is the unqualified name, e.g. "vector".
	Name string `json:"name"`

	// QualifiedName joins the enclosing scopes with "::", e.g. "std::vector".
	QualifiedName string `json:"qualified_name"`

	// Kind is the symbol kind, e.g. "record" or "function".
	Kind string `json:"kind"`

	// Brief is the one-line summary of the documentation, if any.
	Brief string `json:"brief,omitempty"`

	// Doc is the plain text of every documentation block.
	Doc string `json:"doc,omitempty"`

	// File is where the symbol is defined, or first declared.
	File string `json:"file,omitempty"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	SymbolFieldID            = "id"
	SymbolFieldName          = "name"
	SymbolFieldQualifiedName = "qualified_name"
	SymbolFieldKind          = "kind"
	SymbolFieldBrief         = "brief"
	SymbolFieldDoc           = "doc"
	SymbolFieldFile          = "file"
)
