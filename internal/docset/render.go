package docset

import (
	"fmt"
	"strings"

	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// resolve finds symbols by hex SymbolID or by fully qualified name.
func resolve(c *corpus.Corpus, ref string) []symbols.Info {
	ref = strings.TrimSpace(ref)
	if len(ref) == 2*symbols.SymbolIDSize {
		if id, err := symbols.ParseSymbolID(ref); err == nil {
			if info, ok := c.Get(id); ok {
				return []symbols.Info{info}
			}
		}
	}
	return c.Lookup(ref)
}

// displayName is the qualified name, or a placeholder for the global namespace.
func displayName(c *corpus.Corpus, id symbols.SymbolID) string {
	if id == symbols.GlobalNamespaceID {
		return "(global namespace)"
	}
	if name := c.QualifiedName(id); name != "" {
		return name
	}
	return id.String()
}

// typeName prefers the qualified name of a resolved type over its spelling.
func typeName(c *corpus.Corpus, t symbols.TypeInfo) string {
	if !t.ID.IsZero() {
		if name := c.QualifiedName(t.ID); name != "" {
			return name
		}
	}
	if t.Name != "" {
		return t.Name
	}
	return "?"
}

// renderSymbol formats one canonical symbol as markdown.
func renderSymbol(c *corpus.Corpus, info symbols.Info) string {
	base := info.Base()
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s `%s`\n", info.Kind(), displayName(c, base.ID))
	fmt.Fprintf(&sb, "**ID**: `%s`\n", base.ID)
	if base.Access != symbols.AccessNone {
		fmt.Fprintf(&sb, "**Access**: %s\n", base.Access)
	}
	if loc := symbols.Locations(info); loc != nil {
		if loc.DefLoc != nil {
			fmt.Fprintf(&sb, "**Defined at**: %s:%d\n", loc.DefLoc.File, loc.DefLoc.Line)
		}
		for _, l := range loc.Loc {
			fmt.Fprintf(&sb, "**Declared at**: %s:%d\n", l.File, l.Line)
		}
	}

	switch v := info.(type) {
	case *symbols.FunctionInfo:
		fmt.Fprintf(&sb, "\n```cpp\n%s\n```\n", signature(c, v))
	case *symbols.RecordInfo:
		for _, b := range v.Bases {
			virtual := ""
			if b.Virtual {
				virtual = "virtual "
			}
			fmt.Fprintf(&sb, "**Base**: %s%s %s\n", virtual, b.Access, typeName(c, b.Type))
		}
		fmt.Fprintf(&sb, "**Members**: %d\n", v.Members.Len())
	case *symbols.NamespaceInfo:
		fmt.Fprintf(&sb, "**Members**: %d\n", v.Children.Len())
	case *symbols.EnumInfo:
		if len(v.Values) > 0 {
			sb.WriteString("\n| Enumerator | Value |\n|---|---|\n")
			for _, e := range v.Values {
				value := e.Value
				if value == "" {
					value = e.Expr
				}
				fmt.Fprintf(&sb, "| %s | %s |\n", e.Name, value)
			}
		}
	case *symbols.TypedefInfo:
		fmt.Fprintf(&sb, "**Aliases**: %s\n", typeName(c, v.Underlying))
	case *symbols.VariableInfo:
		fmt.Fprintf(&sb, "**Type**: %s\n", typeName(c, v.Type))
	case *symbols.FieldInfo:
		fmt.Fprintf(&sb, "**Type**: %s\n", typeName(c, v.Type))
	case *symbols.SpecializationInfo:
		fmt.Fprintf(&sb, "**Specializes**: %s\n", displayName(c, v.Primary))
	}

	if base.Doc != nil {
		sb.WriteString("\n")
		for i := range base.Doc.Blocks {
			renderBlock(&sb, &base.Doc.Blocks[i])
		}
	}
	return sb.String()
}

func signature(c *corpus.Corpus, fn *symbols.FunctionInfo) string {
	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		s := typeName(c, p.Type)
		if p.Name != "" {
			s += " " + p.Name
		}
		if p.Default != "" {
			s += " = " + p.Default
		}
		params = append(params, s)
	}
	if fn.Flags&symbols.FunctionVariadic != 0 {
		params = append(params, "...")
	}

	var sb strings.Builder
	if fn.Class == symbols.FunctionNormal || fn.Class == symbols.FunctionConversion {
		if !fn.ReturnType.IsEmpty() {
			sb.WriteString(typeName(c, fn.ReturnType) + " ")
		}
	}
	fmt.Fprintf(&sb, "%s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.Flags&symbols.FunctionConst != 0 {
		sb.WriteString(" const")
	}
	if fn.Flags&symbols.FunctionNoexcept != 0 {
		sb.WriteString(" noexcept")
	}
	return sb.String()
}

func renderBlock(sb *strings.Builder, b *symbols.Block) {
	switch b.Kind {
	case symbols.BlockBrief, symbols.BlockParagraph:
		sb.WriteString(inlineText(b.Children) + "\n\n")
	case symbols.BlockHeading:
		level := int(b.Level)
		if level < 1 {
			level = 1
		}
		fmt.Fprintf(sb, "%s %s\n\n", strings.Repeat("#", min(level+2, 6)), inlineText(b.Children))
	case symbols.BlockCode:
		fmt.Fprintf(sb, "```cpp\n%s\n```\n\n", b.Text())
	case symbols.BlockReturns:
		fmt.Fprintf(sb, "**Returns**: %s\n\n", inlineText(b.Children))
	case symbols.BlockParam, symbols.BlockTParam:
		fmt.Fprintf(sb, "- `%s`: %s\n", b.Name, inlineText(b.Children))
	case symbols.BlockAdmonition:
		fmt.Fprintf(sb, "> %s\n\n", inlineText(b.Children))
	}
}

func inlineText(in []symbols.Inline) string {
	var sb strings.Builder
	for _, n := range in {
		switch n.Kind {
		case symbols.InlineStyled:
			switch n.Style {
			case symbols.StyleMono:
				sb.WriteString("`" + n.Text + "`")
			case symbols.StyleBold:
				sb.WriteString("**" + n.Text + "**")
			case symbols.StyleItalic:
				sb.WriteString("_" + n.Text + "_")
			default:
				sb.WriteString(n.Text)
			}
		case symbols.InlineLink:
			fmt.Fprintf(&sb, "[%s](%s)", n.Text, n.Href)
		default:
			sb.WriteString(n.Text)
		}
	}
	return sb.String()
}
