package symbols

import "strings"

// BlockKind identifies a top-level documentation block.
type BlockKind uint8

const (
	BlockParagraph BlockKind = iota
	BlockBrief
	BlockReturns
	BlockAdmonition
	BlockCode
	BlockParam
	BlockTParam
	BlockHeading
	blockKindCount
)

var blockKindNames = [...]string{"paragraph", "brief", "returns", "admonition", "code", "param", "tparam", "heading"}

func (k BlockKind) String() string {
	if k < blockKindCount {
		return blockKindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is a known block kind.
func (k BlockKind) Valid() bool { return k < blockKindCount }

// MarshalYAML renders the block kind by name.
func (k BlockKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Admonish is the flavor of an admonition block.
type Admonish uint8

const (
	AdmonishNone Admonish = iota
	AdmonishNote
	AdmonishTip
	AdmonishImportant
	AdmonishCaution
	AdmonishWarning
)

// ParamDirection is the documented direction of a function parameter.
type ParamDirection uint8

const (
	DirectionNone ParamDirection = iota
	DirectionIn
	DirectionOut
	DirectionInOut
)

// InlineKind identifies a leaf of the documentation tree.
type InlineKind uint8

const (
	InlineText InlineKind = iota
	InlineStyled
	InlineLink
)

// Style is the emphasis of a styled inline.
type Style uint8

const (
	StyleNone Style = iota
	StyleMono
	StyleBold
	StyleItalic
)

// Inline is a run of text inside a block.
type Inline struct {
	Kind  InlineKind `yaml:"kind,omitempty"`
	Style Style      `yaml:"style,omitempty"`
	Text  string     `yaml:"text"`
	Href  string     `yaml:"href,omitempty"`
}

// Block is one top-level node of a documentation comment.
type Block struct {
	Kind      BlockKind      `yaml:"kind"`
	Admonish  Admonish       `yaml:"admonish,omitempty"`
	Name      string         `yaml:"name,omitempty"` // param and tparam blocks
	Direction ParamDirection `yaml:"direction,omitempty"`
	Level     uint8          `yaml:"level,omitempty"` // heading blocks
	Children  []Inline       `yaml:"children,omitempty"`
}

// Text concatenates the text of every inline in the block.
func (b *Block) Text() string {
	var sb strings.Builder
	for _, in := range b.Children {
		sb.WriteString(in.Text)
	}
	return sb.String()
}

// DocComment is the parsed documentation attached to a declaration.
type DocComment struct {
	Blocks []Block `yaml:"blocks,omitempty"`
}

// Append adds other's blocks after d's. Duplicates are kept.
func (d *DocComment) Append(other *DocComment) {
	if other == nil {
		return
	}
	d.Blocks = append(d.Blocks, other.Blocks...)
}

// Brief returns the text of the first brief block, falling back to the first paragraph.
func (d *DocComment) Brief() string {
	if d == nil {
		return ""
	}
	for i := range d.Blocks {
		if d.Blocks[i].Kind == BlockBrief {
			return d.Blocks[i].Text()
		}
	}
	for i := range d.Blocks {
		if d.Blocks[i].Kind == BlockParagraph {
			return d.Blocks[i].Text()
		}
	}
	return ""
}

// Normalize trims the edges of every block, coalesces adjacent plain text runs and
// drops inlines and blocks left empty. Code blocks keep their text verbatim.
// Normalize is idempotent.
func (d *DocComment) Normalize() {
	if d == nil {
		return
	}
	blocks := d.Blocks[:0]
	for _, b := range d.Blocks {
		if b.Kind != BlockCode {
			b.Children = normalizeInlines(b.Children)
		}
		if len(b.Children) == 0 && b.Kind != BlockParam && b.Kind != BlockTParam {
			continue
		}
		blocks = append(blocks, b)
	}
	if len(blocks) == 0 {
		blocks = nil
	}
	d.Blocks = blocks
}

const docSpace = " \t\r\n"

func normalizeInlines(in []Inline) []Inline {
	var out []Inline
	for _, n := range in {
		if n.Text == "" && n.Kind != InlineLink {
			continue
		}
		if n.Kind == InlineText && len(out) > 0 && out[len(out)-1].Kind == InlineText {
			out[len(out)-1].Text += n.Text
			continue
		}
		out = append(out, n)
	}
	for len(out) > 0 {
		out[0].Text = strings.TrimLeft(out[0].Text, docSpace)
		if out[0].Text != "" || out[0].Kind == InlineLink {
			break
		}
		out = out[1:]
	}
	for len(out) > 0 {
		last := len(out) - 1
		out[last].Text = strings.TrimRight(out[last].Text, docSpace)
		if out[last].Text != "" || out[last].Kind == InlineLink {
			break
		}
		out = out[:last]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
