// Package bitstream implements a compact, self-describing, block-structured bit
// stream. Record layouts ("abbreviations") are declared once in a block-info
// section at the head of the stream; the remainder carries only 8-bit selectors
// and payload bits.
package bitstream

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrBadSignature indicates the stream does not start with the expected magic
	ErrBadSignature = errors.New("bad stream signature")

	// ErrVersionMismatch indicates the stream was written by another format version
	ErrVersionMismatch = errors.New("unsupported stream version")

	// ErrUndeclaredRecord indicates a record ID the enclosing block never declared
	ErrUndeclaredRecord = errors.New("record not declared for block")

	// ErrTruncated indicates a length or count that exceeds the remaining bits
	ErrTruncated = errors.New("stream truncated")

	// ErrMalformed indicates a structurally invalid stream
	ErrMalformed = errors.New("malformed stream")

	// ErrValueOverflow indicates a value that does not fit its abbreviation
	ErrValueOverflow = errors.New("value does not fit abbreviation")
)

// Reserved block IDs. Application blocks must use IDs >= FirstApplicationBlockID.
const (
	BlockInfoID             uint8 = 0
	VersionBlockID          uint8 = 1
	FirstApplicationBlockID uint8 = 8
)

// Selector values. Every entry inside a block starts with one 8-bit selector.
const (
	selEndBlock     = 0
	selEnterBlock   = 1
	selDefineAbbrev = 2
	selSetBID       = 3

	// FirstRecordID is the lowest selector usable as a record ID.
	FirstRecordID uint8 = 4

	selectorWidth = 8
	lengthVBR     = 6
)

const versionRecordID = FirstRecordID

// OpKind is the physical encoding of one abbreviation operand.
type OpKind uint8

const (
	OpFixed OpKind = iota + 1
	OpVBR
	OpArray
	OpBlob
)

func (k OpKind) String() string {
	switch k {
	case OpFixed:
		return "fixed"
	case OpVBR:
		return "vbr"
	case OpArray:
		return "array"
	case OpBlob:
		return "blob"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one abbreviation operand. For OpArray, Width is the element width.
type Op struct {
	Kind  OpKind
	Width uint8
}

// Fixed encodes an unsigned value in exactly width bits. Fixed(1) is a single bit.
func Fixed(width uint8) Op { return Op{Kind: OpFixed, Width: width} }

// VBR encodes an unsigned value in width-bit chunks with a continuation bit.
func VBR(width uint8) Op { return Op{Kind: OpVBR, Width: width} }

// Array encodes a length-prefixed sequence of elemWidth-bit elements.
func Array(elemWidth uint8) Op { return Op{Kind: OpArray, Width: elemWidth} }

// Blob encodes a length-prefixed byte string.
func Blob() Op { return Op{Kind: OpBlob} }

// Abbrev is the layout of one record: zero or more scalar operands optionally
// followed by a single array or blob operand.
type Abbrev []Op

// Validate checks operand widths and that array or blob operands come last.
func (a Abbrev) Validate() error {
	for i, op := range a {
		switch op.Kind {
		case OpFixed, OpArray:
			if op.Width < 1 || op.Width > 64 {
				return fmt.Errorf("%w: %s width %d", ErrMalformed, op.Kind, op.Width)
			}
		case OpVBR:
			if op.Width < 2 || op.Width > 32 {
				return fmt.Errorf("%w: vbr width %d", ErrMalformed, op.Width)
			}
		case OpBlob:
			if op.Width != 0 {
				return fmt.Errorf("%w: blob width %d", ErrMalformed, op.Width)
			}
		default:
			return fmt.Errorf("%w: unknown operand kind %d", ErrMalformed, op.Kind)
		}
		if (op.Kind == OpArray || op.Kind == OpBlob) && i != len(a)-1 {
			return fmt.Errorf("%w: %s operand must be last", ErrMalformed, op.Kind)
		}
	}
	return nil
}

// scalars returns the number of Fixed and VBR operands.
func (a Abbrev) scalars() int {
	n := 0
	for _, op := range a {
		if op.Kind == OpFixed || op.Kind == OpVBR {
			n++
		}
	}
	return n
}

// Record is one decoded or to-be-encoded record.
type Record struct {
	ID     uint8
	Fields []uint64 // scalar operands in abbreviation order
	Array  []uint64 // trailing array operand
	Blob   []byte   // trailing blob operand
}

// Schema declares, per block, the records that may appear and their abbreviations.
type Schema struct {
	blocks map[uint8]map[uint8]Abbrev
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{blocks: make(map[uint8]map[uint8]Abbrev)}
}

// Block declares a block that may carry no records of its own.
func (s *Schema) Block(block uint8) *Schema {
	if _, ok := s.blocks[block]; !ok {
		s.blocks[block] = make(map[uint8]Abbrev)
	}
	return s
}

// Define declares record in block with the given abbreviation.
// It panics on an invalid declaration since schemas are fixed at init time.
func (s *Schema) Define(block, record uint8, abbrev ...Op) *Schema {
	if err := s.define(block, record, Abbrev(abbrev)); err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) define(block, record uint8, abbrev Abbrev) error {
	if block < FirstApplicationBlockID && block != VersionBlockID {
		return fmt.Errorf("%w: block id %d is reserved", ErrMalformed, block)
	}
	if record < FirstRecordID {
		return fmt.Errorf("%w: record id %d is reserved", ErrMalformed, record)
	}
	if err := abbrev.Validate(); err != nil {
		return fmt.Errorf("block %d record %d: %w", block, record, err)
	}
	s.Block(block)
	s.blocks[block][record] = abbrev
	return nil
}

// Abbrev returns the abbreviation of record inside block.
func (s *Schema) Abbrev(block, record uint8) (Abbrev, bool) {
	recs, ok := s.blocks[block]
	if !ok {
		return nil, false
	}
	a, ok := recs[record]
	return a, ok
}

// HasBlock reports whether block was declared.
func (s *Schema) HasBlock(block uint8) bool {
	_, ok := s.blocks[block]
	return ok
}

// Blocks returns the declared block IDs in ascending order.
func (s *Schema) Blocks() []uint8 {
	ids := make([]uint8, 0, len(s.blocks))
	for id := range s.blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Records returns the record IDs declared for block in ascending order.
func (s *Schema) Records(block uint8) []uint8 {
	recs := s.blocks[block]
	ids := make([]uint8, 0, len(recs))
	for id := range recs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
