package bitstream

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// EntryKind classifies what Reader.Next found.
type EntryKind int

const (
	EntryRecord EntryKind = iota
	EntryEnterBlock
	EntryEndBlock
	EntryEOF
)

// Entry is one step of the stream walk.
type Entry struct {
	Kind    EntryKind
	BlockID uint8 // block entered or exited
	Record  Record
}

// Reader walks a stream produced by Writer. Abbreviations come from the stream's
// own block-info section, not from the caller.
type Reader struct {
	bits   *bitio.Reader
	pos    uint64
	total  uint64
	schema *Schema
	stack  []uint8

	// Version is the format version found in the header.
	Version uint32
}

// NewReader returns a reader over data. Call ReadHeader before Next.
func NewReader(data []byte) *Reader {
	return &Reader{
		bits:   bitio.NewReader(bytes.NewReader(data)),
		total:  uint64(len(data)) * 8,
		schema: NewSchema(),
	}
}

// Offset returns the current position in bytes, rounded down.
func (r *Reader) Offset() int {
	return int(r.pos / 8)
}

// Depth returns the number of open blocks.
func (r *Reader) Depth() int {
	return len(r.stack)
}

// Schema returns the abbreviations declared by the stream.
func (r *Reader) Schema() *Schema {
	return r.schema
}

// ReadHeader checks the signature and version and loads the block-info section.
func (r *Reader) ReadHeader(signature [4]byte, version uint32) error {
	for _, want := range signature {
		got, err := r.readBits(8)
		if err != nil || byte(got) != want {
			return ErrBadSignature
		}
	}

	if err := r.expectEnter(VersionBlockID); err != nil {
		return err
	}
	sel, err := r.readBits(selectorWidth)
	if err != nil {
		return err
	}
	if sel != uint64(versionRecordID) {
		return fmt.Errorf("%w: expected version record, got selector %d", ErrMalformed, sel)
	}
	v, err := r.readBits(32)
	if err != nil {
		return err
	}
	if err := r.expectEnd(); err != nil {
		return err
	}
	r.Version = uint32(v)
	if r.Version != version {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, r.Version, version)
	}

	return r.readBlockInfo()
}

func (r *Reader) readBlockInfo() error {
	if err := r.expectEnter(BlockInfoID); err != nil {
		return err
	}
	current := -1
	for {
		sel, err := r.readBits(selectorWidth)
		if err != nil {
			return err
		}
		switch sel {
		case selEndBlock:
			r.align()
			return nil
		case selSetBID:
			id, err := r.readBits(8)
			if err != nil {
				return err
			}
			current = int(id)
			r.schema.Block(uint8(id))
		case selDefineAbbrev:
			if current < 0 {
				return fmt.Errorf("%w: abbreviation before SETBID", ErrMalformed)
			}
			if err := r.readAbbrev(uint8(current)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: selector %d in block-info", ErrMalformed, sel)
		}
	}
}

func (r *Reader) readAbbrev(block uint8) error {
	rec, err := r.readBits(8)
	if err != nil {
		return err
	}
	n, err := r.readBits(4)
	if err != nil {
		return err
	}
	abbrev := make(Abbrev, 0, n)
	for i := uint64(0); i < n; i++ {
		kind, err := r.readBits(3)
		if err != nil {
			return err
		}
		width, err := r.readBits(7)
		if err != nil {
			return err
		}
		abbrev = append(abbrev, Op{Kind: OpKind(kind), Width: uint8(width)})
	}
	return r.schema.define(block, uint8(rec), abbrev)
}

// Next returns the next entry. At the top level only blocks may appear, and the
// end of the data is reported as EntryEOF.
func (r *Reader) Next() (Entry, error) {
	if len(r.stack) == 0 && r.pos == r.total {
		return Entry{Kind: EntryEOF}, nil
	}

	sel, err := r.readBits(selectorWidth)
	if err != nil {
		return Entry{}, err
	}

	switch {
	case sel == selEndBlock:
		if len(r.stack) == 0 {
			return Entry{}, fmt.Errorf("%w: end of block at top level", ErrMalformed)
		}
		id := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		r.align()
		return Entry{Kind: EntryEndBlock, BlockID: id}, nil

	case sel == selEnterBlock:
		id, err := r.readBits(8)
		if err != nil {
			return Entry{}, err
		}
		if !r.schema.HasBlock(uint8(id)) {
			return Entry{}, fmt.Errorf("%w: block %d not declared", ErrMalformed, id)
		}
		r.stack = append(r.stack, uint8(id))
		return Entry{Kind: EntryEnterBlock, BlockID: uint8(id)}, nil

	case len(r.stack) == 0:
		return Entry{}, fmt.Errorf("%w: selector %d at top level", ErrMalformed, sel)
	}

	block := r.stack[len(r.stack)-1]
	abbrev, ok := r.schema.Abbrev(block, uint8(sel))
	if !ok {
		return Entry{}, fmt.Errorf("%w: record %d in block %d", ErrUndeclaredRecord, sel, block)
	}
	rec, err := r.readRecord(uint8(sel), abbrev)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Kind: EntryRecord, BlockID: block, Record: rec}, nil
}

func (r *Reader) readRecord(id uint8, abbrev Abbrev) (Record, error) {
	rec := Record{ID: id}
	if n := abbrev.scalars(); n > 0 {
		rec.Fields = make([]uint64, 0, n)
	}
	for _, op := range abbrev {
		switch op.Kind {
		case OpFixed:
			v, err := r.readBits(op.Width)
			if err != nil {
				return rec, err
			}
			rec.Fields = append(rec.Fields, v)
		case OpVBR:
			v, err := r.readVBR(op.Width)
			if err != nil {
				return rec, err
			}
			rec.Fields = append(rec.Fields, v)
		case OpArray:
			n, err := r.readLength(uint64(op.Width))
			if err != nil {
				return rec, err
			}
			rec.Array = make([]uint64, n)
			for i := range rec.Array {
				if rec.Array[i], err = r.readBits(op.Width); err != nil {
					return rec, err
				}
			}
		case OpBlob:
			n, err := r.readLength(8)
			if err != nil {
				return rec, err
			}
			rec.Blob = make([]byte, n)
			for i := range rec.Blob {
				b, err := r.readBits(8)
				if err != nil {
					return rec, err
				}
				rec.Blob[i] = byte(b)
			}
		}
	}
	return rec, nil
}

// readLength reads a length prefix and checks that n elements of elemBits each
// fit in the remaining data.
func (r *Reader) readLength(elemBits uint64) (uint64, error) {
	n, err := r.readVBR(lengthVBR)
	if err != nil {
		return 0, err
	}
	remaining := r.total - r.pos
	if n > remaining/elemBits {
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bits at byte %d",
			ErrTruncated, n, remaining, r.Offset())
	}
	return n, nil
}

func (r *Reader) readVBR(width uint8) (uint64, error) {
	hi := uint64(1) << (width - 1)
	var v uint64
	var shift uint
	for {
		chunk, err := r.readBits(width)
		if err != nil {
			return 0, err
		}
		if shift >= 64 {
			return 0, fmt.Errorf("%w: vbr value overflows 64 bits", ErrMalformed)
		}
		v |= (chunk & (hi - 1)) << shift
		if chunk&hi == 0 {
			return v, nil
		}
		shift += uint(width - 1)
	}
}

func (r *Reader) readBits(n uint8) (uint64, error) {
	if r.pos+uint64(n) > r.total {
		return 0, fmt.Errorf("%w: need %d bits at byte %d", ErrTruncated, n, r.Offset())
	}
	v, err := r.bits.ReadBits(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	r.pos += uint64(n)
	return v, nil
}

func (r *Reader) align() {
	r.pos += uint64(r.bits.Align())
}

func (r *Reader) expectEnter(id uint8) error {
	sel, err := r.readBits(selectorWidth)
	if err != nil {
		return err
	}
	got, err := r.readBits(8)
	if err != nil {
		return err
	}
	if sel != selEnterBlock || uint8(got) != id {
		return fmt.Errorf("%w: expected block %d", ErrMalformed, id)
	}
	return nil
}

func (r *Reader) expectEnd() error {
	sel, err := r.readBits(selectorWidth)
	if err != nil {
		return err
	}
	if sel != selEndBlock {
		return fmt.Errorf("%w: expected end of block, got selector %d", ErrMalformed, sel)
	}
	r.align()
	return nil
}
