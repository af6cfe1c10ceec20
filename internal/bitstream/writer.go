package bitstream

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// Writer emits a stream depth-first in a single pass. Block lengths are never
// recorded, so nothing is backpatched. The first error is sticky and returned by Bytes.
type Writer struct {
	buf    bytes.Buffer
	bits   *bitio.Writer
	schema *Schema
	stack  []uint8
	err    error
}

// NewWriter writes the signature, the version block and the block-info section
// derived from schema, and returns a writer positioned at the top level.
func NewWriter(schema *Schema, signature [4]byte, version uint32) *Writer {
	w := &Writer{schema: schema}
	w.bits = bitio.NewWriter(&w.buf)

	for _, b := range signature {
		w.fixed(uint64(b), 8)
	}

	w.enter(VersionBlockID)
	w.selector(versionRecordID)
	w.fixed(uint64(version), 32)
	w.end()

	w.writeBlockInfo()
	return w
}

func (w *Writer) writeBlockInfo() {
	w.enter(BlockInfoID)
	for _, block := range w.schema.Blocks() {
		w.selector(selSetBID)
		w.fixed(uint64(block), 8)
		for _, rec := range w.schema.Records(block) {
			abbrev, _ := w.schema.Abbrev(block, rec)
			w.selector(selDefineAbbrev)
			w.fixed(uint64(rec), 8)
			w.fixed(uint64(len(abbrev)), 4)
			for _, op := range abbrev {
				w.fixed(uint64(op.Kind), 3)
				w.fixed(uint64(op.Width), 7)
			}
		}
	}
	w.end()
}

// EnterBlock opens a block. Top-level blocks and nested blocks must be declared
// in the schema.
func (w *Writer) EnterBlock(id uint8) {
	if w.err != nil {
		return
	}
	if !w.schema.HasBlock(id) {
		w.err = fmt.Errorf("%w: block %d not declared", ErrMalformed, id)
		return
	}
	w.enter(id)
	w.stack = append(w.stack, id)
}

// ExitBlock closes the innermost open block.
func (w *Writer) ExitBlock() {
	if w.err != nil {
		return
	}
	if len(w.stack) == 0 {
		w.err = fmt.Errorf("%w: exit without open block", ErrMalformed)
		return
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.end()
}

// WriteRecord writes r inside the innermost open block using its declared abbreviation.
func (w *Writer) WriteRecord(r Record) {
	if w.err != nil {
		return
	}
	if len(w.stack) == 0 {
		w.err = fmt.Errorf("%w: record %d outside of a block", ErrMalformed, r.ID)
		return
	}
	block := w.stack[len(w.stack)-1]
	abbrev, ok := w.schema.Abbrev(block, r.ID)
	if !ok {
		w.err = fmt.Errorf("%w: record %d in block %d", ErrUndeclaredRecord, r.ID, block)
		return
	}
	if len(r.Fields) != abbrev.scalars() {
		w.err = fmt.Errorf("%w: record %d has %d fields, abbreviation wants %d",
			ErrMalformed, r.ID, len(r.Fields), abbrev.scalars())
		return
	}

	w.selector(r.ID)
	field := 0
	for _, op := range abbrev {
		switch op.Kind {
		case OpFixed:
			w.fixed(r.Fields[field], op.Width)
			field++
		case OpVBR:
			w.vbr(r.Fields[field], op.Width)
			field++
		case OpArray:
			w.vbr(uint64(len(r.Array)), lengthVBR)
			for _, v := range r.Array {
				w.fixed(v, op.Width)
			}
		case OpBlob:
			w.vbr(uint64(len(r.Blob)), lengthVBR)
			for _, b := range r.Blob {
				w.fixed(uint64(b), 8)
			}
		}
	}
}

// Bytes finishes the stream. Every opened block must have been exited.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err == nil && len(w.stack) != 0 {
		w.err = fmt.Errorf("%w: %d unclosed block(s)", ErrMalformed, len(w.stack))
	}
	if w.err != nil {
		return nil, w.err
	}
	if err := w.bits.Close(); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

func (w *Writer) selector(sel uint8) {
	w.fixed(uint64(sel), selectorWidth)
}

func (w *Writer) enter(id uint8) {
	w.selector(selEnterBlock)
	w.fixed(uint64(id), 8)
}

func (w *Writer) end() {
	w.selector(selEndBlock)
	if w.err != nil {
		return
	}
	if _, err := w.bits.Align(); err != nil {
		w.err = err
	}
}

func (w *Writer) fixed(v uint64, width uint8) {
	if w.err != nil {
		return
	}
	if width < 64 && v>>width != 0 {
		w.err = fmt.Errorf("%w: %d in %d bits", ErrValueOverflow, v, width)
		return
	}
	if err := w.bits.WriteBits(v, width); err != nil {
		w.err = err
	}
}

func (w *Writer) vbr(v uint64, width uint8) {
	hi := uint64(1) << (width - 1)
	for v >= hi {
		w.fixed(v&(hi-1)|hi, width)
		v >>= width - 1
	}
	w.fixed(v, width)
}
