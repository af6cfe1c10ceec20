// Package archive reads and writes fragment archives: the files an Extractor run
// leaves on disk for the corpus builder.
//
// Layout: the 4-byte magic "RCFA", a uvarint format version, then a zstd stream of
// entries, each a 20-byte SymbolID, a uvarint blob length and the blob.
package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/sha1n/relic-corpus/internal/symbols"
)

// Extension is the file suffix of fragment archives.
const Extension = ".frag.zst"

// FormatVersion is the archive layout version written by Writer.
const FormatVersion = 1

// MaxBlobSize bounds a single entry.
const MaxBlobSize = 64 << 20

var magic = [4]byte{'R', 'C', 'F', 'A'}

var (
	ErrBadMagic           = errors.New("not a fragment archive")
	ErrUnsupportedVersion = errors.New("unsupported archive version")
	ErrCorrupt            = errors.New("corrupt fragment archive")
)

// Writer appends fragments to an archive. It is not safe for concurrent use.
type Writer struct {
	enc   *zstd.Encoder
	count int
	buf   [binary.MaxVarintLen64]byte
}

// NewWriter writes the archive header to w and returns a Writer for its entries.
func NewWriter(w io.Writer) (*Writer, error) {
	var hdr [len(magic) + binary.MaxVarintLen64]byte
	n := copy(hdr[:], magic[:])
	n += binary.PutUvarint(hdr[n:], FormatVersion)
	if _, err := w.Write(hdr[:n]); err != nil {
		return nil, fmt.Errorf("write archive header: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Add appends one fragment.
func (w *Writer) Add(id symbols.SymbolID, blob []byte) error {
	if len(blob) > MaxBlobSize {
		return fmt.Errorf("fragment for %s is %d bytes, limit is %d", id, len(blob), MaxBlobSize)
	}
	if _, err := w.enc.Write(id[:]); err != nil {
		return err
	}
	n := binary.PutUvarint(w.buf[:], uint64(len(blob)))
	if _, err := w.enc.Write(w.buf[:n]); err != nil {
		return err
	}
	if _, err := w.enc.Write(blob); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of fragments added so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes the compressed stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.enc.Close()
}

// Reader iterates the entries of an archive.
type Reader struct {
	dec *zstd.Decoder
	br  *bufio.Reader
}

// NewReader checks the archive header read from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil || got != magic {
		return nil, ErrBadMagic
	}
	version, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return &Reader{dec: dec, br: bufio.NewReader(dec)}, nil
}

// Next returns the next fragment, or io.EOF after the last one.
func (r *Reader) Next() (symbols.SymbolID, []byte, error) {
	var id symbols.SymbolID
	n, err := io.ReadFull(r.br, id[:])
	if err == io.EOF && n == 0 {
		return id, nil, io.EOF
	}
	if err != nil {
		return id, nil, fmt.Errorf("%w: entry id: %v", ErrCorrupt, err)
	}

	size, err := binary.ReadUvarint(r.br)
	if err != nil {
		return id, nil, fmt.Errorf("%w: entry length: %v", ErrCorrupt, err)
	}
	if size > MaxBlobSize {
		return id, nil, fmt.Errorf("%w: entry of %d bytes", ErrCorrupt, size)
	}
	blob := make([]byte, size)
	if _, err := io.ReadFull(r.br, blob); err != nil {
		return id, nil, fmt.Errorf("%w: entry body: %v", ErrCorrupt, err)
	}
	return id, blob, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.dec.Close()
}

// ReadFile calls fn for every fragment in the archive at path and returns how many
// were read. It stops at the first error.
func ReadFile(path string, fn func(id symbols.SymbolID, blob []byte) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	defer r.Close()

	count := 0
	for {
		id, blob, err := r.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(id, blob); err != nil {
			return count, err
		}
		count++
	}
}

// Fragment is one archive entry.
type Fragment struct {
	ID   symbols.SymbolID
	Blob []byte
}

// WriteFile atomically writes fragments to an archive at path.
func WriteFile(path string, fragments []Fragment) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w, err := NewWriter(f)
	if err != nil {
		return err
	}
	for _, frag := range fragments {
		if err = w.Add(frag.ID, frag.Blob); err != nil {
			return err
		}
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
