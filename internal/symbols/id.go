package symbols

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
)

// SymbolIDSize is the width of a SymbolID in bytes (160 bits).
const SymbolIDSize = 20

// ErrInvalidSymbolID indicates a textual ID that is not 40 hex characters
var ErrInvalidSymbolID = errors.New("invalid symbol id")

// SymbolID is the stable identity of one logical declaration.
// It is assigned by the Extractor and treated as an opaque primary key.
type SymbolID [SymbolIDSize]byte

// GlobalNamespaceID is the reserved ID of the global namespace.
var GlobalNamespaceID = SymbolID{}

// SymbolIDFromUSR hashes a compiler-produced unified symbol resolution string.
// Extractors use it so that every translation unit derives the same ID for a declaration.
func SymbolIDFromUSR(usr string) SymbolID {
	return SymbolID(sha1.Sum([]byte(usr)))
}

// SymbolIDFromBytes copies b into a SymbolID. b must be exactly SymbolIDSize bytes long.
func SymbolIDFromBytes(b []byte) (SymbolID, error) {
	var id SymbolID
	if len(b) != SymbolIDSize {
		return id, fmt.Errorf("%w: %d bytes", ErrInvalidSymbolID, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseSymbolID parses the hex form produced by String.
func ParseSymbolID(s string) (SymbolID, error) {
	var id SymbolID
	if len(s) != hex.EncodedLen(SymbolIDSize) {
		return id, fmt.Errorf("%w: %q", ErrInvalidSymbolID, s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %q", ErrInvalidSymbolID, s)
	}
	return id, nil
}

// String returns the lower-case hex form of the ID.
func (id SymbolID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the global namespace sentinel.
func (id SymbolID) IsZero() bool {
	return id == GlobalNamespaceID
}

// Compare orders IDs byte-wise.
func (id SymbolID) Compare(other SymbolID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id SymbolID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *SymbolID) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbolID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
