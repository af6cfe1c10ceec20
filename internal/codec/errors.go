package codec

import (
	"errors"
	"fmt"

	"github.com/sha1n/relic-corpus/internal/bitstream"
)

// Decode failure causes. DecodeError wraps exactly one of these.
var (
	ErrBadSignature     = bitstream.ErrBadSignature
	ErrVersionMismatch  = bitstream.ErrVersionMismatch
	ErrUndeclaredRecord = bitstream.ErrUndeclaredRecord
	ErrTruncated        = bitstream.ErrTruncated
	ErrMalformed        = bitstream.ErrMalformed

	// ErrUnexpectedBlock indicates a block ID that is not valid where it appears
	ErrUnexpectedBlock = errors.New("unexpected block")
)

// DecodeError reports why one blob could not be decoded. It never affects other blobs.
type DecodeError struct {
	Op     string // header, block or record
	Offset int    // byte offset where decoding stopped
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at byte %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
