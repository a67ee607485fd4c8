// Package wire implements the primitive layer of the Kafka binary protocol:
// big-endian integers, zigzag varints, length-prefixed strings, bytes and
// arrays, their nullable and compact variants, and UUIDs.
//
// Encoding is two-pass: a SizeEncoder computes the exact serialized size, a
// ByteEncoder then fills a buffer of that size. Decoding reads from a single
// contiguous buffer; byte-slice getters alias that buffer, so values that
// outlive the frame must be copied by the caller.
package wire

import (
	"github.com/pkg/errors"
)

var (
	// ErrInsufficientData is returned when the buffer ends before the value
	// being decoded does.
	ErrInsufficientData = errors.New("insufficient data to decode packet")

	// ErrInvalidLength is returned for negative or out-of-range length
	// prefixes (other than the -1 null sentinel where one is allowed).
	ErrInvalidLength = errors.New("invalid length")

	// ErrInvalidUTF8 is returned when a string field does not hold valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string")

	// ErrVarintOverflow is returned when a varint does not terminate within
	// its maximum width.
	ErrVarintOverflow = errors.New("varint overflow")
)

// FieldError annotates a decode error with the name of the field being
// parsed when it occurred. Nested messages stack these, so a displayed error
// reads from the outermost message down to the offending primitive.
func FieldError(field string, err error) error {
	return errors.Wrap(err, field)
}
