package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Decoder reads primitives off a contiguous byte buffer. Byte-slice results
// alias the buffer (zero-copy); see the package comment.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a Decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns how many bytes are left to decode.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// ExpectEmpty returns ErrInvalidLength if any undecoded bytes remain. Used
// at message boundaries to reject trailing garbage.
func (d *Decoder) ExpectEmpty() error {
	if d.Remaining() != 0 {
		return FieldError("trailing bytes", ErrInvalidLength)
	}
	return nil
}

func (d *Decoder) Int8() (int8, error) {
	if d.Remaining() < 1 {
		return 0, ErrInsufficientData
	}
	v := int8(d.buf[d.off])
	d.off++
	return v, nil
}

func (d *Decoder) Int16() (int16, error) {
	if d.Remaining() < 2 {
		return 0, ErrInsufficientData
	}
	v := int16(binary.BigEndian.Uint16(d.buf[d.off:]))
	d.off += 2
	return v, nil
}

func (d *Decoder) Int32() (int32, error) {
	if d.Remaining() < 4 {
		return 0, ErrInsufficientData
	}
	v := int32(binary.BigEndian.Uint32(d.buf[d.off:]))
	d.off += 4
	return v, nil
}

func (d *Decoder) Int64() (int64, error) {
	if d.Remaining() < 8 {
		return 0, ErrInsufficientData
	}
	v := int64(binary.BigEndian.Uint64(d.buf[d.off:]))
	d.off += 8
	return v, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, ErrInsufficientData
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.Int8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Varint decodes a zigzag-encoded variable-length integer.
func (d *Decoder) Varint() (int64, error) {
	v, n := binary.Varint(d.buf[d.off:])
	if n == 0 {
		return 0, ErrInsufficientData
	}
	if n < 0 {
		return 0, ErrVarintOverflow
	}
	d.off += n
	return v, nil
}

func (d *Decoder) UUID() (uuid.UUID, error) {
	var u uuid.UUID
	raw, err := d.RawBytes(16)
	if err != nil {
		return u, err
	}
	copy(u[:], raw)
	return u, nil
}

// RawBytes returns the next n bytes, aliasing the buffer.
func (d *Decoder) RawBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidLength
	}
	if d.Remaining() < n {
		return nil, ErrInsufficientData
	}
	v := d.buf[d.off : d.off+n : d.off+n]
	d.off += n
	return v, nil
}

func (d *Decoder) String() (string, error) {
	n, err := d.Int16()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrInvalidLength
	}
	return d.stringBody(int(n))
}

// NullableString returns nil for the -1 sentinel.
func (d *Decoder) NullableString() (*string, error) {
	n, err := d.Int16()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, ErrInvalidLength
	}
	s, err := d.stringBody(int(n))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CompactString decodes a varint-length string where the encoded length is
// the content length plus one.
func (d *Decoder) CompactString() (string, error) {
	n, err := d.compactLength()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrInvalidLength
	}
	return d.stringBody(n)
}

// CompactNullableString returns nil for the zero-length sentinel.
func (d *Decoder) CompactNullableString() (*string, error) {
	n, err := d.compactLength()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, ErrInvalidLength
	}
	s, err := d.stringBody(n)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Bytes decodes an int32-length-prefixed byte slice, aliasing the buffer.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrInvalidLength
	}
	return d.RawBytes(int(n))
}

// NullableBytes returns nil for the -1 sentinel.
func (d *Decoder) NullableBytes() ([]byte, error) {
	n, err := d.Int32()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, ErrInvalidLength
	}
	return d.RawBytes(int(n))
}

// CompactBytes decodes a varint-length byte slice (content length plus one),
// aliasing the buffer.
func (d *Decoder) CompactBytes() ([]byte, error) {
	n, err := d.compactLength()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, ErrInvalidLength
	}
	return d.RawBytes(n)
}

// ArrayLength decodes an int32 array length. The -1 sentinel decodes as an
// empty array; any other negative length, or one that cannot fit in the
// remaining buffer, is an error.
func (d *Decoder) ArrayLength() (int, error) {
	n, err := d.Int32()
	if err != nil {
		return 0, err
	}
	if n == -1 {
		return 0, nil
	}
	if n < 0 {
		return 0, ErrInvalidLength
	}
	// Every array element occupies at least one byte, so a length larger
	// than the remainder cannot be satisfied. Reject it here instead of
	// letting a hostile length drive a huge allocation.
	if int(n) > d.Remaining() {
		return 0, ErrInsufficientData
	}
	return int(n), nil
}

func (d *Decoder) stringBody(n int) (string, error) {
	raw, err := d.RawBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

func (d *Decoder) compactLength() (int, error) {
	v, err := d.Varint()
	if err != nil {
		return 0, err
	}
	return int(v) - 1, nil
}
