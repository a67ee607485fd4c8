package wire

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/google/uuid"
)

// Encoder is the sink half of the codec. Every protocol message implements
// an Encode method against it. The same method body drives both the sizing
// pass and the writing pass, which keeps the two in lockstep by
// construction.
type Encoder interface {
	PutInt8(in int8)
	PutInt16(in int16)
	PutInt32(in int32)
	PutInt64(in int64)
	PutUint32(in uint32)
	PutBool(in bool)
	PutVarint(in int64)
	PutUUID(in uuid.UUID)
	PutRawBytes(in []byte)

	PutString(in string) error
	PutNullableString(in *string) error
	PutCompactString(in string) error
	PutCompactNullableString(in *string) error
	PutBytes(in []byte) error
	PutNullableBytes(in []byte) error
	PutCompactBytes(in []byte) error
	PutArrayLength(in int) error
}

// Encodable is anything that can write itself through an Encoder.
type Encodable interface {
	Encode(e Encoder) error
}

// Encode serializes m: one sizing pass, one exact allocation, one writing
// pass. len(Encode(m)) always equals Size(m).
func Encode(m Encodable) ([]byte, error) {
	size, err := Size(m)
	if err != nil {
		return nil, err
	}

	be := &ByteEncoder{buf: make([]byte, size)}
	if err := m.Encode(be); err != nil {
		return nil, err
	}

	return be.buf, nil
}

// Size returns the exact number of bytes Encode(m) produces.
func Size(m Encodable) (int, error) {
	se := &SizeEncoder{}
	if err := m.Encode(se); err != nil {
		return 0, err
	}
	return se.Size(), nil
}

// VarintSize returns the encoded width of v as a zigzag varint.
func VarintSize(v int64) int {
	u := uint64(v)<<1 ^ uint64(v>>63)
	if u == 0 {
		return 1
	}
	return (bits.Len64(u) + 6) / 7
}

// SizeEncoder counts bytes without writing any.
type SizeEncoder struct {
	length int
}

func (e *SizeEncoder) Size() int { return e.length }

func (e *SizeEncoder) PutInt8(int8) { e.length++ }
func (e *SizeEncoder) PutInt16(int16) { e.length += 2 }
func (e *SizeEncoder) PutInt32(int32) { e.length += 4 }
func (e *SizeEncoder) PutInt64(int64) { e.length += 8 }
func (e *SizeEncoder) PutUint32(uint32) { e.length += 4 }
func (e *SizeEncoder) PutBool(bool) { e.length++ }
func (e *SizeEncoder) PutUUID(uuid.UUID) { e.length += 16 }

func (e *SizeEncoder) PutVarint(in int64) { e.length += VarintSize(in) }

func (e *SizeEncoder) PutRawBytes(in []byte) { e.length += len(in) }

func (e *SizeEncoder) PutString(in string) error {
	if len(in) > math.MaxInt16 {
		return ErrInvalidLength
	}
	e.length += 2 + len(in)
	return nil
}

func (e *SizeEncoder) PutNullableString(in *string) error {
	if in == nil {
		e.length += 2
		return nil
	}
	return e.PutString(*in)
}

func (e *SizeEncoder) PutCompactString(in string) error {
	e.length += VarintSize(int64(len(in))+1) + len(in)
	return nil
}

func (e *SizeEncoder) PutCompactNullableString(in *string) error {
	if in == nil {
		e.length++
		return nil
	}
	return e.PutCompactString(*in)
}

func (e *SizeEncoder) PutBytes(in []byte) error {
	if len(in) > math.MaxInt32 {
		return ErrInvalidLength
	}
	e.length += 4 + len(in)
	return nil
}

func (e *SizeEncoder) PutNullableBytes(in []byte) error {
	if in == nil {
		e.length += 4
		return nil
	}
	return e.PutBytes(in)
}

func (e *SizeEncoder) PutCompactBytes(in []byte) error {
	e.length += VarintSize(int64(len(in))+1) + len(in)
	return nil
}

func (e *SizeEncoder) PutArrayLength(in int) error {
	if in > math.MaxInt32 {
		return ErrInvalidLength
	}
	e.length += 4
	return nil
}

// ByteEncoder writes into a presized buffer. Running past the end panics,
// which only happens when an Encode method disagrees with itself between
// the sizing and writing passes, i.e. a bug in the message code rather than
// bad input.
type ByteEncoder struct {
	buf []byte
	off int
}

// NewByteEncoder returns a ByteEncoder over buf.
func NewByteEncoder(buf []byte) *ByteEncoder {
	return &ByteEncoder{buf: buf}
}

// Bytes returns the written prefix of the buffer.
func (e *ByteEncoder) Bytes() []byte { return e.buf[:e.off] }

func (e *ByteEncoder) PutInt8(in int8) {
	e.buf[e.off] = byte(in)
	e.off++
}

func (e *ByteEncoder) PutInt16(in int16) {
	binary.BigEndian.PutUint16(e.buf[e.off:], uint16(in))
	e.off += 2
}

func (e *ByteEncoder) PutInt32(in int32) {
	binary.BigEndian.PutUint32(e.buf[e.off:], uint32(in))
	e.off += 4
}

func (e *ByteEncoder) PutInt64(in int64) {
	binary.BigEndian.PutUint64(e.buf[e.off:], uint64(in))
	e.off += 8
}

func (e *ByteEncoder) PutUint32(in uint32) {
	binary.BigEndian.PutUint32(e.buf[e.off:], in)
	e.off += 4
}

func (e *ByteEncoder) PutBool(in bool) {
	if in {
		e.buf[e.off] = 1
	} else {
		e.buf[e.off] = 0
	}
	e.off++
}

func (e *ByteEncoder) PutVarint(in int64) {
	e.off += binary.PutVarint(e.buf[e.off:], in)
}

func (e *ByteEncoder) PutUUID(in uuid.UUID) {
	copy(e.buf[e.off:], in[:])
	e.off += 16
}

func (e *ByteEncoder) PutRawBytes(in []byte) {
	copy(e.buf[e.off:], in)
	e.off += len(in)
}

func (e *ByteEncoder) PutString(in string) error {
	if len(in) > math.MaxInt16 {
		return ErrInvalidLength
	}
	e.PutInt16(int16(len(in)))
	copy(e.buf[e.off:], in)
	e.off += len(in)
	return nil
}

func (e *ByteEncoder) PutNullableString(in *string) error {
	if in == nil {
		e.PutInt16(-1)
		return nil
	}
	return e.PutString(*in)
}

func (e *ByteEncoder) PutCompactString(in string) error {
	e.PutVarint(int64(len(in)) + 1)
	copy(e.buf[e.off:], in)
	e.off += len(in)
	return nil
}

func (e *ByteEncoder) PutCompactNullableString(in *string) error {
	if in == nil {
		e.PutVarint(0)
		return nil
	}
	return e.PutCompactString(*in)
}

func (e *ByteEncoder) PutBytes(in []byte) error {
	if len(in) > math.MaxInt32 {
		return ErrInvalidLength
	}
	e.PutInt32(int32(len(in)))
	e.PutRawBytes(in)
	return nil
}

func (e *ByteEncoder) PutNullableBytes(in []byte) error {
	if in == nil {
		e.PutInt32(-1)
		return nil
	}
	return e.PutBytes(in)
}

func (e *ByteEncoder) PutCompactBytes(in []byte) error {
	e.PutVarint(int64(len(in)) + 1)
	e.PutRawBytes(in)
	return nil
}

func (e *ByteEncoder) PutArrayLength(in int) error {
	if in > math.MaxInt32 {
		return ErrInvalidLength
	}
	e.PutInt32(int32(in))
	return nil
}
