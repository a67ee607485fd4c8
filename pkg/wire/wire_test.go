package wire

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintBoundaryValues(t *testing.T) {
	tests := []struct {
		value   int64
		encoded []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x01}},
		{1, []byte{0x02}},
		{6, []byte{0x0c}},
		{12, []byte{0x18}},
		{300, []byte{0xd8, 0x04}},
		{-301, []byte{0xd9, 0x04}},
	}

	for _, tt := range tests {
		e := NewByteEncoder(make([]byte, 10))
		e.PutVarint(tt.value)
		assert.Equal(t, tt.encoded, e.Bytes(), "encoding %d", tt.value)
		assert.Equal(t, len(tt.encoded), VarintSize(tt.value), "size of %d", tt.value)

		d := NewDecoder(tt.encoded)
		got, err := d.Varint()
		require.NoError(t, err)
		assert.Equal(t, tt.value, got)
		assert.Equal(t, 0, d.Remaining())
	}
}

func TestIntegerRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	e := NewByteEncoder(buf)
	e.PutInt8(-8)
	e.PutInt16(-1600)
	e.PutInt32(1 << 30)
	e.PutInt64(-1 << 60)
	e.PutUint32(0xdeadbeef)
	e.PutBool(true)
	e.PutBool(false)

	d := NewDecoder(e.Bytes())

	i8, err := d.Int8()
	require.NoError(t, err)
	assert.Equal(t, int8(-8), i8)

	i16, err := d.Int16()
	require.NoError(t, err)
	assert.Equal(t, int16(-1600), i16)

	i32, err := d.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(1<<30), i32)

	i64, err := d.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<60), i64)

	u32, err := d.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)

	b, err := d.Bool()
	require.NoError(t, err)
	assert.True(t, b)
	b, err = d.Bool()
	require.NoError(t, err)
	assert.False(t, b)

	require.NoError(t, d.ExpectEmpty())
}

func TestStringEncoding(t *testing.T) {
	e := NewByteEncoder(make([]byte, 16))
	require.NoError(t, e.PutString("kafka"))
	assert.Equal(t, []byte{0x00, 0x05, 'k', 'a', 'f', 'k', 'a'}, e.Bytes())

	d := NewDecoder(e.Bytes())
	s, err := d.String()
	require.NoError(t, err)
	assert.Equal(t, "kafka", s)
}

func TestNullableStringPreservesNull(t *testing.T) {
	e := NewByteEncoder(make([]byte, 2))
	require.NoError(t, e.PutNullableString(nil))
	// Null is the -1 sentinel, never an empty string.
	assert.Equal(t, []byte{0xff, 0xff}, e.Bytes())

	d := NewDecoder(e.Bytes())
	s, err := d.NullableString()
	require.NoError(t, err)
	assert.Nil(t, s)

	// And the empty string stays an empty string.
	e = NewByteEncoder(make([]byte, 2))
	empty := ""
	require.NoError(t, e.PutNullableString(&empty))
	assert.Equal(t, []byte{0x00, 0x00}, e.Bytes())

	d = NewDecoder(e.Bytes())
	s, err = d.NullableString()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "", *s)
}

func TestNullableBytesPreservesNull(t *testing.T) {
	e := NewByteEncoder(make([]byte, 4))
	require.NoError(t, e.PutNullableBytes(nil))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, e.Bytes())

	d := NewDecoder(e.Bytes())
	v, err := d.NullableBytes()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCompactStringEncoding(t *testing.T) {
	e := NewByteEncoder(make([]byte, 16))
	require.NoError(t, e.PutCompactString("abc"))
	// Encoded length is content length plus one, as a zigzag varint.
	assert.Equal(t, []byte{0x08, 'a', 'b', 'c'}, e.Bytes())

	d := NewDecoder(e.Bytes())
	s, err := d.CompactString()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	e = NewByteEncoder(make([]byte, 1))
	require.NoError(t, e.PutCompactNullableString(nil))
	assert.Equal(t, []byte{0x00}, e.Bytes())

	d = NewDecoder(e.Bytes())
	got, err := d.CompactNullableString()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestArrayLengthNullTolerance(t *testing.T) {
	// Array length -1 decodes as empty.
	d := NewDecoder([]byte{0xff, 0xff, 0xff, 0xff})
	n, err := d.ArrayLength()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Other negative lengths are refused.
	d = NewDecoder([]byte{0xff, 0xff, 0xff, 0xfe})
	_, err = d.ArrayLength()
	assert.ErrorIs(t, err, ErrInvalidLength)

	// A length that cannot fit in the remaining bytes is refused rather
	// than driving a huge allocation.
	d = NewDecoder([]byte{0x7f, 0xff, 0xff, 0xff})
	_, err = d.ArrayLength()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestDecoderRejectsNegativeLengths(t *testing.T) {
	d := NewDecoder([]byte{0xff, 0xfe, 'x'})
	_, err := d.String()
	assert.ErrorIs(t, err, ErrInvalidLength)

	d = NewDecoder([]byte{0xff, 0xff, 0xff, 0xfe})
	_, err = d.Bytes()
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecoderRejectsInvalidUTF8(t *testing.T) {
	d := NewDecoder([]byte{0x00, 0x02, 0xff, 0xfe})
	_, err := d.String()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestTruncatedInputNeverPanics(t *testing.T) {
	full := make([]byte, 0, 64)
	e := NewByteEncoder(make([]byte, 64))
	e.PutInt64(42)
	require.NoError(t, e.PutString("topic"))
	require.NoError(t, e.PutNullableBytes([]byte{1, 2, 3}))
	e.PutVarint(300)
	full = append(full, e.Bytes()...)

	for cut := 0; cut < len(full); cut++ {
		d := NewDecoder(full[:cut])
		// Whatever parses, parses; the rest must fail cleanly.
		_, _ = d.Int64()
		_, _ = d.String()
		_, _ = d.NullableBytes()
		_, _ = d.Varint()
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	e := NewByteEncoder(make([]byte, 16))
	e.PutUUID(u)
	require.Len(t, e.Bytes(), 16)

	d := NewDecoder(e.Bytes())
	got, err := d.UUID()
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = NewDecoder(e.Bytes()[:10]).UUID()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

type pair struct {
	Name  string
	Count int32
}

func (p *pair) Encode(e Encoder) error {
	if err := e.PutString(p.Name); err != nil {
		return err
	}
	e.PutInt32(p.Count)
	return nil
}

func TestEncodeSizeMatchesBytes(t *testing.T) {
	p := &pair{Name: "events", Count: 12}

	size, err := Size(p)
	require.NoError(t, err)

	buf, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, size, len(buf))
}

func TestRawBytesAliasesBuffer(t *testing.T) {
	buf := []byte{0, 0, 0, 3, 'a', 'b', 'c'}
	d := NewDecoder(buf)
	v, err := d.Bytes()
	require.NoError(t, err)

	buf[4] = 'z'
	assert.Equal(t, []byte{'z', 'b', 'c'}, v, "Bytes must alias the input, not copy it")
}
