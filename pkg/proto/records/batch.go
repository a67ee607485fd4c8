// Package records implements the Kafka v2 record batch format: the
// self-framed batch header, zigzag-varint record encoding, CRC-32C
// validation and the compression codecs a fetch response may carry.
package records

import (
	"github.com/klauspost/crc32"
	"github.com/pkg/errors"

	"github.com/grafana/kafkaclient/pkg/wire"
)

// ErrCRCMismatch is returned when a batch's stored checksum does not match
// its payload.
var ErrCRCMismatch = errors.New("record batch CRC mismatch")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const (
	// batchHeaderSize is base_offset through records count.
	batchHeaderSize = 61
	// batchFrameOverhead is base_offset plus batch_length, the part not
	// covered by batch_length itself.
	batchFrameOverhead = 12
	// crcOffset is where the attributes field (the first checksummed byte)
	// starts inside a framed batch.
	crcOffset = 21

	magicV2 = 2
)

// RecordBatch is one Kafka v2 batch. Key, value and header slices in its
// records alias the parse buffer; call Detach before keeping them past the
// frame.
type RecordBatch struct {
	BaseOffset           int64
	BatchLength          int32
	PartitionLeaderEpoch int32
	Magic                int8
	Crc                  uint32
	Attributes           int16
	LastOffsetDelta      int32
	FirstTimestamp       int64
	MaxTimestamp         int64
	ProducerId           int64
	ProducerEpoch        int16
	BaseSequence         int32
	Records              []Record
}

// Record is a single record inside a batch. Nil Key or Value means the
// field was null on the wire.
type Record struct {
	Length         int64
	Attributes     int8
	TimestampDelta int64
	OffsetDelta    int64
	Key            []byte
	Value          []byte
	Headers        []Header
}

// Header is a record header key/value pair.
type Header struct {
	Key   string
	Value []byte
}

// Compression returns the codec encoded in the batch attributes.
func (b *RecordBatch) Compression() Compression {
	return Compression(b.Attributes & compressionMask)
}

// NextOffset returns the offset right after the last record in the batch.
func (b *RecordBatch) NextOffset() int64 {
	return b.BaseOffset + int64(b.LastOffsetDelta) + 1
}

// Detach deep-copies every slice that aliases the parse buffer so the batch
// can outlive it.
func (b *RecordBatch) Detach() {
	for i := range b.Records {
		b.Records[i].Detach()
	}
}

// Detach deep-copies the record's key, value and header values.
func (r *Record) Detach() {
	if r.Key != nil {
		r.Key = append([]byte(nil), r.Key...)
	}
	if r.Value != nil {
		r.Value = append([]byte(nil), r.Value...)
	}
	for i := range r.Headers {
		r.Headers[i].Value = append([]byte(nil), r.Headers[i].Value...)
	}
}

// ParseSet parses the record-batch area of a fetch response partition. The
// broker may truncate the final batch at the fetch size boundary; an
// incomplete trailing batch is silently dropped, complete batches before it
// are returned. Corruption inside a complete batch is still an error.
func ParseSet(buf []byte) ([]RecordBatch, error) {
	var batches []RecordBatch
	for len(buf) >= batchFrameOverhead {
		d := wire.NewDecoder(buf)
		if _, err := d.Int64(); err != nil {
			return nil, wire.FieldError("base_offset", err)
		}
		batchLength, err := d.Int32()
		if err != nil {
			return nil, wire.FieldError("batch_length", err)
		}
		if batchLength < 0 {
			return nil, wire.FieldError("batch_length", wire.ErrInvalidLength)
		}
		total := batchFrameOverhead + int(batchLength)
		if total > len(buf) {
			// Truncated trailing batch at the fetch boundary.
			break
		}
		batch, err := parseBatch(buf[:total])
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
		buf = buf[total:]
	}
	return batches, nil
}

// parseBatch decodes exactly one framed batch.
func parseBatch(buf []byte) (RecordBatch, error) {
	var b RecordBatch
	d := wire.NewDecoder(buf)

	var err error
	if b.BaseOffset, err = d.Int64(); err != nil {
		return b, wire.FieldError("base_offset", err)
	}
	if b.BatchLength, err = d.Int32(); err != nil {
		return b, wire.FieldError("batch_length", err)
	}
	if b.PartitionLeaderEpoch, err = d.Int32(); err != nil {
		return b, wire.FieldError("partition_leader_epoch", err)
	}
	if b.Magic, err = d.Int8(); err != nil {
		return b, wire.FieldError("magic", err)
	}
	if b.Magic != magicV2 {
		return b, wire.FieldError("magic", errors.Errorf("unsupported magic %d", b.Magic))
	}
	if b.Crc, err = d.Uint32(); err != nil {
		return b, wire.FieldError("crc", err)
	}
	if computed := crc32.Checksum(buf[crcOffset:], castagnoli); computed != b.Crc {
		return b, errors.Wrapf(ErrCRCMismatch, "stored %08x computed %08x", b.Crc, computed)
	}
	if b.Attributes, err = d.Int16(); err != nil {
		return b, wire.FieldError("attributes", err)
	}
	if b.LastOffsetDelta, err = d.Int32(); err != nil {
		return b, wire.FieldError("last_offset_delta", err)
	}
	if b.FirstTimestamp, err = d.Int64(); err != nil {
		return b, wire.FieldError("first_timestamp", err)
	}
	if b.MaxTimestamp, err = d.Int64(); err != nil {
		return b, wire.FieldError("max_timestamp", err)
	}
	if b.ProducerId, err = d.Int64(); err != nil {
		return b, wire.FieldError("producer_id", err)
	}
	if b.ProducerEpoch, err = d.Int16(); err != nil {
		return b, wire.FieldError("producer_epoch", err)
	}
	if b.BaseSequence, err = d.Int32(); err != nil {
		return b, wire.FieldError("base_sequence", err)
	}

	count, err := d.Int32()
	if err != nil {
		return b, wire.FieldError("records_count", err)
	}
	if count < 0 {
		return b, wire.FieldError("records_count", wire.ErrInvalidLength)
	}

	payload, err := d.RawBytes(d.Remaining())
	if err != nil {
		return b, wire.FieldError("records", err)
	}
	if payload, err = decompress(b.Compression(), payload); err != nil {
		return b, wire.FieldError("records", err)
	}

	rd := wire.NewDecoder(payload)
	b.Records = make([]Record, count)
	for i := range b.Records {
		if err := b.Records[i].decode(rd); err != nil {
			return b, wire.FieldError("records", err)
		}
	}
	if err := rd.ExpectEmpty(); err != nil {
		return b, wire.FieldError("records", err)
	}

	return b, nil
}

func (r *Record) decode(d *wire.Decoder) error {
	var err error
	if r.Length, err = d.Varint(); err != nil {
		return wire.FieldError("length", err)
	}
	if r.Attributes, err = d.Int8(); err != nil {
		return wire.FieldError("attributes", err)
	}
	if r.TimestampDelta, err = d.Varint(); err != nil {
		return wire.FieldError("timestamp_delta", err)
	}
	if r.OffsetDelta, err = d.Varint(); err != nil {
		return wire.FieldError("offset_delta", err)
	}
	if r.Key, err = varintBytes(d); err != nil {
		return wire.FieldError("key", err)
	}
	if r.Value, err = varintBytes(d); err != nil {
		return wire.FieldError("value", err)
	}

	count, err := d.Varint()
	if err != nil {
		return wire.FieldError("headers", err)
	}
	if count < 0 {
		return wire.FieldError("headers", wire.ErrInvalidLength)
	}
	r.Headers = make([]Header, count)
	for i := range r.Headers {
		if err := r.Headers[i].decode(d); err != nil {
			return wire.FieldError("headers", err)
		}
	}
	return nil
}

func (h *Header) decode(d *wire.Decoder) error {
	n, err := d.Varint()
	if err != nil {
		return wire.FieldError("key", err)
	}
	if n < 0 {
		return wire.FieldError("key", wire.ErrInvalidLength)
	}
	raw, err := d.RawBytes(int(n))
	if err != nil {
		return wire.FieldError("key", err)
	}
	h.Key = string(raw)
	if n, err = d.Varint(); err != nil {
		return wire.FieldError("value", err)
	}
	if n < 0 {
		return wire.FieldError("value", wire.ErrInvalidLength)
	}
	if h.Value, err = d.RawBytes(int(n)); err != nil {
		return wire.FieldError("value", err)
	}
	return nil
}

// varintBytes reads a varint-length-prefixed byte slice where -1 is null.
func varintBytes(d *wire.Decoder) ([]byte, error) {
	n, err := d.Varint()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, wire.ErrInvalidLength
	}
	return d.RawBytes(int(n))
}

// Marshal serializes the batch, compressing the records area per the
// attributes codec and computing BatchLength, Crc and Length fields as it
// goes. The computed values are also written back into b so a marshal
// followed by ParseSet round-trips to an equal value.
func (b *RecordBatch) Marshal() ([]byte, error) {
	payload, err := b.marshalRecords()
	if err != nil {
		return nil, err
	}
	if payload, err = compress(b.Compression(), payload); err != nil {
		return nil, err
	}

	total := batchHeaderSize + len(payload)
	b.BatchLength = int32(total - batchFrameOverhead)

	buf := make([]byte, total)
	e := wire.NewByteEncoder(buf)
	e.PutInt64(b.BaseOffset)
	e.PutInt32(b.BatchLength)
	e.PutInt32(b.PartitionLeaderEpoch)
	e.PutInt8(magicV2)
	e.PutUint32(0) // crc backfilled below
	e.PutInt16(b.Attributes)
	e.PutInt32(b.LastOffsetDelta)
	e.PutInt64(b.FirstTimestamp)
	e.PutInt64(b.MaxTimestamp)
	e.PutInt64(b.ProducerId)
	e.PutInt16(b.ProducerEpoch)
	e.PutInt32(b.BaseSequence)
	e.PutInt32(int32(len(b.Records)))
	e.PutRawBytes(payload)

	b.Magic = magicV2
	b.Crc = crc32.Checksum(buf[crcOffset:], castagnoli)
	wire.NewByteEncoder(buf[17:]).PutUint32(b.Crc)

	return buf, nil
}

func (b *RecordBatch) marshalRecords() ([]byte, error) {
	e := &wire.SizeEncoder{}
	for i := range b.Records {
		if err := b.Records[i].encode(e, true); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, e.Size())
	be := wire.NewByteEncoder(buf)
	for i := range b.Records {
		if err := b.Records[i].encode(be, false); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// encode writes the record. The length prefix is the body size, so the body
// is sized first; sizing passes recompute it, the write pass reuses the
// value stored by the sizing pass.
func (r *Record) encode(e wire.Encoder, sizing bool) error {
	if sizing {
		body := &wire.SizeEncoder{}
		if err := r.encodeBody(body); err != nil {
			return err
		}
		r.Length = int64(body.Size())
	}
	e.PutVarint(r.Length)
	return r.encodeBody(e)
}

func (r *Record) encodeBody(e wire.Encoder) error {
	e.PutInt8(r.Attributes)
	e.PutVarint(r.TimestampDelta)
	e.PutVarint(r.OffsetDelta)
	putVarintBytes(e, r.Key)
	putVarintBytes(e, r.Value)
	e.PutVarint(int64(len(r.Headers)))
	for _, h := range r.Headers {
		e.PutVarint(int64(len(h.Key)))
		e.PutRawBytes([]byte(h.Key))
		e.PutVarint(int64(len(h.Value)))
		e.PutRawBytes(h.Value)
	}
	return nil
}

func putVarintBytes(e wire.Encoder, in []byte) {
	if in == nil {
		e.PutVarint(-1)
		return
	}
	e.PutVarint(int64(len(in)))
	e.PutRawBytes(in)
}
