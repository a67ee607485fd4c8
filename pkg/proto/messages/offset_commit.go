package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// RetainOffsetsForever is the OffsetCommit retention sentinel asking the
// broker to apply its own configured retention.
const RetainOffsetsForever int64 = -1

// OffsetCommitRequest is OffsetCommit v2, addressed to the group
// coordinator.
type OffsetCommitRequest struct {
	GroupId         string
	GenerationId    int32
	MemberId        string
	RetentionTimeMs int64
	Topics          []OffsetCommitTopic
}

type OffsetCommitTopic struct {
	Name       string
	Partitions []OffsetCommitPartition
}

type OffsetCommitPartition struct {
	Index    int32
	Offset   int64
	Metadata *string
}

func (*OffsetCommitRequest) ApiKey() proto.ApiKey { return proto.OffsetCommit }
func (*OffsetCommitRequest) Version() int16 { return 2 }
func (*OffsetCommitRequest) ResponseKind() proto.Response { return &OffsetCommitResponse{} }

func (r *OffsetCommitRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.GroupId); err != nil {
		return err
	}
	e.PutInt32(r.GenerationId)
	if err := e.PutString(r.MemberId); err != nil {
		return err
	}
	e.PutInt64(r.RetentionTimeMs)
	if err := e.PutArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		if err := e.PutString(t.Name); err != nil {
			return err
		}
		if err := e.PutArrayLength(len(t.Partitions)); err != nil {
			return err
		}
		for _, p := range t.Partitions {
			e.PutInt32(p.Index)
			e.PutInt64(p.Offset)
			if err := e.PutNullableString(p.Metadata); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *OffsetCommitRequest) Decode(d *wire.Decoder) error {
	var err error
	if r.GroupId, err = d.String(); err != nil {
		return wire.FieldError("group_id", err)
	}
	if r.GenerationId, err = d.Int32(); err != nil {
		return wire.FieldError("generation_id", err)
	}
	if r.MemberId, err = d.String(); err != nil {
		return wire.FieldError("member_id", err)
	}
	if r.RetentionTimeMs, err = d.Int64(); err != nil {
		return wire.FieldError("retention_time_ms", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]OffsetCommitTopic, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		pn, err := d.ArrayLength()
		if err != nil {
			return wire.FieldError("topics.partitions", err)
		}
		t.Partitions = make([]OffsetCommitPartition, pn)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Index, err = d.Int32(); err != nil {
				return wire.FieldError("partitions.index", err)
			}
			if p.Offset, err = d.Int64(); err != nil {
				return wire.FieldError("partitions.offset", err)
			}
			if p.Metadata, err = d.NullableString(); err != nil {
				return wire.FieldError("partitions.metadata", err)
			}
		}
	}
	return nil
}

type OffsetCommitResponse struct {
	Topics []OffsetCommitResponseTopic
}

type OffsetCommitResponseTopic struct {
	Name       string
	Partitions []OffsetCommitResponsePartition
}

type OffsetCommitResponsePartition struct {
	Index     int32
	ErrorCode proto.ErrorCode
}

func (r *OffsetCommitResponse) Encode(e wire.Encoder) error {
	if err := e.PutArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		if err := e.PutString(t.Name); err != nil {
			return err
		}
		if err := e.PutArrayLength(len(t.Partitions)); err != nil {
			return err
		}
		for _, p := range t.Partitions {
			e.PutInt32(p.Index)
			e.PutInt16(int16(p.ErrorCode))
		}
	}
	return nil
}

func (r *OffsetCommitResponse) Decode(d *wire.Decoder) error {
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]OffsetCommitResponseTopic, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		pn, err := d.ArrayLength()
		if err != nil {
			return wire.FieldError("topics.partitions", err)
		}
		t.Partitions = make([]OffsetCommitResponsePartition, pn)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Index, err = d.Int32(); err != nil {
				return wire.FieldError("partitions.index", err)
			}
			code, err := d.Int16()
			if err != nil {
				return wire.FieldError("partitions.error_code", err)
			}
			p.ErrorCode = proto.ErrorCode(code)
		}
	}
	return nil
}
