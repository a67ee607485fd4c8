package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// OffsetFetchRequest is OffsetFetch v1, addressed to the group coordinator.
type OffsetFetchRequest struct {
	GroupId string
	Topics  []OffsetFetchTopic
}

type OffsetFetchTopic struct {
	Name             string
	PartitionIndexes []int32
}

func (*OffsetFetchRequest) ApiKey() proto.ApiKey { return proto.OffsetFetch }
func (*OffsetFetchRequest) Version() int16 { return 1 }
func (*OffsetFetchRequest) ResponseKind() proto.Response { return &OffsetFetchResponse{} }

func (r *OffsetFetchRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.GroupId); err != nil {
		return err
	}
	if err := e.PutArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		if err := e.PutString(t.Name); err != nil {
			return err
		}
		if err := putInt32Array(e, t.PartitionIndexes); err != nil {
			return err
		}
	}
	return nil
}

func (r *OffsetFetchRequest) Decode(d *wire.Decoder) error {
	var err error
	if r.GroupId, err = d.String(); err != nil {
		return wire.FieldError("group_id", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]OffsetFetchTopic, n)
	for i := range r.Topics {
		if r.Topics[i].Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		if r.Topics[i].PartitionIndexes, err = getInt32Array(d); err != nil {
			return wire.FieldError("topics.partition_indexes", err)
		}
	}
	return nil
}

type OffsetFetchResponse struct {
	Topics []OffsetFetchResponseTopic
}

type OffsetFetchResponseTopic struct {
	Name       string
	Partitions []OffsetFetchResponsePartition
}

type OffsetFetchResponsePartition struct {
	Index int32
	// CommittedOffset is -1 when the group has never committed this
	// partition.
	CommittedOffset int64
	Metadata        *string
	ErrorCode       proto.ErrorCode
}

func (r *OffsetFetchResponse) Encode(e wire.Encoder) error {
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
			e.PutInt64(p.CommittedOffset)
			if err := e.PutNullableString(p.Metadata); err != nil {
				return err
			}
			e.PutInt16(int16(p.ErrorCode))
		}
	}
	return nil
}

func (r *OffsetFetchResponse) Decode(d *wire.Decoder) error {
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]OffsetFetchResponseTopic, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		pn, err := d.ArrayLength()
		if err != nil {
			return wire.FieldError("topics.partitions", err)
		}
		t.Partitions = make([]OffsetFetchResponsePartition, pn)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Index, err = d.Int32(); err != nil {
				return wire.FieldError("partitions.index", err)
			}
			if p.CommittedOffset, err = d.Int64(); err != nil {
				return wire.FieldError("partitions.committed_offset", err)
			}
			if p.Metadata, err = d.NullableString(); err != nil {
				return wire.FieldError("partitions.metadata", err)
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
