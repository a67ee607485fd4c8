package messages

import (
	"fmt"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// IsolationLevel controls which records a fetch may observe.
type IsolationLevel int8

const (
	ReadUncommitted IsolationLevel = 0
	ReadCommitted   IsolationLevel = 1
)

// FetchRequest is Fetch v4. ReplicaId is always -1 for a consumer.
type FetchRequest struct {
	ReplicaId      int32
	MaxWaitTimeMs  int32
	MinBytes       int32
	MaxBytes       int32
	IsolationLevel IsolationLevel
	Topics         []FetchTopic
}

type FetchTopic struct {
	Name       string
	Partitions []FetchPartition
}

type FetchPartition struct {
	Index             int32
	FetchOffset       int64
	PartitionMaxBytes int32
}

func (*FetchRequest) ApiKey() proto.ApiKey { return proto.Fetch }
func (*FetchRequest) Version() int16 { return 4 }
func (*FetchRequest) ResponseKind() proto.Response { return &FetchResponse{} }

func (r *FetchRequest) Encode(e wire.Encoder) error {
	e.PutInt32(r.ReplicaId)
	e.PutInt32(r.MaxWaitTimeMs)
	e.PutInt32(r.MinBytes)
	e.PutInt32(r.MaxBytes)
	e.PutInt8(int8(r.IsolationLevel))
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
			e.PutInt64(p.FetchOffset)
			e.PutInt32(p.PartitionMaxBytes)
		}
	}
	return nil
}

func (r *FetchRequest) Decode(d *wire.Decoder) error {
	var err error
	if r.ReplicaId, err = d.Int32(); err != nil {
		return wire.FieldError("replica_id", err)
	}
	if r.MaxWaitTimeMs, err = d.Int32(); err != nil {
		return wire.FieldError("max_wait_time", err)
	}
	if r.MinBytes, err = d.Int32(); err != nil {
		return wire.FieldError("min_bytes", err)
	}
	if r.MaxBytes, err = d.Int32(); err != nil {
		return wire.FieldError("max_bytes", err)
	}
	level, err := d.Int8()
	if err != nil {
		return wire.FieldError("isolation_level", err)
	}
	if level != int8(ReadUncommitted) && level != int8(ReadCommitted) {
		return wire.FieldError("isolation_level", fmt.Errorf("unknown isolation level %d", level))
	}
	r.IsolationLevel = IsolationLevel(level)
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]FetchTopic, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		pn, err := d.ArrayLength()
		if err != nil {
			return wire.FieldError("topics.partitions", err)
		}
		t.Partitions = make([]FetchPartition, pn)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Index, err = d.Int32(); err != nil {
				return wire.FieldError("partitions.index", err)
			}
			if p.FetchOffset, err = d.Int64(); err != nil {
				return wire.FieldError("partitions.fetch_offset", err)
			}
			if p.PartitionMaxBytes, err = d.Int32(); err != nil {
				return wire.FieldError("partitions.partition_max_bytes", err)
			}
		}
	}
	return nil
}

type FetchResponse struct {
	ThrottleTimeMs int32
	Topics         []FetchResponseTopic
}

type FetchResponseTopic struct {
	Name       string
	Partitions []FetchResponsePartition
}

type FetchResponsePartition struct {
	Index               int32
	ErrorCode           proto.ErrorCode
	HighWatermark       int64
	LastStableOffset    int64
	AbortedTransactions []AbortedTransaction
	// RecordSet is the raw record-batch area. It aliases the response
	// buffer; parse it with records.ParseSet.
	RecordSet []byte
}

type AbortedTransaction struct {
	ProducerId  int64
	FirstOffset int64
}

func (r *FetchResponse) Encode(e wire.Encoder) error {
	e.PutInt32(r.ThrottleTimeMs)
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
			e.PutInt64(p.HighWatermark)
			e.PutInt64(p.LastStableOffset)
			if err := e.PutArrayLength(len(p.AbortedTransactions)); err != nil {
				return err
			}
			for _, a := range p.AbortedTransactions {
				e.PutInt64(a.ProducerId)
				e.PutInt64(a.FirstOffset)
			}
			if err := e.PutNullableBytes(p.RecordSet); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *FetchResponse) Decode(d *wire.Decoder) error {
	var err error
	if r.ThrottleTimeMs, err = d.Int32(); err != nil {
		return wire.FieldError("throttle_time_ms", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]FetchResponseTopic, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		pn, err := d.ArrayLength()
		if err != nil {
			return wire.FieldError("topics.partitions", err)
		}
		t.Partitions = make([]FetchResponsePartition, pn)
		for j := range t.Partitions {
			if err := t.Partitions[j].decode(d); err != nil {
				return wire.FieldError("topics.partitions", err)
			}
		}
	}
	return nil
}

func (p *FetchResponsePartition) decode(d *wire.Decoder) error {
	var err error
	if p.Index, err = d.Int32(); err != nil {
		return wire.FieldError("index", err)
	}
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	p.ErrorCode = proto.ErrorCode(code)
	if p.HighWatermark, err = d.Int64(); err != nil {
		return wire.FieldError("high_watermark", err)
	}
	if p.LastStableOffset, err = d.Int64(); err != nil {
		return wire.FieldError("last_stable_offset", err)
	}
	an, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("aborted_transactions", err)
	}
	p.AbortedTransactions = make([]AbortedTransaction, an)
	for i := range p.AbortedTransactions {
		a := &p.AbortedTransactions[i]
		if a.ProducerId, err = d.Int64(); err != nil {
			return wire.FieldError("aborted_transactions.producer_id", err)
		}
		if a.FirstOffset, err = d.Int64(); err != nil {
			return wire.FieldError("aborted_transactions.first_offset", err)
		}
	}
	if p.RecordSet, err = d.NullableBytes(); err != nil {
		return wire.FieldError("record_set", err)
	}
	return nil
}
