package messages

import (
	"math"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// MetadataRequest is Metadata v2. An empty topic list is sent as a
// zero-length array, which asks for broker metadata and no topics.
type MetadataRequest struct {
	Topics []string
}

func (*MetadataRequest) ApiKey() proto.ApiKey { return proto.Metadata }
func (*MetadataRequest) Version() int16 { return 2 }
func (*MetadataRequest) ResponseKind() proto.Response { return &MetadataResponse{} }

func (r *MetadataRequest) Encode(e wire.Encoder) error {
	if err := e.PutArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		if err := e.PutString(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *MetadataRequest) Decode(d *wire.Decoder) error {
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]string, n)
	for i := 0; i < n; i++ {
		if r.Topics[i], err = d.String(); err != nil {
			return wire.FieldError("topics", err)
		}
	}
	return nil
}

type MetadataResponse struct {
	Brokers      []BrokerMetadata
	ClusterId    *string
	ControllerId int32
	Topics       []TopicMetadata
}

type BrokerMetadata struct {
	NodeId proto.BrokerId
	Host   string
	// Port travels as an i32 on the wire; values outside uint16 are a parse
	// error.
	Port uint16
	Rack *string
}

type TopicMetadata struct {
	Error      proto.ErrorCode
	Name       string
	IsInternal bool
	Partitions []PartitionMetadata
}

type PartitionMetadata struct {
	Error          proto.ErrorCode
	PartitionIndex int32
	Leader         proto.BrokerId
	Replicas       []int32
	Isr            []int32
}

func (r *MetadataResponse) Encode(e wire.Encoder) error {
	if err := e.PutArrayLength(len(r.Brokers)); err != nil {
		return err
	}
	for _, b := range r.Brokers {
		e.PutInt32(int32(b.NodeId))
		if err := e.PutString(b.Host); err != nil {
			return err
		}
		e.PutInt32(int32(b.Port))
		if err := e.PutNullableString(b.Rack); err != nil {
			return err
		}
	}
	if err := e.PutNullableString(r.ClusterId); err != nil {
		return err
	}
	e.PutInt32(r.ControllerId)
	if err := e.PutArrayLength(len(r.Topics)); err != nil {
		return err
	}
	for _, t := range r.Topics {
		if err := t.encode(e); err != nil {
			return err
		}
	}
	return nil
}

func (t *TopicMetadata) encode(e wire.Encoder) error {
	e.PutInt16(int16(t.Error))
	if err := e.PutString(t.Name); err != nil {
		return err
	}
	e.PutBool(t.IsInternal)
	if err := e.PutArrayLength(len(t.Partitions)); err != nil {
		return err
	}
	for _, p := range t.Partitions {
		e.PutInt16(int16(p.Error))
		e.PutInt32(p.PartitionIndex)
		e.PutInt32(int32(p.Leader))
		if err := putInt32Array(e, p.Replicas); err != nil {
			return err
		}
		if err := putInt32Array(e, p.Isr); err != nil {
			return err
		}
	}
	return nil
}

func (r *MetadataResponse) Decode(d *wire.Decoder) error {
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("brokers", err)
	}
	r.Brokers = make([]BrokerMetadata, n)
	for i := range r.Brokers {
		if err := r.Brokers[i].decode(d); err != nil {
			return wire.FieldError("brokers", err)
		}
	}
	if r.ClusterId, err = d.NullableString(); err != nil {
		return wire.FieldError("cluster_id", err)
	}
	if r.ControllerId, err = d.Int32(); err != nil {
		return wire.FieldError("controller_id", err)
	}
	if n, err = d.ArrayLength(); err != nil {
		return wire.FieldError("topics", err)
	}
	r.Topics = make([]TopicMetadata, n)
	for i := range r.Topics {
		if err := r.Topics[i].decode(d); err != nil {
			return wire.FieldError("topics", err)
		}
	}
	return nil
}

func (b *BrokerMetadata) decode(d *wire.Decoder) error {
	nodeId, err := d.Int32()
	if err != nil {
		return wire.FieldError("node_id", err)
	}
	b.NodeId = proto.BrokerId(nodeId)
	if b.Host, err = d.String(); err != nil {
		return wire.FieldError("host", err)
	}
	port, err := d.Int32()
	if err != nil {
		return wire.FieldError("port", err)
	}
	if port < 0 || port > math.MaxUint16 {
		return wire.FieldError("port", wire.ErrInvalidLength)
	}
	b.Port = uint16(port)
	if b.Rack, err = d.NullableString(); err != nil {
		return wire.FieldError("rack", err)
	}
	return nil
}

func (t *TopicMetadata) decode(d *wire.Decoder) error {
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	t.Error = proto.ErrorCode(code)
	if t.Name, err = d.String(); err != nil {
		return wire.FieldError("name", err)
	}
	if t.IsInternal, err = d.Bool(); err != nil {
		return wire.FieldError("is_internal", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("partitions", err)
	}
	t.Partitions = make([]PartitionMetadata, n)
	for i := range t.Partitions {
		if err := t.Partitions[i].decode(d); err != nil {
			return wire.FieldError("partitions", err)
		}
	}
	return nil
}

func (p *PartitionMetadata) decode(d *wire.Decoder) error {
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	p.Error = proto.ErrorCode(code)
	if p.PartitionIndex, err = d.Int32(); err != nil {
		return wire.FieldError("partition_index", err)
	}
	leader, err := d.Int32()
	if err != nil {
		return wire.FieldError("leader", err)
	}
	p.Leader = proto.BrokerId(leader)
	if p.Replicas, err = getInt32Array(d); err != nil {
		return wire.FieldError("replicas", err)
	}
	if p.Isr, err = getInt32Array(d); err != nil {
		return wire.FieldError("isr", err)
	}
	return nil
}

func putInt32Array(e wire.Encoder, in []int32) error {
	if err := e.PutArrayLength(len(in)); err != nil {
		return err
	}
	for _, v := range in {
		e.PutInt32(v)
	}
	return nil
}

func getInt32Array(d *wire.Decoder) ([]int32, error) {
	n, err := d.ArrayLength()
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		if out[i], err = d.Int32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
