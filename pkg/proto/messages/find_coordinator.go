package messages

import (
	"math"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// CoordinatorKeyType selects what kind of coordinator is being located.
type CoordinatorKeyType int8

const (
	CoordinatorGroup CoordinatorKeyType = 0
)

// FindCoordinatorRequest is FindCoordinator v2.
type FindCoordinatorRequest struct {
	Key     string
	KeyType CoordinatorKeyType
}

func (*FindCoordinatorRequest) ApiKey() proto.ApiKey { return proto.FindCoordinator }
func (*FindCoordinatorRequest) Version() int16 { return 2 }
func (*FindCoordinatorRequest) ResponseKind() proto.Response { return &FindCoordinatorResponse{} }

func (r *FindCoordinatorRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.Key); err != nil {
		return err
	}
	e.PutInt8(int8(r.KeyType))
	return nil
}

func (r *FindCoordinatorRequest) Decode(d *wire.Decoder) error {
	var err error
	if r.Key, err = d.String(); err != nil {
		return wire.FieldError("key", err)
	}
	keyType, err := d.Int8()
	if err != nil {
		return wire.FieldError("key_type", err)
	}
	r.KeyType = CoordinatorKeyType(keyType)
	return nil
}

type FindCoordinatorResponse struct {
	ThrottleTimeMs int32
	ErrorCode      proto.ErrorCode
	ErrorMessage   *string
	NodeId         proto.BrokerId
	Host           string
	Port           uint16
}

func (r *FindCoordinatorResponse) Encode(e wire.Encoder) error {
	e.PutInt32(r.ThrottleTimeMs)
	e.PutInt16(int16(r.ErrorCode))
	if err := e.PutNullableString(r.ErrorMessage); err != nil {
		return err
	}
	e.PutInt32(int32(r.NodeId))
	if err := e.PutString(r.Host); err != nil {
		return err
	}
	e.PutInt32(int32(r.Port))
	return nil
}

func (r *FindCoordinatorResponse) Decode(d *wire.Decoder) error {
	var err error
	if r.ThrottleTimeMs, err = d.Int32(); err != nil {
		return wire.FieldError("throttle_time_ms", err)
	}
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	r.ErrorCode = proto.ErrorCode(code)
	if r.ErrorMessage, err = d.NullableString(); err != nil {
		return wire.FieldError("error_message", err)
	}
	nodeId, err := d.Int32()
	if err != nil {
		return wire.FieldError("node_id", err)
	}
	r.NodeId = proto.BrokerId(nodeId)
	if r.Host, err = d.String(); err != nil {
		return wire.FieldError("host", err)
	}
	port, err := d.Int32()
	if err != nil {
		return wire.FieldError("port", err)
	}
	if port < 0 || port > math.MaxUint16 {
		return wire.FieldError("port", wire.ErrInvalidLength)
	}
	r.Port = uint16(port)
	return nil
}
