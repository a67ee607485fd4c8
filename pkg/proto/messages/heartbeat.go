package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// HeartbeatRequest is Heartbeat v1.
type HeartbeatRequest struct {
	GroupId      string
	GenerationId int32
	MemberId     string
}

func (*HeartbeatRequest) ApiKey() proto.ApiKey { return proto.Heartbeat }
func (*HeartbeatRequest) Version() int16 { return 1 }
func (*HeartbeatRequest) ResponseKind() proto.Response { return &HeartbeatResponse{} }

func (r *HeartbeatRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.GroupId); err != nil {
		return err
	}
	e.PutInt32(r.GenerationId)
	return e.PutString(r.MemberId)
}

func (r *HeartbeatRequest) Decode(d *wire.Decoder) error {
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
	return nil
}

type HeartbeatResponse struct {
	ThrottleTimeMs int32
	ErrorCode      proto.ErrorCode
}

func (r *HeartbeatResponse) Encode(e wire.Encoder) error {
	e.PutInt32(r.ThrottleTimeMs)
	e.PutInt16(int16(r.ErrorCode))
	return nil
}

func (r *HeartbeatResponse) Decode(d *wire.Decoder) error {
	var err error
	if r.ThrottleTimeMs, err = d.Int32(); err != nil {
		return wire.FieldError("throttle_time_ms", err)
	}
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	r.ErrorCode = proto.ErrorCode(code)
	return nil
}
