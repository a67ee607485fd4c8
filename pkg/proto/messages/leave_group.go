package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// LeaveGroupRequest is LeaveGroup v1, sent best-effort on shutdown.
type LeaveGroupRequest struct {
	GroupId  string
	MemberId string
}

func (*LeaveGroupRequest) ApiKey() proto.ApiKey { return proto.LeaveGroup }
func (*LeaveGroupRequest) Version() int16 { return 1 }
func (*LeaveGroupRequest) ResponseKind() proto.Response { return &LeaveGroupResponse{} }

func (r *LeaveGroupRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.GroupId); err != nil {
		return err
	}
	return e.PutString(r.MemberId)
}

func (r *LeaveGroupRequest) Decode(d *wire.Decoder) error {
	var err error
	if r.GroupId, err = d.String(); err != nil {
		return wire.FieldError("group_id", err)
	}
	if r.MemberId, err = d.String(); err != nil {
		return wire.FieldError("member_id", err)
	}
	return nil
}

type LeaveGroupResponse struct {
	ThrottleTimeMs int32
	ErrorCode      proto.ErrorCode
}

func (r *LeaveGroupResponse) Encode(e wire.Encoder) error {
	e.PutInt32(r.ThrottleTimeMs)
	e.PutInt16(int16(r.ErrorCode))
	return nil
}

func (r *LeaveGroupResponse) Decode(d *wire.Decoder) error {
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
