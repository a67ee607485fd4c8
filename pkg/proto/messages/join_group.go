package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// JoinGroupRequest is JoinGroup v4. MemberId is empty on first contact; the
// coordinator answers MEMBER_ID_REQUIRED with an assigned id that the
// client echoes on the retry.
type JoinGroupRequest struct {
	GroupId            string
	SessionTimeoutMs   int32
	RebalanceTimeoutMs int32
	MemberId           string
	ProtocolType       string
	Protocols          []GroupProtocol
}

type GroupProtocol struct {
	Name     string
	Metadata []byte
}

func (*JoinGroupRequest) ApiKey() proto.ApiKey { return proto.JoinGroup }
func (*JoinGroupRequest) Version() int16 { return 4 }
func (*JoinGroupRequest) ResponseKind() proto.Response { return &JoinGroupResponse{} }

func (r *JoinGroupRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.GroupId); err != nil {
		return err
	}
	e.PutInt32(r.SessionTimeoutMs)
	e.PutInt32(r.RebalanceTimeoutMs)
	if err := e.PutString(r.MemberId); err != nil {
		return err
	}
	if err := e.PutString(r.ProtocolType); err != nil {
		return err
	}
	if err := e.PutArrayLength(len(r.Protocols)); err != nil {
		return err
	}
	for _, p := range r.Protocols {
		if err := e.PutString(p.Name); err != nil {
			return err
		}
		if err := e.PutBytes(p.Metadata); err != nil {
			return err
		}
	}
	return nil
}

func (r *JoinGroupRequest) Decode(d *wire.Decoder) error {
	var err error
	if r.GroupId, err = d.String(); err != nil {
		return wire.FieldError("group_id", err)
	}
	if r.SessionTimeoutMs, err = d.Int32(); err != nil {
		return wire.FieldError("session_timeout_ms", err)
	}
	if r.RebalanceTimeoutMs, err = d.Int32(); err != nil {
		return wire.FieldError("rebalance_timeout_ms", err)
	}
	if r.MemberId, err = d.String(); err != nil {
		return wire.FieldError("member_id", err)
	}
	if r.ProtocolType, err = d.String(); err != nil {
		return wire.FieldError("protocol_type", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("protocols", err)
	}
	r.Protocols = make([]GroupProtocol, n)
	for i := range r.Protocols {
		if r.Protocols[i].Name, err = d.String(); err != nil {
			return wire.FieldError("protocols.name", err)
		}
		if r.Protocols[i].Metadata, err = d.Bytes(); err != nil {
			return wire.FieldError("protocols.metadata", err)
		}
	}
	return nil
}

type JoinGroupResponse struct {
	ThrottleTimeMs int32
	ErrorCode      proto.ErrorCode
	GenerationId   int32
	ProtocolName   string
	Leader         string
	MemberId       string
	// Members is non-empty only in the leader's response; the leader
	// computes the assignment for everyone listed here.
	Members []JoinGroupMember
}

type JoinGroupMember struct {
	MemberId string
	Metadata []byte
}

func (r *JoinGroupResponse) Encode(e wire.Encoder) error {
	e.PutInt32(r.ThrottleTimeMs)
	e.PutInt16(int16(r.ErrorCode))
	e.PutInt32(r.GenerationId)
	if err := e.PutString(r.ProtocolName); err != nil {
		return err
	}
	if err := e.PutString(r.Leader); err != nil {
		return err
	}
	if err := e.PutString(r.MemberId); err != nil {
		return err
	}
	if err := e.PutArrayLength(len(r.Members)); err != nil {
		return err
	}
	for _, m := range r.Members {
		if err := e.PutString(m.MemberId); err != nil {
			return err
		}
		if err := e.PutBytes(m.Metadata); err != nil {
			return err
		}
	}
	return nil
}

func (r *JoinGroupResponse) Decode(d *wire.Decoder) error {
	var err error
	if r.ThrottleTimeMs, err = d.Int32(); err != nil {
		return wire.FieldError("throttle_time_ms", err)
	}
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	r.ErrorCode = proto.ErrorCode(code)
	if r.GenerationId, err = d.Int32(); err != nil {
		return wire.FieldError("generation_id", err)
	}
	if r.ProtocolName, err = d.String(); err != nil {
		return wire.FieldError("protocol_name", err)
	}
	if r.Leader, err = d.String(); err != nil {
		return wire.FieldError("leader", err)
	}
	if r.MemberId, err = d.String(); err != nil {
		return wire.FieldError("member_id", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("members", err)
	}
	r.Members = make([]JoinGroupMember, n)
	for i := range r.Members {
		if r.Members[i].MemberId, err = d.String(); err != nil {
			return wire.FieldError("members.member_id", err)
		}
		if r.Members[i].Metadata, err = d.Bytes(); err != nil {
			return wire.FieldError("members.metadata", err)
		}
	}
	return nil
}
