package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// SyncGroupRequest is SyncGroup v2. Followers send an empty assignment
// list; the leader sends one entry per member.
type SyncGroupRequest struct {
	GroupId      string
	GenerationId int32
	MemberId     string
	Assignments  []SyncGroupAssignment
}

type SyncGroupAssignment struct {
	MemberId   string
	Assignment []byte
}

func (*SyncGroupRequest) ApiKey() proto.ApiKey { return proto.SyncGroup }
func (*SyncGroupRequest) Version() int16 { return 2 }
func (*SyncGroupRequest) ResponseKind() proto.Response { return &SyncGroupResponse{} }

func (r *SyncGroupRequest) Encode(e wire.Encoder) error {
	if err := e.PutString(r.GroupId); err != nil {
		return err
	}
	e.PutInt32(r.GenerationId)
	if err := e.PutString(r.MemberId); err != nil {
		return err
	}
	if err := e.PutArrayLength(len(r.Assignments)); err != nil {
		return err
	}
	for _, a := range r.Assignments {
		if err := e.PutString(a.MemberId); err != nil {
			return err
		}
		if err := e.PutBytes(a.Assignment); err != nil {
			return err
		}
	}
	return nil
}

func (r *SyncGroupRequest) Decode(d *wire.Decoder) error {
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
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("assignments", err)
	}
	r.Assignments = make([]SyncGroupAssignment, n)
	for i := range r.Assignments {
		if r.Assignments[i].MemberId, err = d.String(); err != nil {
			return wire.FieldError("assignments.member_id", err)
		}
		if r.Assignments[i].Assignment, err = d.Bytes(); err != nil {
			return wire.FieldError("assignments.assignment", err)
		}
	}
	return nil
}

type SyncGroupResponse struct {
	ThrottleTimeMs int32
	ErrorCode      proto.ErrorCode
	// Assignment is this member's MemberAssignment blob.
	Assignment []byte
}

func (r *SyncGroupResponse) Encode(e wire.Encoder) error {
	e.PutInt32(r.ThrottleTimeMs)
	e.PutInt16(int16(r.ErrorCode))
	return e.PutBytes(r.Assignment)
}

func (r *SyncGroupResponse) Decode(d *wire.Decoder) error {
	var err error
	if r.ThrottleTimeMs, err = d.Int32(); err != nil {
		return wire.FieldError("throttle_time_ms", err)
	}
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	r.ErrorCode = proto.ErrorCode(code)
	if r.Assignment, err = d.Bytes(); err != nil {
		return wire.FieldError("assignment", err)
	}
	return nil
}
