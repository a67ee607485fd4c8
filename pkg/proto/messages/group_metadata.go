package messages

import (
	"sort"

	"github.com/grafana/kafkaclient/pkg/wire"
)

// GroupProtocolMetadata is the consumer-protocol subscription blob carried
// inside JoinGroup protocol entries: version, subscribed topics, opaque
// user data.
type GroupProtocolMetadata struct {
	Version  int16
	Topics   []string
	UserData []byte
}

func (m *GroupProtocolMetadata) Encode(e wire.Encoder) error {
	e.PutInt16(m.Version)
	if err := e.PutArrayLength(len(m.Topics)); err != nil {
		return err
	}
	for _, t := range m.Topics {
		if err := e.PutString(t); err != nil {
			return err
		}
	}
	return e.PutBytes(m.UserData)
}

func (m *GroupProtocolMetadata) Decode(d *wire.Decoder) error {
	var err error
	if m.Version, err = d.Int16(); err != nil {
		return wire.FieldError("version", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	m.Topics = make([]string, n)
	for i := range m.Topics {
		if m.Topics[i], err = d.String(); err != nil {
			return wire.FieldError("topics", err)
		}
	}
	if m.UserData, err = d.Bytes(); err != nil {
		return wire.FieldError("user_data", err)
	}
	return nil
}

// Bytes serializes the blob for embedding in a bytes field.
func (m *GroupProtocolMetadata) Bytes() ([]byte, error) {
	return wire.Encode(m)
}

// ParseGroupProtocolMetadata decodes a subscription blob.
func ParseGroupProtocolMetadata(raw []byte) (*GroupProtocolMetadata, error) {
	m := &GroupProtocolMetadata{}
	d := wire.NewDecoder(raw)
	if err := m.Decode(d); err != nil {
		return nil, wire.FieldError("group protocol metadata", err)
	}
	return m, nil
}

// MemberAssignment is the consumer-protocol assignment blob carried inside
// SyncGroup: version, per-topic partition lists, opaque user data.
type MemberAssignment struct {
	Version  int16
	Topics   []AssignedTopic
	UserData []byte
}

type AssignedTopic struct {
	Name       string
	Partitions []int32
}

func (m *MemberAssignment) Encode(e wire.Encoder) error {
	e.PutInt16(m.Version)
	if err := e.PutArrayLength(len(m.Topics)); err != nil {
		return err
	}
	for _, t := range m.Topics {
		if err := e.PutString(t.Name); err != nil {
			return err
		}
		if err := putInt32Array(e, t.Partitions); err != nil {
			return err
		}
	}
	return e.PutBytes(m.UserData)
}

func (m *MemberAssignment) Decode(d *wire.Decoder) error {
	var err error
	if m.Version, err = d.Int16(); err != nil {
		return wire.FieldError("version", err)
	}
	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("topics", err)
	}
	m.Topics = make([]AssignedTopic, n)
	for i := range m.Topics {
		if m.Topics[i].Name, err = d.String(); err != nil {
			return wire.FieldError("topics.name", err)
		}
		if m.Topics[i].Partitions, err = getInt32Array(d); err != nil {
			return wire.FieldError("topics.partitions", err)
		}
	}
	if m.UserData, err = d.Bytes(); err != nil {
		return wire.FieldError("user_data", err)
	}
	return nil
}

// Bytes serializes the blob for embedding in a bytes field.
func (m *MemberAssignment) Bytes() ([]byte, error) {
	return wire.Encode(m)
}

// ParseMemberAssignment decodes an assignment blob.
func ParseMemberAssignment(raw []byte) (*MemberAssignment, error) {
	m := &MemberAssignment{}
	d := wire.NewDecoder(raw)
	if err := m.Decode(d); err != nil {
		return nil, wire.FieldError("member assignment", err)
	}
	return m, nil
}

// AssignedPartitions flattens the blob into a topic to partitions map.
func (m *MemberAssignment) AssignedPartitions() map[string][]int32 {
	out := make(map[string][]int32, len(m.Topics))
	for _, t := range m.Topics {
		out[t.Name] = append(out[t.Name], t.Partitions...)
	}
	return out
}

// NewMemberAssignment builds a blob from a topic to partitions map with
// topics and partitions sorted, so identical inputs serialize identically
// regardless of map order.
func NewMemberAssignment(assigned map[string][]int32) *MemberAssignment {
	topics := make([]AssignedTopic, 0, len(assigned))
	for name, partitions := range assigned {
		sorted := append([]int32(nil), partitions...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		topics = append(topics, AssignedTopic{Name: name, Partitions: sorted})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return &MemberAssignment{Topics: topics, UserData: []byte{}}
}
