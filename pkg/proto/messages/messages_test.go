package messages

import (
	"encoding/hex"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// roundTrip encodes m, decodes the bytes into out and verifies the exact
// size and full equality, plus that nothing is left in the buffer.
func roundTrip(t *testing.T, m wire.Encodable, out interface {
	Decode(*wire.Decoder) error
}) {
	t.Helper()

	size, err := wire.Size(m)
	require.NoError(t, err)

	buf, err := wire.Encode(m)
	require.NoError(t, err)
	require.Equal(t, size, len(buf), "wire_size must equal len(write)")

	d := wire.NewDecoder(buf)
	require.NoError(t, out.Decode(d))
	require.NoError(t, d.ExpectEmpty())

	if diff := cmp.Diff(m, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func strPtr(s string) *string { return &s }

func TestFindCoordinatorRequestGolden(t *testing.T) {
	req := &FindCoordinatorRequest{Key: "kkk-topic", KeyType: CoordinatorGroup}

	buf, err := wire.Encode(req)
	require.NoError(t, err)
	assert.Equal(t, hexBytes(t, "00096b6b6b2d746f70696300"), buf)
}

func TestFindCoordinatorResponseGolden(t *testing.T) {
	raw := hexBytes(t, "000000000000ffff000003e900093132372e302e302e3100002384")

	var resp FindCoordinatorResponse
	d := wire.NewDecoder(raw)
	require.NoError(t, resp.Decode(d))
	require.NoError(t, d.ExpectEmpty())

	expected := FindCoordinatorResponse{
		ThrottleTimeMs: 0,
		ErrorCode:      0,
		ErrorMessage:   nil,
		NodeId:         1001,
		Host:           "127.0.0.1",
		Port:           9092,
	}
	assert.Equal(t, expected, resp)
}

func TestFindCoordinatorRoundTrip(t *testing.T) {
	roundTrip(t,
		&FindCoordinatorResponse{
			ErrorCode:    15,
			ErrorMessage: strPtr("unavailable"),
			NodeId:       -1,
			Host:         "",
			Port:         0,
		},
		&FindCoordinatorResponse{},
	)
}

func TestApiVersionsResponse(t *testing.T) {
	raw := []byte{0, 0, 0, 0, 0, 1, 0, 18, 0, 0, 0, 7}

	var resp ApiVersionsResponse
	require.NoError(t, resp.Decode(wire.NewDecoder(raw)))

	expected := ApiVersionsResponse{
		ApiKeys: []ApiVersionsRange{{ApiKey: proto.ApiVersions, MinVersion: 0, MaxVersion: 7}},
	}
	assert.Equal(t, expected, resp)
}

func TestApiVersionsResponseFiltersUnknownKeys(t *testing.T) {
	resp := &ApiVersionsResponse{
		ApiKeys: []ApiVersionsRange{
			{ApiKey: proto.Fetch, MinVersion: 0, MaxVersion: 11},
			{ApiKey: proto.ApiKey(999), MinVersion: 0, MaxVersion: 1},
			{ApiKey: proto.Metadata, MinVersion: 0, MaxVersion: 8},
		},
	}

	buf, err := wire.Encode(resp)
	require.NoError(t, err)

	var decoded ApiVersionsResponse
	require.NoError(t, decoded.Decode(wire.NewDecoder(buf)))

	assert.Equal(t, []ApiVersionsRange{
		{ApiKey: proto.Fetch, MinVersion: 0, MaxVersion: 11},
		{ApiKey: proto.Metadata, MinVersion: 0, MaxVersion: 8},
	}, decoded.ApiKeys)
}

func TestMetadataRoundTrip(t *testing.T) {
	roundTrip(t,
		&MetadataRequest{Topics: []string{"events", "audit"}},
		&MetadataRequest{},
	)

	roundTrip(t,
		&MetadataResponse{
			Brokers: []BrokerMetadata{
				{NodeId: 0, Host: "broker-0", Port: 9092, Rack: nil},
				{NodeId: 1, Host: "broker-1", Port: 9093, Rack: strPtr("eu-west-1a")},
			},
			ClusterId:    strPtr("test-cluster"),
			ControllerId: 0,
			Topics: []TopicMetadata{
				{
					Name: "events",
					Partitions: []PartitionMetadata{
						{PartitionIndex: 0, Leader: 0, Replicas: []int32{0, 1}, Isr: []int32{0}},
						{PartitionIndex: 1, Leader: 1, Replicas: []int32{1, 0}, Isr: []int32{1, 0}},
					},
				},
			},
		},
		&MetadataResponse{},
	)
}

func TestMetadataPortOutOfRange(t *testing.T) {
	// port field travels as i32; anything outside uint16 must be a parse
	// error rather than a silent truncation.
	buf := make([]byte, 64)
	e := wire.NewByteEncoder(buf)
	require.NoError(t, e.PutArrayLength(1))
	e.PutInt32(0)
	require.NoError(t, e.PutString("host"))
	e.PutInt32(70000)
	require.NoError(t, e.PutNullableString(nil))

	var resp MetadataResponse
	err := resp.Decode(wire.NewDecoder(e.Bytes()))
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrInvalidLength)
	assert.Contains(t, err.Error(), "port")
}

func TestJoinGroupRoundTrip(t *testing.T) {
	metadata, err := (&GroupProtocolMetadata{Topics: []string{"events"}, UserData: []byte{}}).Bytes()
	require.NoError(t, err)

	roundTrip(t,
		&JoinGroupRequest{
			GroupId:            "group-1",
			SessionTimeoutMs:   30000,
			RebalanceTimeoutMs: 10000,
			MemberId:           "",
			ProtocolType:       "consumer",
			Protocols: []GroupProtocol{
				{Name: "range", Metadata: metadata},
				{Name: "roundrobin", Metadata: metadata},
			},
		},
		&JoinGroupRequest{},
	)

	roundTrip(t,
		&JoinGroupResponse{
			ErrorCode:    79,
			GenerationId: -1,
			ProtocolName: "",
			Leader:       "",
			MemberId:     "group-1-deadbeef",
			Members:      []JoinGroupMember{},
		},
		&JoinGroupResponse{},
	)
}

func TestSyncGroupRoundTrip(t *testing.T) {
	blob, err := NewMemberAssignment(map[string][]int32{"events": {0, 2, 4}}).Bytes()
	require.NoError(t, err)

	roundTrip(t,
		&SyncGroupRequest{
			GroupId:      "group-1",
			GenerationId: 3,
			MemberId:     "m-1",
			Assignments: []SyncGroupAssignment{
				{MemberId: "m-1", Assignment: blob},
				{MemberId: "m-2", Assignment: blob},
			},
		},
		&SyncGroupRequest{},
	)

	roundTrip(t,
		&SyncGroupResponse{Assignment: blob},
		&SyncGroupResponse{},
	)
}

func TestGroupMetadataBlobs(t *testing.T) {
	md := &GroupProtocolMetadata{Topics: []string{"a", "b"}, UserData: []byte{}}
	blob, err := md.Bytes()
	require.NoError(t, err)

	parsed, err := ParseGroupProtocolMetadata(blob)
	require.NoError(t, err)
	assert.Equal(t, md, parsed)

	assignment := NewMemberAssignment(map[string][]int32{
		"b": {3, 1},
		"a": {0},
	})
	// Topics and partitions come out sorted regardless of map order.
	assert.Equal(t, []AssignedTopic{
		{Name: "a", Partitions: []int32{0}},
		{Name: "b", Partitions: []int32{1, 3}},
	}, assignment.Topics)

	blob, err = assignment.Bytes()
	require.NoError(t, err)
	parsedAssignment, err := ParseMemberAssignment(blob)
	require.NoError(t, err)
	assert.Equal(t, map[string][]int32{"a": {0}, "b": {1, 3}}, parsedAssignment.AssignedPartitions())
}

func TestOffsetFetchRoundTrip(t *testing.T) {
	roundTrip(t,
		&OffsetFetchRequest{
			GroupId: "group-1",
			Topics: []OffsetFetchTopic{
				{Name: "events", PartitionIndexes: []int32{0, 1, 2}},
			},
		},
		&OffsetFetchRequest{},
	)

	roundTrip(t,
		&OffsetFetchResponse{
			Topics: []OffsetFetchResponseTopic{
				{
					Name: "events",
					Partitions: []OffsetFetchResponsePartition{
						{Index: 0, CommittedOffset: 41, Metadata: strPtr("")},
						{Index: 1, CommittedOffset: -1, Metadata: nil},
					},
				},
			},
		},
		&OffsetFetchResponse{},
	)
}

func TestOffsetCommitRoundTrip(t *testing.T) {
	roundTrip(t,
		&OffsetCommitRequest{
			GroupId:         "group-1",
			GenerationId:    7,
			MemberId:        "m-1",
			RetentionTimeMs: RetainOffsetsForever,
			Topics: []OffsetCommitTopic{
				{
					Name: "events",
					Partitions: []OffsetCommitPartition{
						{Index: 0, Offset: 42, Metadata: nil},
					},
				},
			},
		},
		&OffsetCommitRequest{},
	)

	roundTrip(t,
		&OffsetCommitResponse{
			Topics: []OffsetCommitResponseTopic{
				{Name: "events", Partitions: []OffsetCommitResponsePartition{{Index: 0, ErrorCode: 0}}},
			},
		},
		&OffsetCommitResponse{},
	)
}

func TestFetchRoundTrip(t *testing.T) {
	roundTrip(t,
		&FetchRequest{
			ReplicaId:      -1,
			MaxWaitTimeMs:  100,
			MinBytes:       1,
			MaxBytes:       1024 * 1024,
			IsolationLevel: ReadCommitted,
			Topics: []FetchTopic{
				{
					Name: "events",
					Partitions: []FetchPartition{
						{Index: 2, FetchOffset: 1042, PartitionMaxBytes: 1024 * 1024},
					},
				},
			},
		},
		&FetchRequest{},
	)

	roundTrip(t,
		&FetchResponse{
			Topics: []FetchResponseTopic{
				{
					Name: "events",
					Partitions: []FetchResponsePartition{
						{
							Index:               0,
							ErrorCode:           0,
							HighWatermark:       100,
							LastStableOffset:    100,
							AbortedTransactions: []AbortedTransaction{{ProducerId: 9, FirstOffset: 17}},
							RecordSet:           []byte{1, 2, 3},
						},
						{
							Index:               1,
							ErrorCode:           6,
							HighWatermark:       -1,
							AbortedTransactions: []AbortedTransaction{},
							RecordSet:           nil,
						},
					},
				},
			},
		},
		&FetchResponse{},
	)
}

func TestHeartbeatAndLeaveGroupRoundTrip(t *testing.T) {
	roundTrip(t,
		&HeartbeatRequest{GroupId: "group-1", GenerationId: 4, MemberId: "m-1"},
		&HeartbeatRequest{},
	)
	roundTrip(t, &HeartbeatResponse{ErrorCode: 27}, &HeartbeatResponse{})

	roundTrip(t,
		&LeaveGroupRequest{GroupId: "group-1", MemberId: "m-1"},
		&LeaveGroupRequest{},
	)
	roundTrip(t, &LeaveGroupResponse{}, &LeaveGroupResponse{})
}
