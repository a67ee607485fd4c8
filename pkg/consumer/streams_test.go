package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/kafkaclient/pkg/proto/records"
)

func TestMessageDetach(t *testing.T) {
	buf := []byte("shared-buffer")
	m := Message{Topic: "t", Partition: 0, Offset: 7, Key: buf[:6], Value: buf[7:]}

	detached := m.Detach()
	buf[0] = 'X'

	assert.Equal(t, []byte("Xhared"), m.Key, "original borrows the buffer")
	assert.Equal(t, []byte("shared"), detached.Key, "detached copy must not")
	assert.Equal(t, []byte("buffer"), detached.Value)
}

func TestMessageCommitOffset(t *testing.T) {
	m := Message{Topic: "t", Partition: 3, Offset: 41}
	assert.Equal(t, Offset{Topic: "t", Partition: 3, Offset: 41}, m.CommitOffset())
}

func TestAssignmentCommitAfterClose(t *testing.T) {
	a := newAssignment(1, "m-1", map[string][]int32{"t": {0}})
	a.close()

	err := a.Commit(context.Background(), Offset{Topic: "t", Partition: 0, Offset: 1})
	assert.ErrorIs(t, err, ErrAssignmentClosed)

	// The fetch stream is closed too.
	_, ok := <-a.Fetches()
	assert.False(t, ok)
}

func TestAssignmentMessagesFlattening(t *testing.T) {
	a := newAssignment(1, "m-1", map[string][]int32{"t": {0}})

	batch := records.RecordBatch{
		BaseOffset: 5,
		Records: []records.Record{
			{OffsetDelta: 0, Value: []byte("a")},
			{OffsetDelta: 1, Value: []byte("b")},
		},
	}
	a.fetches <- &FetchResult{Partitions: []FetchPartition{
		{Topic: "t", Index: 0, Batches: []records.RecordBatch{batch}},
	}}
	a.close()

	var got []Message
	for m := range a.Messages() {
		got = append(got, m)
	}

	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].Offset)
	assert.Equal(t, []byte("a"), got[0].Value)
	assert.Equal(t, int64(6), got[1].Offset)
	assert.Equal(t, "t", got[1].Topic)
}

func TestAssignmentStreamStickyError(t *testing.T) {
	s := newAssignmentStream()
	assert.NoError(t, s.Err())

	s.fail(assert.AnError)
	s.fail(context.Canceled) // first error wins
	assert.ErrorIs(t, s.Err(), assert.AnError)
}

func TestAssignedPartitionsIsACopy(t *testing.T) {
	a := newAssignment(1, "m-1", map[string][]int32{"t": {0, 1}})

	got := a.AssignedPartitions()
	got["t"][0] = 99
	got["u"] = []int32{7}

	assert.Equal(t, map[string][]int32{"t": {0, 1}}, a.AssignedPartitions())
}
