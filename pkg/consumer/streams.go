package consumer

import (
	"context"
	"errors"
	"sync"

	"github.com/grafana/kafkaclient/pkg/proto/records"
)

// ErrAssignmentClosed is returned by Commit after the assignment's
// generation has ended.
var ErrAssignmentClosed = errors.New("assignment closed")

// Offset names one committed position: the offset of the last record the
// application has fully processed.
type Offset struct {
	Topic     string
	Partition int32
	Offset    int64
}

// Message is one record surfaced to the application. Key and Value may
// alias the fetch buffer; Detach copies them out.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Detach returns a copy of the message whose byte slices own their
// storage.
func (m Message) Detach() Message {
	if m.Key != nil {
		m.Key = append([]byte(nil), m.Key...)
	}
	if m.Value != nil {
		m.Value = append([]byte(nil), m.Value...)
	}
	return m
}

// CommitOffset converts the message into the Offset that marks it
// processed.
func (m Message) CommitOffset() Offset {
	return Offset{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset}
}

// FetchResult is one decoded fetch response: per-partition record batches
// or errors.
type FetchResult struct {
	Partitions []FetchPartition
}

// FetchPartition is one partition's slice of a fetch response. Err carries
// the broker's partition-level error code or a record-set parse failure;
// Batches is what parsed cleanly.
type FetchPartition struct {
	Topic         string
	Index         int32
	Err           error
	HighWatermark int64
	Batches       []records.RecordBatch
}

// Messages flattens every batch in the result into messages. Record
// offsets are reconstructed as base offset plus offset delta.
func (r *FetchResult) Messages() []Message {
	var out []Message
	for i := range r.Partitions {
		p := &r.Partitions[i]
		for j := range p.Batches {
			b := &p.Batches[j]
			for k := range b.Records {
				rec := &b.Records[k]
				out = append(out, Message{
					Topic:     p.Topic,
					Partition: p.Index,
					Offset:    b.BaseOffset + rec.OffsetDelta,
					Key:       rec.Key,
					Value:     rec.Value,
				})
			}
		}
	}
	return out
}

// AssignmentStream surfaces one Assignment per group generation. The
// channel closes when the consumer exits; Err reports the failure that
// ended it, if any.
type AssignmentStream struct {
	ch chan *Assignment

	mtx sync.Mutex
	err error
}

func newAssignmentStream() *AssignmentStream {
	return &AssignmentStream{ch: make(chan *Assignment, 1)}
}

// Assignments returns the stream of per-generation assignments.
func (s *AssignmentStream) Assignments() <-chan *Assignment {
	return s.ch
}

// Err returns the error that terminated the consumer, or nil after a clean
// shutdown. Meaningful once Assignments is closed.
func (s *AssignmentStream) Err() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.err
}

func (s *AssignmentStream) fail(err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Assignment is one generation's slice of the group: the partitions this
// member owns, the fetched records for them, and the offset-commit sink
// back to the coordinator.
type Assignment struct {
	generationID int32
	memberID     string
	assigned     map[string][]int32

	fetches chan *FetchResult
	commits chan Offset
	done    chan struct{}

	msgsOnce sync.Once
	msgs     chan Message
}

func newAssignment(generationID int32, memberID string, assigned map[string][]int32) *Assignment {
	return &Assignment{
		generationID: generationID,
		memberID:     memberID,
		assigned:     assigned,
		fetches:      make(chan *FetchResult, 1),
		commits:      make(chan Offset, 64),
		done:         make(chan struct{}),
	}
}

// GenerationId identifies the group membership epoch this assignment
// belongs to.
func (a *Assignment) GenerationId() int32 { return a.generationID }

// AssignedPartitions returns a copy of the topic to partitions map.
func (a *Assignment) AssignedPartitions() map[string][]int32 {
	out := make(map[string][]int32, len(a.assigned))
	for topic, partitions := range a.assigned {
		out[topic] = append([]int32(nil), partitions...)
	}
	return out
}

// Fetches returns the per-generation stream of fetch results. It closes
// when the generation ends (rebalance or shutdown); results already in the
// channel are still delivered.
func (a *Assignment) Fetches() <-chan *FetchResult {
	return a.fetches
}

// Messages returns the fetch stream flattened into individual messages.
// Starts a forwarding goroutine on first call; the channel closes when
// Fetches does.
func (a *Assignment) Messages() <-chan Message {
	a.msgsOnce.Do(func() {
		a.msgs = make(chan Message)
		go func() {
			defer close(a.msgs)
			for result := range a.fetches {
				for _, m := range result.Messages() {
					a.msgs <- m
				}
			}
		}()
	})
	return a.msgs
}

// Commit enqueues an offset for the periodic commit to the coordinator.
// Offsets are aggregated per partition; only the highest enqueued offset
// per partition is committed.
func (a *Assignment) Commit(ctx context.Context, offset Offset) error {
	// Checked separately first: the buffered commit channel may still have
	// room after close, and a three-way select would pick arbitrarily.
	select {
	case <-a.done:
		return ErrAssignmentClosed
	default:
	}

	select {
	case a.commits <- offset:
		return nil
	case <-a.done:
		return ErrAssignmentClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close ends the assignment. Called by the consumer task only.
func (a *Assignment) close() {
	close(a.done)
	close(a.fetches)
}

// topicPartition keys per-partition state.
type topicPartition struct {
	topic     string
	partition int32
}
