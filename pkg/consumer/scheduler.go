package consumer

import (
	"sort"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	"github.com/grafana/kafkaclient/pkg/proto/records"
)

// fetchScheduler walks the assigned partitions round-robin, producing one
// single-partition fetch request per turn, and folds responses back into
// its per-partition offsets. Partitions whose leader reports an error are
// sidelined: skipped on later rounds until the next rebalance rebuilds the
// scheduler. The offsets map is owned exclusively by the consumer task.
type fetchScheduler struct {
	cfg Config

	pairs     []topicPartition
	cursor    int
	offsets   map[topicPartition]int64
	leaders   map[topicPartition]proto.BrokerId
	sidelined map[topicPartition]error
}

func newFetchScheduler(cfg Config, assigned map[string][]int32, offsets map[topicPartition]int64, leaders map[topicPartition]proto.BrokerId) *fetchScheduler {
	var pairs []topicPartition
	for topic, partitions := range assigned {
		for _, p := range partitions {
			pairs = append(pairs, topicPartition{topic: topic, partition: p})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].topic != pairs[j].topic {
			return pairs[i].topic < pairs[j].topic
		}
		return pairs[i].partition < pairs[j].partition
	})

	return &fetchScheduler{
		cfg:       cfg,
		pairs:     pairs,
		cursor:    len(pairs) - 1,
		offsets:   offsets,
		leaders:   leaders,
		sidelined: make(map[topicPartition]error),
	}
}

// next picks the next fetchable partition and builds its request. Returns
// false when every assigned partition is sidelined or leaderless.
func (s *fetchScheduler) next() (proto.BrokerId, *messages.FetchRequest, bool) {
	for range s.pairs {
		s.cursor = (s.cursor + 1) % len(s.pairs)
		tp := s.pairs[s.cursor]
		if _, bad := s.sidelined[tp]; bad {
			continue
		}
		leader, ok := s.leaders[tp]
		if !ok {
			continue
		}
		offset, ok := s.offsets[tp]
		if !ok {
			continue
		}

		req := &messages.FetchRequest{
			ReplicaId:      -1,
			MaxWaitTimeMs:  int32(s.cfg.FetchMaxWait.Milliseconds()),
			MinBytes:       int32(s.cfg.FetchMinBytes),
			MaxBytes:       int32(s.cfg.FetchMaxBytes),
			IsolationLevel: messages.ReadCommitted,
			Topics: []messages.FetchTopic{{
				Name: tp.topic,
				Partitions: []messages.FetchPartition{{
					Index:             tp.partition,
					FetchOffset:       offset,
					PartitionMaxBytes: int32(s.cfg.MaxPartitionFetchBytes),
				}},
			}},
		}
		return leader, req, true
	}
	return 0, nil, false
}

// update parses the record sets in resp, advances offsets for clean
// partitions and sidelines broken ones. The returned result carries the
// parsed batches for the stream; rebalance is true when the broker
// signalled REBALANCE_IN_PROGRESS anywhere in the response.
func (s *fetchScheduler) update(resp *messages.FetchResponse) (result *FetchResult, rebalance bool) {
	result = &FetchResult{}
	for i := range resp.Topics {
		t := &resp.Topics[i]
		for j := range t.Partitions {
			p := &t.Partitions[j]
			tp := topicPartition{topic: t.Name, partition: p.Index}

			fp := FetchPartition{
				Topic:         t.Name,
				Index:         p.Index,
				HighWatermark: p.HighWatermark,
			}

			if err := p.ErrorCode.Err(); err != nil {
				if err == proto.RebalanceInProgress {
					rebalance = true
				}
				fp.Err = err
				s.sidelined[tp] = err
				result.Partitions = append(result.Partitions, fp)
				continue
			}

			batches, err := records.ParseSet(p.RecordSet)
			if err != nil {
				fp.Err = err
				s.sidelined[tp] = err
				result.Partitions = append(result.Partitions, fp)
				continue
			}

			fp.Batches = batches
			result.Partitions = append(result.Partitions, fp)

			// The next offset to read is one past the last record of the
			// last batch, not the high watermark: the watermark can sit far
			// ahead of what this fetch returned.
			next := s.offsets[tp]
			for k := range batches {
				if n := batches[k].NextOffset(); n > next {
					next = n
				}
			}
			s.offsets[tp] = next
		}
	}
	return result, rebalance
}

// fetchablePartitions reports how many partitions next can still serve.
func (s *fetchScheduler) fetchablePartitions() int {
	n := 0
	for _, tp := range s.pairs {
		if _, bad := s.sidelined[tp]; bad {
			continue
		}
		if _, ok := s.leaders[tp]; !ok {
			continue
		}
		n++
	}
	return n
}
