// Package consumer implements the streaming group consumer: a background
// task that locates the group coordinator, joins and syncs the group,
// drives partitioned fetches, heartbeats the coordinator and commits
// accepted offsets. The application consumes it as a stream of
// per-generation assignments, each carrying a stream of fetch results and
// an offset-commit sink.
package consumer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/grafana/dskit/services"

	"github.com/grafana/kafkaclient/pkg/client"
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	util_log "github.com/grafana/kafkaclient/pkg/util/log"
)

const (
	protocolType       = "consumer"
	leaveGroupTimeout  = 5 * time.Second
	finalCommitTimeout = 2 * time.Second
)

// exitReason describes why a state-machine stage stopped.
type exitReason int

const (
	reasonNone exitReason = iota
	// reasonShutdown: the consumer was asked to stop.
	reasonShutdown
	// reasonRebalance: the coordinator wants the group to re-join; keep the
	// member id and the coordinator.
	reasonRebalance
	// reasonCoordinatorLost: the coordinator moved or stopped answering;
	// go back to FindCoordinator.
	reasonCoordinatorLost
)

// Consumer runs the group protocol as a dskit service. Use Split for the
// public stream/killswitch surface.
type Consumer struct {
	services.Service

	cfg         Config
	cluster     *client.Cluster
	ownsCluster bool
	logger      log.Logger

	stream *AssignmentStream
}

// Bootstrap builds a cluster client from the bootstrap server list, then
// starts a consumer on it. The returned consumer's background task is
// already running.
func Bootstrap(ctx context.Context, bootstrapServers string, cfg Config, logger log.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util_log.Logger
	}

	cluster, err := client.Bootstrap(ctx, bootstrapServers, cfg.Client, logger)
	if err != nil {
		return nil, err
	}

	c, err := New(cfg, cluster, logger)
	if err != nil {
		_ = cluster.Close()
		return nil, err
	}
	c.ownsCluster = true

	if err := services.StartAndAwaitRunning(ctx, c.Service); err != nil {
		_ = cluster.Close()
		return nil, err
	}
	return c, nil
}

// New builds a consumer over an existing cluster client without starting
// it. The caller starts the service, typically via
// services.StartAndAwaitRunning.
func New(cfg Config, cluster *client.Cluster, logger log.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util_log.Logger
	}

	c := &Consumer{
		cfg:     cfg,
		cluster: cluster,
		logger:  logger,
		stream:  newAssignmentStream(),
	}
	c.Service = services.NewBasicService(nil, c.running, c.stopping)
	return c, nil
}

// Split returns the consumer's two public handles: the killswitch that
// shuts the background task down, and the assignment stream the
// application reads.
func (c *Consumer) Split() (*Killswitch, *AssignmentStream) {
	return &Killswitch{svc: c.Service, logger: c.logger}, c.stream
}

// Killswitch shuts the consumer down.
type Killswitch struct {
	svc    services.Service
	logger log.Logger
}

// Shutdown stops the consumer task and waits until it has exited. The
// assignment stream closes as part of this.
func (k *Killswitch) Shutdown(ctx context.Context) error {
	level.Info(k.logger).Log("msg", "shutting down consumer")
	return services.StopAndAwaitTerminated(ctx, k.svc)
}

func (c *Consumer) running(ctx context.Context) error {
	err := c.run(ctx)
	if err != nil && ctx.Err() == nil {
		level.Error(c.logger).Log("msg", "consumer failed", "err", err)
		c.stream.fail(err)
		return err
	}
	return nil
}

func (c *Consumer) stopping(_ error) error {
	close(c.stream.ch)
	if c.ownsCluster {
		return c.cluster.Close()
	}
	return nil
}

// run is the outer state machine loop: find the coordinator, then run
// generations against it until shutdown, a fatal error, or coordinator
// loss (which re-enters the lookup with backoff).
func (c *Consumer) run(ctx context.Context) error {
	memberID := ""
	bo := backoff.New(ctx, c.cfg.Backoff)

	for ctx.Err() == nil {
		coordinator, err := c.findCoordinator(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		bo.Reset()

		reason, err := c.runGenerations(ctx, coordinator, &memberID)
		switch {
		case err != nil:
			return err
		case reason == reasonShutdown:
			c.leaveGroup(coordinator, memberID)
			return nil
		case reason == reasonCoordinatorLost:
			level.Warn(c.logger).Log("msg", "group coordinator lost, rediscovering", "coordinator", coordinator)
			bo.Wait()
		}
	}
	return nil
}

// findCoordinator locates the broker hosting the group's state, retrying
// transient failures with bounded backoff.
func (c *Consumer) findCoordinator(ctx context.Context) (proto.BrokerId, error) {
	req := &messages.FindCoordinatorRequest{Key: c.cfg.GroupID, KeyType: messages.CoordinatorGroup}

	bo := backoff.New(ctx, c.cfg.Backoff)
	for bo.Ongoing() {
		resp, err := c.cluster.Exchange(ctx, req, client.AnyBroker)
		if err != nil {
			level.Warn(c.logger).Log("msg", "find coordinator failed", "err", err)
			bo.Wait()
			continue
		}

		fc := resp.(*messages.FindCoordinatorResponse)
		switch err := fc.ErrorCode.Err(); err {
		case nil:
			level.Debug(c.logger).Log("msg", "found group coordinator", "group", c.cfg.GroupID, "coordinator", fc.NodeId)
			return fc.NodeId, nil
		case proto.CoordinatorNotAvailable, proto.CoordinatorLoadInProgress:
			level.Debug(c.logger).Log("msg", "coordinator not available yet", "err", err)
			bo.Wait()
		default:
			return 0, fmt.Errorf("find coordinator: %w", err)
		}
	}
	return 0, fmt.Errorf("find coordinator: %w", bo.Err())
}

// runGenerations joins, syncs and consumes until the coordinator is lost,
// shutdown is requested, or something fatal happens. Rebalances loop back
// to JoinGroup with the member id kept.
func (c *Consumer) runGenerations(ctx context.Context, coordinator proto.BrokerId, memberID *string) (exitReason, error) {
	for {
		if ctx.Err() != nil {
			return reasonShutdown, nil
		}

		join, reason, err := c.joinGroup(ctx, coordinator, memberID)
		if err != nil || reason != reasonNone {
			return reason, err
		}
		*memberID = join.MemberId

		assigned, reason, err := c.syncGroup(ctx, coordinator, join)
		if reason == reasonRebalance {
			metricRebalances.Inc()
			continue
		}
		if err != nil || reason != reasonNone {
			return reason, err
		}

		level.Info(c.logger).Log(
			"msg", "joined group",
			"group", c.cfg.GroupID,
			"generation", join.GenerationId,
			"member_id", join.MemberId,
			"leader", len(join.Members) > 0,
			"partitions", countPartitions(assigned),
		)

		reason, err = c.runAssignment(ctx, coordinator, join, assigned, memberID)
		if reason == reasonRebalance {
			metricRebalances.Inc()
			continue
		}
		return reason, err
	}
}

// joinGroup performs the JoinGroup exchange, transparently handling the
// MEMBER_ID_REQUIRED retry and stale member ids.
func (c *Consumer) joinGroup(ctx context.Context, coordinator proto.BrokerId, memberID *string) (*messages.JoinGroupResponse, exitReason, error) {
	topics := append([]string(nil), c.cfg.Topics...)
	sort.Strings(topics)
	metadata, err := (&messages.GroupProtocolMetadata{Topics: topics, UserData: []byte{}}).Bytes()
	if err != nil {
		return nil, reasonNone, err
	}

	for {
		req := &messages.JoinGroupRequest{
			GroupId:            c.cfg.GroupID,
			SessionTimeoutMs:   int32(c.cfg.SessionTimeout.Milliseconds()),
			RebalanceTimeoutMs: int32(c.cfg.RebalanceTimeout.Milliseconds()),
			MemberId:           *memberID,
			ProtocolType:       protocolType,
			Protocols: []messages.GroupProtocol{
				{Name: "range", Metadata: metadata},
				{Name: "roundrobin", Metadata: metadata},
			},
		}

		resp, err := c.cluster.Exchange(ctx, req, coordinator)
		if err != nil {
			if ctx.Err() != nil {
				return nil, reasonShutdown, nil
			}
			level.Warn(c.logger).Log("msg", "join group failed", "err", err)
			return nil, reasonCoordinatorLost, nil
		}

		join := resp.(*messages.JoinGroupResponse)
		switch err := join.ErrorCode.Err(); err {
		case nil:
			return join, reasonNone, nil
		case proto.MemberIdRequired:
			// The coordinator assigned us an id; echo it back.
			*memberID = join.MemberId
			level.Debug(c.logger).Log("msg", "member id assigned", "member_id", join.MemberId)
		case proto.UnknownMemberId:
			*memberID = ""
		case proto.NotCoordinator, proto.CoordinatorNotAvailable, proto.CoordinatorLoadInProgress:
			return nil, reasonCoordinatorLost, nil
		default:
			return nil, reasonNone, fmt.Errorf("join group: %w", err)
		}
	}
}

// syncGroup completes the generation. The leader (non-empty members list)
// computes the round-robin assignment over the union of every member's
// subscription; followers send no assignments and receive theirs.
func (c *Consumer) syncGroup(ctx context.Context, coordinator proto.BrokerId, join *messages.JoinGroupResponse) (map[string][]int32, exitReason, error) {
	var assignments []messages.SyncGroupAssignment
	if len(join.Members) > 0 {
		var err error
		assignments, err = c.leaderAssignments(ctx, join)
		if err != nil {
			if ctx.Err() != nil {
				return nil, reasonShutdown, nil
			}
			return nil, reasonNone, err
		}
	}

	req := &messages.SyncGroupRequest{
		GroupId:      c.cfg.GroupID,
		GenerationId: join.GenerationId,
		MemberId:     join.MemberId,
		Assignments:  assignments,
	}

	resp, err := c.cluster.Exchange(ctx, req, coordinator)
	if err != nil {
		if ctx.Err() != nil {
			return nil, reasonShutdown, nil
		}
		level.Warn(c.logger).Log("msg", "sync group failed", "err", err)
		return nil, reasonCoordinatorLost, nil
	}

	sync := resp.(*messages.SyncGroupResponse)
	switch err := sync.ErrorCode.Err(); err {
	case nil:
	case proto.RebalanceInProgress, proto.UnknownMemberId, proto.IllegalGeneration:
		return nil, reasonRebalance, nil
	case proto.NotCoordinator, proto.CoordinatorNotAvailable:
		return nil, reasonCoordinatorLost, nil
	default:
		return nil, reasonNone, fmt.Errorf("sync group: %w", err)
	}

	assignment, err := messages.ParseMemberAssignment(sync.Assignment)
	if err != nil {
		return nil, reasonNone, fmt.Errorf("sync group: %w", err)
	}
	return assignment.AssignedPartitions(), reasonNone, nil
}

// leaderAssignments decodes every member's subscription, fetches partition
// metadata for the union of subscribed topics and runs the round-robin
// assignor.
func (c *Consumer) leaderAssignments(ctx context.Context, join *messages.JoinGroupResponse) ([]messages.SyncGroupAssignment, error) {
	subscriptions := make(map[string][]string)
	for _, m := range join.Members {
		md, err := messages.ParseGroupProtocolMetadata(m.Metadata)
		if err != nil {
			return nil, fmt.Errorf("member %s subscription: %w", m.MemberId, err)
		}
		for _, topic := range md.Topics {
			subscriptions[topic] = append(subscriptions[topic], m.MemberId)
		}
	}

	topics := make([]string, 0, len(subscriptions))
	for topic := range subscriptions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	partitionsByTopic, _, err := c.topicMetadata(ctx, topics)
	if err != nil {
		return nil, err
	}

	perMember := assignRoundRobin(subscriptions, partitionsByTopic)

	members := make([]string, 0, len(perMember))
	for member := range perMember {
		members = append(members, member)
	}
	sort.Strings(members)

	assignments := make([]messages.SyncGroupAssignment, 0, len(members))
	for _, member := range members {
		blob, err := messages.NewMemberAssignment(perMember[member]).Bytes()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, messages.SyncGroupAssignment{MemberId: member, Assignment: blob})
	}
	return assignments, nil
}

// topicMetadata fetches partition indexes and partition leaders for the
// given topics.
func (c *Consumer) topicMetadata(ctx context.Context, topics []string) (map[string][]int32, map[topicPartition]proto.BrokerId, error) {
	resp, err := c.cluster.Exchange(ctx, &messages.MetadataRequest{Topics: topics}, client.AnyBroker)
	if err != nil {
		return nil, nil, fmt.Errorf("topic metadata: %w", err)
	}
	metadata := resp.(*messages.MetadataResponse)

	partitions := make(map[string][]int32)
	leaders := make(map[topicPartition]proto.BrokerId)
	for _, t := range metadata.Topics {
		if err := t.Error.Err(); err != nil {
			level.Warn(c.logger).Log("msg", "topic metadata error", "topic", t.Name, "err", err)
			continue
		}
		for _, p := range t.Partitions {
			partitions[t.Name] = append(partitions[t.Name], p.PartitionIndex)
			if p.Leader >= 0 {
				leaders[topicPartition{topic: t.Name, partition: p.PartitionIndex}] = p.Leader
			}
		}
	}
	return partitions, leaders, nil
}

// fetchOffsets initializes the per-partition fetch positions from the
// group's committed offsets. An uncommitted partition (offset -1) starts
// at offset 0.
func (c *Consumer) fetchOffsets(ctx context.Context, coordinator proto.BrokerId, assigned map[string][]int32) (map[topicPartition]int64, exitReason, error) {
	topics := make([]string, 0, len(assigned))
	for topic := range assigned {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	req := &messages.OffsetFetchRequest{GroupId: c.cfg.GroupID}
	for _, topic := range topics {
		partitions := append([]int32(nil), assigned[topic]...)
		sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
		req.Topics = append(req.Topics, messages.OffsetFetchTopic{Name: topic, PartitionIndexes: partitions})
	}

	resp, err := c.cluster.Exchange(ctx, req, coordinator)
	if err != nil {
		if ctx.Err() != nil {
			return nil, reasonShutdown, nil
		}
		level.Warn(c.logger).Log("msg", "offset fetch failed", "err", err)
		return nil, reasonCoordinatorLost, nil
	}

	offsets := make(map[topicPartition]int64)
	for _, t := range resp.(*messages.OffsetFetchResponse).Topics {
		for _, p := range t.Partitions {
			switch err := p.ErrorCode.Err(); err {
			case nil:
			case proto.NotCoordinator, proto.CoordinatorNotAvailable:
				return nil, reasonCoordinatorLost, nil
			default:
				return nil, reasonNone, fmt.Errorf("offset fetch %s[%d]: %w", t.Name, p.Index, err)
			}

			start := int64(0)
			if p.CommittedOffset >= 0 {
				start = p.CommittedOffset + 1
			}
			offsets[topicPartition{topic: t.Name, partition: p.Index}] = start
		}
	}
	return offsets, reasonNone, nil
}

// runAssignment is the FETCH_LOOP state: deliver the assignment to the
// application, then fetch continuously, heartbeating the coordinator and
// committing accepted offsets until the generation ends.
func (c *Consumer) runAssignment(ctx context.Context, coordinator proto.BrokerId, join *messages.JoinGroupResponse, assigned map[string][]int32, memberID *string) (exitReason, error) {
	topics := make([]string, 0, len(assigned))
	for topic := range assigned {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	_, leaders, err := c.topicMetadata(ctx, topics)
	if err != nil {
		if ctx.Err() != nil {
			return reasonShutdown, nil
		}
		level.Warn(c.logger).Log("msg", "leader refresh failed", "err", err)
		return reasonCoordinatorLost, nil
	}

	offsets, reason, err := c.fetchOffsets(ctx, coordinator, assigned)
	if err != nil || reason != reasonNone {
		return reason, err
	}

	sched := newFetchScheduler(c.cfg, assigned, offsets, leaders)
	assignment := newAssignment(join.GenerationId, join.MemberId, assigned)
	pending := make(map[topicPartition]int64)

	defer func() {
		assignment.close()
		c.drainCommits(assignment, pending)
		c.finalCommit(coordinator, join, pending)
	}()

	heartbeats := time.NewTicker(c.cfg.heartbeatInterval())
	defer heartbeats.Stop()
	commits := time.NewTicker(c.cfg.CommitInterval)
	defer commits.Stop()

	// Hand the assignment to the application. The channel has capacity one,
	// so this blocks while a previous assignment is still unclaimed; keep
	// heartbeating meanwhile.
	for delivered := false; !delivered; {
		select {
		case c.stream.ch <- assignment:
			delivered = true
		case <-heartbeats.C:
			if reason, err := c.heartbeat(ctx, coordinator, join, memberID); err != nil || reason != reasonNone {
				return reason, err
			}
		case <-ctx.Done():
			return reasonShutdown, nil
		}
	}

	fetchRetry := backoff.New(ctx, c.cfg.Backoff)
	for {
		select {
		case <-ctx.Done():
			return reasonShutdown, nil
		case <-heartbeats.C:
			if reason, err := c.heartbeat(ctx, coordinator, join, memberID); err != nil || reason != reasonNone {
				return reason, err
			}
		case <-commits.C:
			c.drainCommits(assignment, pending)
			if reason, err := c.commitPending(ctx, coordinator, join, pending); err != nil || reason != reasonNone {
				return reason, err
			}
		default:
		}

		broker, req, ok := sched.next()
		if !ok {
			// Every assigned partition is sidelined. Stay joined so a
			// rebalance or shutdown can resolve the situation.
			select {
			case <-ctx.Done():
				return reasonShutdown, nil
			case <-heartbeats.C:
				if reason, err := c.heartbeat(ctx, coordinator, join, memberID); err != nil || reason != reasonNone {
					return reason, err
				}
			}
			continue
		}

		resp, err := c.cluster.Exchange(ctx, req, broker)
		if err != nil {
			if ctx.Err() != nil {
				return reasonShutdown, nil
			}
			level.Warn(c.logger).Log("msg", "fetch failed", "broker", broker, "err", err)
			fetchRetry.Wait()
			continue
		}
		fetchRetry.Reset()

		result, rebalance := sched.update(resp.(*messages.FetchResponse))
		if rebalance {
			return reasonRebalance, nil
		}
		metricFetchedRecords.Add(float64(countRecords(result)))

		// Publish with natural push-back: a slow application holds the
		// capacity-one channel, which throttles fetching, but heartbeats
		// and commits keep flowing.
		for result != nil {
			select {
			case assignment.fetches <- result:
				result = nil
			case <-heartbeats.C:
				if reason, err := c.heartbeat(ctx, coordinator, join, memberID); err != nil || reason != reasonNone {
					return reason, err
				}
			case <-commits.C:
				c.drainCommits(assignment, pending)
				if reason, err := c.commitPending(ctx, coordinator, join, pending); err != nil || reason != reasonNone {
					return reason, err
				}
			case <-ctx.Done():
				return reasonShutdown, nil
			}
		}
	}
}

// heartbeat tells the coordinator this member is alive and picks up
// rebalance signals.
func (c *Consumer) heartbeat(ctx context.Context, coordinator proto.BrokerId, join *messages.JoinGroupResponse, memberID *string) (exitReason, error) {
	req := &messages.HeartbeatRequest{
		GroupId:      c.cfg.GroupID,
		GenerationId: join.GenerationId,
		MemberId:     join.MemberId,
	}

	resp, err := c.cluster.Exchange(ctx, req, coordinator)
	if err != nil {
		if ctx.Err() != nil {
			return reasonShutdown, nil
		}
		metricHeartbeats.WithLabelValues("error").Inc()
		level.Warn(c.logger).Log("msg", "heartbeat failed", "err", err)
		return reasonCoordinatorLost, nil
	}

	switch err := resp.(*messages.HeartbeatResponse).ErrorCode.Err(); err {
	case nil:
		metricHeartbeats.WithLabelValues("ok").Inc()
		return reasonNone, nil
	case proto.RebalanceInProgress:
		metricHeartbeats.WithLabelValues("rebalance").Inc()
		level.Debug(c.logger).Log("msg", "rebalance requested by coordinator")
		return reasonRebalance, nil
	case proto.UnknownMemberId, proto.IllegalGeneration:
		metricHeartbeats.WithLabelValues("rejected").Inc()
		*memberID = ""
		return reasonRebalance, nil
	case proto.NotCoordinator, proto.CoordinatorNotAvailable:
		metricHeartbeats.WithLabelValues("error").Inc()
		return reasonCoordinatorLost, nil
	default:
		metricHeartbeats.WithLabelValues("error").Inc()
		return reasonNone, fmt.Errorf("heartbeat: %w", err)
	}
}

// drainCommits folds queued commit requests into the pending map, keeping
// the highest next-to-read offset per partition.
func (c *Consumer) drainCommits(assignment *Assignment, pending map[topicPartition]int64) {
	for {
		select {
		case o := <-assignment.commits:
			tp := topicPartition{topic: o.Topic, partition: o.Partition}
			// The committed value is the next offset to read, one past the
			// processed record.
			if next := o.Offset + 1; next > pending[tp] {
				pending[tp] = next
			}
		default:
			return
		}
	}
}

// commitPending pushes the aggregated offsets to the coordinator and
// clears them on success.
func (c *Consumer) commitPending(ctx context.Context, coordinator proto.BrokerId, join *messages.JoinGroupResponse, pending map[topicPartition]int64) (exitReason, error) {
	if len(pending) == 0 {
		return reasonNone, nil
	}

	req := buildOffsetCommit(c.cfg.GroupID, join, pending)
	resp, err := c.cluster.Exchange(ctx, req, coordinator)
	if err != nil {
		if ctx.Err() != nil {
			return reasonShutdown, nil
		}
		level.Warn(c.logger).Log("msg", "offset commit failed", "err", err)
		return reasonCoordinatorLost, nil
	}

	committed := 0
	for _, t := range resp.(*messages.OffsetCommitResponse).Topics {
		for _, p := range t.Partitions {
			switch err := p.ErrorCode.Err(); err {
			case nil:
				delete(pending, topicPartition{topic: t.Name, partition: p.Index})
				committed++
			case proto.RebalanceInProgress:
				return reasonRebalance, nil
			case proto.NotCoordinator, proto.CoordinatorNotAvailable:
				return reasonCoordinatorLost, nil
			default:
				// Leave the offset pending; the next interval retries it.
				level.Warn(c.logger).Log("msg", "offset commit rejected", "topic", t.Name, "partition", p.Index, "err", err)
			}
		}
	}
	metricCommittedOffsets.Add(float64(committed))
	return reasonNone, nil
}

// finalCommit flushes whatever is still pending when a generation ends,
// best effort on a fresh context.
func (c *Consumer) finalCommit(coordinator proto.BrokerId, join *messages.JoinGroupResponse, pending map[topicPartition]int64) {
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalCommitTimeout)
	defer cancel()

	req := buildOffsetCommit(c.cfg.GroupID, join, pending)
	if _, err := c.cluster.Exchange(ctx, req, coordinator); err != nil {
		level.Warn(c.logger).Log("msg", "final offset commit failed", "err", err)
	}
}

// leaveGroup tells the coordinator this member is gone, best effort with a
// bounded timeout.
func (c *Consumer) leaveGroup(coordinator proto.BrokerId, memberID string) {
	if memberID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), leaveGroupTimeout)
	defer cancel()

	req := &messages.LeaveGroupRequest{GroupId: c.cfg.GroupID, MemberId: memberID}
	if _, err := c.cluster.Exchange(ctx, req, coordinator); err != nil {
		level.Warn(c.logger).Log("msg", "leave group failed", "err", err)
		return
	}
	level.Debug(c.logger).Log("msg", "left group", "group", c.cfg.GroupID, "member_id", memberID)
}

func buildOffsetCommit(groupID string, join *messages.JoinGroupResponse, pending map[topicPartition]int64) *messages.OffsetCommitRequest {
	byTopic := make(map[string][]messages.OffsetCommitPartition)
	for tp, offset := range pending {
		byTopic[tp.topic] = append(byTopic[tp.topic], messages.OffsetCommitPartition{Index: tp.partition, Offset: offset})
	}

	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	req := &messages.OffsetCommitRequest{
		GroupId:         groupID,
		GenerationId:    join.GenerationId,
		MemberId:        join.MemberId,
		RetentionTimeMs: messages.RetainOffsetsForever,
	}
	for _, topic := range topics {
		partitions := byTopic[topic]
		sort.Slice(partitions, func(i, j int) bool { return partitions[i].Index < partitions[j].Index })
		req.Topics = append(req.Topics, messages.OffsetCommitTopic{Name: topic, Partitions: partitions})
	}
	return req
}

func countPartitions(assigned map[string][]int32) int {
	n := 0
	for _, partitions := range assigned {
		n += len(partitions)
	}
	return n
}

func countRecords(result *FetchResult) int {
	n := 0
	for i := range result.Partitions {
		for j := range result.Partitions[i].Batches {
			n += len(result.Partitions[i].Batches[j].Records)
		}
	}
	return n
}
