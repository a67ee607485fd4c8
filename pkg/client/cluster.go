package client

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/multierr"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
)

// AnyBroker lets Exchange pick a broker itself. The choice is the lowest
// broker id, so repeated calls land on the same broker while the topology
// is stable.
const AnyBroker proto.BrokerId = -1

// Cluster is a pool of broker connections keyed by broker id, populated
// from a metadata bootstrap. Connections are dialled on first use and
// redialled after failures.
type Cluster struct {
	cfg    Config
	logger log.Logger

	mtx     sync.Mutex
	brokers map[proto.BrokerId]*brokerSlot
}

// brokerSlot serializes access to one broker. Its mutex is held for the
// full duration of an exchange, so requests to the same broker queue while
// different brokers proceed in parallel.
type brokerSlot struct {
	addr string

	mtx  sync.Mutex
	conn *Conn
}

// Bootstrap walks the comma-separated bootstrap server list in order,
// asking each for cluster metadata. The first server that answers defines
// the broker map; if none answers the joined dial errors are returned
// wrapped in ErrBootstrapFailed.
func Bootstrap(ctx context.Context, bootstrapServers string, cfg Config, logger log.Logger) (*Cluster, error) {
	servers := strings.Split(bootstrapServers, ",")
	level.Info(logger).Log("msg", "bootstrapping cluster client", "servers", bootstrapServers)

	var errs error
	for _, server := range servers {
		server = strings.TrimSpace(server)
		if server == "" {
			continue
		}
		cluster, err := tryBootstrapFrom(ctx, server, cfg, logger)
		if err != nil {
			level.Warn(logger).Log("msg", "bootstrap server failed", "server", server, "err", err)
			errs = multierr.Append(errs, err)
			continue
		}
		return cluster, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrBootstrapFailed, errs)
}

func tryBootstrapFrom(ctx context.Context, server string, cfg Config, logger log.Logger) (*Cluster, error) {
	conn, err := Dial(ctx, server, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.Exchange(ctx, &messages.MetadataRequest{Topics: []string{}})
	if err != nil {
		return nil, err
	}
	metadata := resp.(*messages.MetadataResponse)

	brokers := make(map[proto.BrokerId]*brokerSlot, len(metadata.Brokers))
	for _, b := range metadata.Brokers {
		addr := b.Host + ":" + strconv.Itoa(int(b.Port))
		brokers[b.NodeId] = &brokerSlot{addr: addr}
		level.Debug(logger).Log("msg", "discovered broker", "broker", b.NodeId, "addr", addr)
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("metadata from %s reported no brokers", server)
	}

	return &Cluster{
		cfg:     cfg,
		logger:  logger,
		brokers: brokers,
	}, nil
}

// Brokers returns the known broker ids in ascending order.
func (c *Cluster) Brokers() []proto.BrokerId {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	ids := make([]proto.BrokerId, 0, len(c.brokers))
	for id := range c.brokers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Exchange dispatches req to the chosen broker, dialling if the slot has no
// live connection. A failed exchange discards the slot's connection so the
// next call redials.
func (c *Cluster) Exchange(ctx context.Context, req proto.Request, broker proto.BrokerId) (proto.Response, error) {
	slot, err := c.slotFor(broker)
	if err != nil {
		return nil, err
	}

	slot.mtx.Lock()
	defer slot.mtx.Unlock()

	if slot.conn == nil {
		conn, err := Dial(ctx, slot.addr, c.cfg, c.logger)
		if err != nil {
			return nil, err
		}
		slot.conn = conn
	}

	resp, err := slot.conn.Exchange(ctx, req)
	if err != nil {
		_ = slot.conn.Close()
		slot.conn = nil
		return nil, err
	}
	return resp, nil
}

func (c *Cluster) slotFor(broker proto.BrokerId) (*brokerSlot, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if broker == AnyBroker {
		var (
			min   proto.BrokerId
			found bool
		)
		for id := range c.brokers {
			if !found || id < min {
				min, found = id, true
			}
		}
		if !found {
			return nil, ErrUnknownBroker
		}
		return c.brokers[min], nil
	}

	slot, ok := c.brokers[broker]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBroker, broker)
	}
	return slot, nil
}

// Close drops every open connection.
func (c *Cluster) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	var errs error
	for _, slot := range c.brokers {
		slot.mtx.Lock()
		if slot.conn != nil {
			errs = multierr.Append(errs, slot.conn.Close())
			slot.conn = nil
		}
		slot.mtx.Unlock()
	}
	return errs
}
