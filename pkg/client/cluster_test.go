package client_test

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/grafana/kafkaclient/pkg/client"
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	"github.com/grafana/kafkaclient/pkg/util/test"
)

func TestClusterBootstrap(t *testing.T) {
	broker, err := test.NewBroker()
	require.NoError(t, err)
	defer broker.Close()
	broker.HandleMetadata(2, "events")

	cluster, err := client.Bootstrap(context.Background(), broker.Addr(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer cluster.Close()

	assert.Equal(t, []proto.BrokerId{test.NodeId}, cluster.Brokers())
}

// TestClusterBootstrapFailover puts a dead address first in the server
// list; bootstrap must log past it and succeed on the second.
func TestClusterBootstrapFailover(t *testing.T) {
	broker, err := test.NewBroker()
	require.NoError(t, err)
	defer broker.Close()
	broker.HandleMetadata(1, "events")

	cluster, err := client.Bootstrap(context.Background(), "127.0.0.1:1,"+broker.Addr(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer cluster.Close()

	assert.Equal(t, []proto.BrokerId{test.NodeId}, cluster.Brokers())
}

func TestClusterBootstrapAllFail(t *testing.T) {
	_, err := client.Bootstrap(context.Background(), "127.0.0.1:1,127.0.0.1:2", testConfig(), log.NewNopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrBootstrapFailed)
}

func TestClusterExchangeByBrokerId(t *testing.T) {
	broker, err := test.NewBroker()
	require.NoError(t, err)
	defer broker.Close()
	broker.HandleMetadata(1, "events")
	broker.Handle(proto.Heartbeat, func(req proto.Request) proto.Response {
		hb := req.(*messages.HeartbeatRequest)
		assert.Equal(t, "group-1", hb.GroupId)
		return &messages.HeartbeatResponse{}
	})

	cluster, err := client.Bootstrap(context.Background(), broker.Addr(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer cluster.Close()

	resp, err := cluster.Exchange(context.Background(), &messages.HeartbeatRequest{GroupId: "group-1"}, test.NodeId)
	require.NoError(t, err)
	assert.Equal(t, &messages.HeartbeatResponse{}, resp)

	// AnyBroker routes somewhere deterministic: the lowest id.
	_, err = cluster.Exchange(context.Background(), &messages.HeartbeatRequest{GroupId: "group-1"}, client.AnyBroker)
	require.NoError(t, err)

	_, err = cluster.Exchange(context.Background(), &messages.HeartbeatRequest{}, proto.BrokerId(42))
	assert.ErrorIs(t, err, client.ErrUnknownBroker)
}

// TestClusterRedialsAfterFailure kills the connection mid-stream via a
// handler that drops it; the next exchange must succeed on a fresh dial.
func TestClusterRedialsAfterFailure(t *testing.T) {
	broker, err := test.NewBroker()
	require.NoError(t, err)
	defer broker.Close()
	broker.HandleMetadata(1, "events")

	var drop atomic.Bool
	drop.Store(true)
	broker.Handle(proto.Heartbeat, func(proto.Request) proto.Response {
		if drop.Swap(false) {
			return nil // broker closes the connection without answering
		}
		return &messages.HeartbeatResponse{}
	})

	cluster, err := client.Bootstrap(context.Background(), broker.Addr(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer cluster.Close()

	_, err = cluster.Exchange(context.Background(), &messages.HeartbeatRequest{}, test.NodeId)
	require.Error(t, err)

	resp, err := cluster.Exchange(context.Background(), &messages.HeartbeatRequest{}, test.NodeId)
	require.NoError(t, err)
	assert.Equal(t, &messages.HeartbeatResponse{}, resp)
}
