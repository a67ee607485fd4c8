package client_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/kafkaclient/pkg/client"
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	"github.com/grafana/kafkaclient/pkg/util/test"
	"github.com/grafana/kafkaclient/pkg/wire"
)

func testConfig() client.Config {
	return client.Config{
		ClientID:        "conn-test",
		ConnectTimeout:  time.Second,
		ExchangeTimeout: time.Second,
	}
}

func TestConnExchange(t *testing.T) {
	broker, err := test.NewBroker()
	require.NoError(t, err)
	defer broker.Close()

	broker.Handle(proto.ApiVersions, func(proto.Request) proto.Response {
		return &messages.ApiVersionsResponse{
			ApiKeys: []messages.ApiVersionsRange{{ApiKey: proto.Fetch, MinVersion: 0, MaxVersion: 4}},
		}
	})

	conn, err := client.Dial(context.Background(), broker.Addr(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer conn.Close()

	versions, err := conn.ApiVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []messages.ApiVersionsRange{{ApiKey: proto.Fetch, MinVersion: 0, MaxVersion: 4}}, versions)
}

// TestConnCorrelationDiscipline runs several exchanges on one connection
// against a hand-rolled broker that records the correlation ids it sees:
// they must be 1..k in order, and every response must match its request.
func TestConnCorrelationDiscipline(t *testing.T) {
	const exchanges = 5

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var (
		mtx  sync.Mutex
		seen []int32
	)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		for i := 0; i < exchanges; i++ {
			payload, err := proto.ReadResponseFrame(c)
			if err != nil {
				return
			}
			var header proto.RequestHeader
			if err := header.Decode(wire.NewDecoder(payload)); err != nil {
				return
			}
			mtx.Lock()
			seen = append(seen, header.CorrelationId)
			mtx.Unlock()
			_ = test.WriteResponseFrame(c, header.CorrelationId, &messages.ApiVersionsResponse{})
		}
	}()

	conn, err := client.Dial(context.Background(), ln.Addr().String(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < exchanges; i++ {
		_, err := conn.Exchange(context.Background(), &messages.ApiVersionsRequest{})
		require.NoError(t, err)
	}

	mtx.Lock()
	defer mtx.Unlock()
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, seen)
}

// TestConnCorrelationMismatch transposes the correlation id on the way
// back; the client must fail the exchange with a ProtocolError.
func TestConnCorrelationMismatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		payload, err := proto.ReadResponseFrame(c)
		if err != nil {
			return
		}
		var header proto.RequestHeader
		if err := header.Decode(wire.NewDecoder(payload)); err != nil {
			return
		}
		_ = test.WriteResponseFrame(c, header.CorrelationId+41, &messages.ApiVersionsResponse{})
	}()

	conn, err := client.Dial(context.Background(), ln.Addr().String(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exchange(context.Background(), &messages.ApiVersionsRequest{})
	require.Error(t, err)

	var protoErr *client.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, protoErr.Error(), "correlation_id")
}

// TestConnExchangeTimeout leaves a request unanswered; the exchange must
// fail once its deadline passes instead of blocking forever.
func TestConnExchangeTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		<-done // never answer
	}()

	cfg := testConfig()
	cfg.ExchangeTimeout = 50 * time.Millisecond

	conn, err := client.Dial(context.Background(), ln.Addr().String(), cfg, log.NewNopLogger())
	require.NoError(t, err)
	defer conn.Close()

	start := time.Now()
	_, err = conn.Exchange(context.Background(), &messages.ApiVersionsRequest{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnExchangeContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		<-done
	}()

	conn, err := client.Dial(context.Background(), ln.Addr().String(), testConfig(), log.NewNopLogger())
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = conn.Exchange(ctx, &messages.ApiVersionsRequest{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the in-flight exchange")
}
