// Package client implements the transport half of the library: a
// single-in-flight broker connection with correlation-id matching, and a
// cluster client holding one lazily dialled, mutex-guarded connection per
// broker.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// Conn is one TCP stream to one broker. It allows a single in-flight
// request at a time; concurrent callers must serialize (the Cluster does
// this with a per-broker mutex). After any transport or protocol error the
// stream may hold unread bytes, so the Conn must be discarded.
type Conn struct {
	conn              net.Conn
	clientID          string
	exchangeTimeout   time.Duration
	lastCorrelationID atomic.Int32
	closed            bool
	logger            log.Logger
}

// Dial connects to a broker address.
func Dial(ctx context.Context, addr string, cfg Config, logger log.Logger) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		metricConnects.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	metricConnects.WithLabelValues("success").Inc()

	return &Conn{
		conn:            netConn,
		clientID:        cfg.ClientID,
		exchangeTimeout: cfg.ExchangeTimeout,
		logger:          logger,
	}, nil
}

// Exchange writes one framed request and reads its response. Correlation
// ids increase by one per request; a response carrying any other id means
// the stream has lost request/response pairing and the Conn is poisoned.
func (c *Conn) Exchange(ctx context.Context, req proto.Request) (proto.Response, error) {
	if c.closed {
		return nil, ErrConnClosed
	}

	api := req.ApiKey().String()
	metricRequests.WithLabelValues(api).Inc()

	resp, err := c.exchange(ctx, req)
	if err != nil {
		metricRequestFailures.WithLabelValues(api).Inc()
		return nil, err
	}
	return resp, nil
}

func (c *Conn) exchange(ctx context.Context, req proto.Request) (proto.Response, error) {
	correlationID := c.lastCorrelationID.Inc()

	deadline := time.Now().Add(c.exchangeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	defer c.interruptOnCancel(ctx)()

	level.Debug(c.logger).Log("msg", "exchange", "api", req.ApiKey(), "version", req.Version(), "correlation_id", correlationID)

	var clientID *string
	if c.clientID != "" {
		clientID = &c.clientID
	}
	if err := proto.WriteRequest(c.conn, req, correlationID, clientID); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	payload, err := proto.ReadResponseFrame(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	d := wire.NewDecoder(payload)
	var header proto.ResponseHeader
	if err := header.Decode(d); err != nil {
		return nil, err
	}
	if header.CorrelationId != correlationID {
		return nil, correlationMismatch(correlationID, header.CorrelationId)
	}

	return proto.DecodeResponse(req, payload[4:])
}

// interruptOnCancel forces in-flight reads and writes to fail promptly when
// ctx is cancelled; deadlines alone would let a cancelled exchange linger
// until the timeout.
func (c *Conn) interruptOnCancel(ctx context.Context) func() {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.SetDeadline(time.Unix(1, 0))
		case <-stop:
		}
	}()
	return func() { close(stop) }
}

// ApiVersions asks the broker which operations and versions it supports.
func (c *Conn) ApiVersions(ctx context.Context) ([]messages.ApiVersionsRange, error) {
	resp, err := c.Exchange(ctx, &messages.ApiVersionsRequest{})
	if err != nil {
		return nil, err
	}
	versions := resp.(*messages.ApiVersionsResponse)
	if err := versions.ErrorCode.Err(); err != nil {
		return nil, err
	}
	return versions.ApiKeys, nil
}

// Close discards the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
