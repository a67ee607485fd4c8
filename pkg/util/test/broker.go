// Package test holds in-process helpers for exercising the client against
// a scripted broker without a real Kafka cluster.
package test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// Handler produces the response for one decoded request.
type Handler func(req proto.Request) proto.Response

// Broker is a minimal in-process Kafka broker: it accepts connections,
// decodes framed requests and answers them from registered handlers,
// echoing correlation ids. Requests with no handler close the connection.
type Broker struct {
	ln net.Listener

	mtx      sync.Mutex
	handlers map[proto.ApiKey]Handler

	wg sync.WaitGroup
}

var requestKinds = map[proto.ApiKey]func() proto.Request{
	proto.ApiVersions:     func() proto.Request { return &messages.ApiVersionsRequest{} },
	proto.Metadata:        func() proto.Request { return &messages.MetadataRequest{} },
	proto.FindCoordinator: func() proto.Request { return &messages.FindCoordinatorRequest{} },
	proto.JoinGroup:       func() proto.Request { return &messages.JoinGroupRequest{} },
	proto.SyncGroup:       func() proto.Request { return &messages.SyncGroupRequest{} },
	proto.OffsetFetch:     func() proto.Request { return &messages.OffsetFetchRequest{} },
	proto.OffsetCommit:    func() proto.Request { return &messages.OffsetCommitRequest{} },
	proto.Fetch:           func() proto.Request { return &messages.FetchRequest{} },
	proto.Heartbeat:       func() proto.Request { return &messages.HeartbeatRequest{} },
	proto.LeaveGroup:      func() proto.Request { return &messages.LeaveGroupRequest{} },
}

// NewBroker starts a broker listening on a random loopback port.
func NewBroker() (*Broker, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	b := &Broker{
		ln:       ln,
		handlers: make(map[proto.ApiKey]Handler),
	}

	b.wg.Add(1)
	go b.acceptLoop()

	return b, nil
}

// Addr returns the host:port the broker listens on.
func (b *Broker) Addr() string {
	return b.ln.Addr().String()
}

// Port returns the listening port.
func (b *Broker) Port() uint16 {
	_, portStr, _ := net.SplitHostPort(b.Addr())
	port, _ := strconv.Atoi(portStr)
	return uint16(port)
}

// NodeId is the broker id this fake reports for itself in canned metadata.
const NodeId proto.BrokerId = 0

// Handle registers (or replaces) the handler for an API key.
func (b *Broker) Handle(key proto.ApiKey, h Handler) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.handlers[key] = h
}

// HandleMetadata registers a Metadata handler describing this broker as
// the single broker and leader for every partition of the given topics.
func (b *Broker) HandleMetadata(partitionsPerTopic int32, topics ...string) {
	host, _, _ := net.SplitHostPort(b.Addr())
	port := b.Port()

	b.Handle(proto.Metadata, func(proto.Request) proto.Response {
		resp := &messages.MetadataResponse{
			Brokers:      []messages.BrokerMetadata{{NodeId: NodeId, Host: host, Port: port}},
			ControllerId: int32(NodeId),
		}
		for _, topic := range topics {
			t := messages.TopicMetadata{Name: topic}
			for p := int32(0); p < partitionsPerTopic; p++ {
				t.Partitions = append(t.Partitions, messages.PartitionMetadata{
					PartitionIndex: p,
					Leader:         NodeId,
					Replicas:       []int32{int32(NodeId)},
					Isr:            []int32{int32(NodeId)},
				})
			}
			resp.Topics = append(resp.Topics, t)
		}
		return resp
	})
}

// Close stops accepting and waits for connection goroutines to finish.
func (b *Broker) Close() {
	_ = b.ln.Close()
	b.wg.Wait()
}

func (b *Broker) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer conn.Close()
			_ = b.serve(conn)
		}()
	}
}

func (b *Broker) serve(conn net.Conn) error {
	for {
		payload, err := proto.ReadResponseFrame(conn)
		if err != nil {
			return err
		}

		d := wire.NewDecoder(payload)
		var header proto.RequestHeader
		if err := header.Decode(d); err != nil {
			return err
		}

		kind, ok := requestKinds[header.ApiKey]
		if !ok {
			return fmt.Errorf("no request kind for %s", header.ApiKey)
		}
		req := kind()
		if err := req.Decode(d); err != nil {
			return err
		}

		b.mtx.Lock()
		handler := b.handlers[header.ApiKey]
		b.mtx.Unlock()
		if handler == nil {
			return errors.New("no handler for " + header.ApiKey.String())
		}

		resp := handler(req)
		if resp == nil {
			// The handler wants the connection dropped mid-exchange.
			return nil
		}

		if err := writeResponse(conn, header.CorrelationId, resp); err != nil {
			return err
		}
	}
}

func writeResponse(conn net.Conn, correlationID int32, resp proto.Response) error {
	return WriteResponseFrame(conn, correlationID, resp)
}

// WriteResponseFrame frames and writes one response with an explicit
// correlation id. Exposed so tests can hand-roll broker behavior the
// scripted Broker does not model, like correlation-id mismatches.
func WriteResponseFrame(w io.Writer, correlationID int32, resp proto.Response) error {
	body, ok := resp.(wire.Encodable)
	if !ok {
		return fmt.Errorf("response %T is not encodable", resp)
	}

	size, err := wire.Size(body)
	if err != nil {
		return err
	}

	buf := make([]byte, 8+size)
	e := wire.NewByteEncoder(buf)
	e.PutInt32(int32(4 + size))
	e.PutInt32(correlationID)
	if err := body.Encode(e); err != nil {
		return err
	}

	_, err = w.Write(buf)
	return err
}
