package proto

import (
	"fmt"
	"io"

	"github.com/grafana/kafkaclient/pkg/wire"
)

// Request is a concrete protocol request: it knows its operation code, the
// protocol version it is written at, and the response type its bytes decode
// into.
type Request interface {
	wire.Encodable

	ApiKey() ApiKey
	Version() int16
	// ResponseKind returns an empty response of the matching type, ready to
	// be filled by Decode.
	ResponseKind() Response
	Decode(d *wire.Decoder) error
}

// Response is the decodable half of an exchange.
type Response interface {
	Decode(d *wire.Decoder) error
}

// MaxFrameSize bounds the response frames this client will read. A frame
// larger than this indicates either a misbehaving broker or a stream that
// has lost framing.
const MaxFrameSize = 128 << 20

type framedRequest struct {
	header RequestHeader
	body   wire.Encodable
}

func (f *framedRequest) Encode(e wire.Encoder) error {
	if err := f.header.Encode(e); err != nil {
		return err
	}
	return f.body.Encode(e)
}

// EncodeRequest assembles the full wire frame for req:
// i32 total size, request header, body.
func EncodeRequest(req Request, correlationId int32, clientId *string) ([]byte, error) {
	framed := &framedRequest{
		header: RequestHeader{
			ApiKey:        req.ApiKey(),
			ApiVersion:    req.Version(),
			CorrelationId: correlationId,
			ClientId:      clientId,
		},
		body: req,
	}

	size, err := wire.Size(framed)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 4+size)
	e := wire.NewByteEncoder(buf)
	e.PutInt32(int32(size))
	if err := framed.Encode(e); err != nil {
		return nil, err
	}

	return buf, nil
}

// WriteRequest frames req and writes it to w.
func WriteRequest(w io.Writer, req Request, correlationId int32, clientId *string) error {
	buf, err := EncodeRequest(req, correlationId, clientId)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadResponseFrame reads one size-prefixed response payload off r. The
// returned bytes start at the correlation id.
func ReadResponseFrame(r io.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}

	size := int32(uint32(sizeBuf[0])<<24 | uint32(sizeBuf[1])<<16 | uint32(sizeBuf[2])<<8 | uint32(sizeBuf[3]))
	if size < 4 || size > MaxFrameSize {
		return nil, fmt.Errorf("response frame size %d out of range", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// DecodeResponse parses payload (with the correlation id already stripped)
// as the response type registered for req.
func DecodeResponse(req Request, payload []byte) (Response, error) {
	resp := req.ResponseKind()
	d := wire.NewDecoder(payload)
	if err := resp.Decode(d); err != nil {
		return nil, wire.FieldError(fmt.Sprintf("%s v%d response", req.ApiKey(), req.Version()), err)
	}
	return resp, nil
}
