package proto

import (
	"github.com/grafana/kafkaclient/pkg/wire"
)

// RequestHeader precedes every request body on the wire.
type RequestHeader struct {
	ApiKey        ApiKey
	ApiVersion    int16
	CorrelationId int32
	ClientId      *string
}

func (h *RequestHeader) Encode(e wire.Encoder) error {
	e.PutInt16(int16(h.ApiKey))
	e.PutInt16(h.ApiVersion)
	e.PutInt32(h.CorrelationId)
	return e.PutNullableString(h.ClientId)
}

func (h *RequestHeader) Decode(d *wire.Decoder) error {
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("api_key", err)
	}
	key, ok := ApiKeyFromCode(code)
	if !ok {
		return wire.FieldError("api_key", wire.ErrInvalidLength)
	}
	h.ApiKey = key
	if h.ApiVersion, err = d.Int16(); err != nil {
		return wire.FieldError("api_version", err)
	}
	if h.CorrelationId, err = d.Int32(); err != nil {
		return wire.FieldError("correlation_id", err)
	}
	if h.ClientId, err = d.NullableString(); err != nil {
		return wire.FieldError("client_id", err)
	}
	return nil
}

// ResponseHeader is the correlation id that opens every response payload.
type ResponseHeader struct {
	CorrelationId int32
}

func (h *ResponseHeader) Decode(d *wire.Decoder) error {
	var err error
	if h.CorrelationId, err = d.Int32(); err != nil {
		return wire.FieldError("correlation_id", err)
	}
	return nil
}
