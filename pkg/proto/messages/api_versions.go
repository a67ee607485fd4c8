// Package messages holds the typed request/response pairs for every
// protocol operation the client speaks, each pinned to a single API
// version. Encode and Decode are hand-written against the wire package in
// declaration order; the round-trip tests keep them honest.
package messages

import (
	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/wire"
)

// ApiVersionsRequest is ApiVersions v0. The body is empty.
type ApiVersionsRequest struct{}

func (*ApiVersionsRequest) ApiKey() proto.ApiKey { return proto.ApiVersions }
func (*ApiVersionsRequest) Version() int16 { return 0 }
func (*ApiVersionsRequest) ResponseKind() proto.Response { return &ApiVersionsResponse{} }

func (*ApiVersionsRequest) Encode(wire.Encoder) error { return nil }

func (*ApiVersionsRequest) Decode(*wire.Decoder) error { return nil }

type ApiVersionsResponse struct {
	ErrorCode proto.ErrorCode
	// ApiKeys holds the ranges for keys this client knows. Unknown keys in
	// the broker response are dropped during decode.
	ApiKeys []ApiVersionsRange
}

type ApiVersionsRange struct {
	ApiKey     proto.ApiKey
	MinVersion int16
	MaxVersion int16
}

func (r *ApiVersionsResponse) Encode(e wire.Encoder) error {
	e.PutInt16(int16(r.ErrorCode))
	if err := e.PutArrayLength(len(r.ApiKeys)); err != nil {
		return err
	}
	for _, k := range r.ApiKeys {
		e.PutInt16(int16(k.ApiKey))
		e.PutInt16(k.MinVersion)
		e.PutInt16(k.MaxVersion)
	}
	return nil
}

func (r *ApiVersionsResponse) Decode(d *wire.Decoder) error {
	code, err := d.Int16()
	if err != nil {
		return wire.FieldError("error_code", err)
	}
	r.ErrorCode = proto.ErrorCode(code)

	n, err := d.ArrayLength()
	if err != nil {
		return wire.FieldError("api_keys", err)
	}
	r.ApiKeys = make([]ApiVersionsRange, 0, n)
	for i := 0; i < n; i++ {
		var keyCode, minV, maxV int16
		if keyCode, err = d.Int16(); err != nil {
			return wire.FieldError("api_keys.api_key", err)
		}
		if minV, err = d.Int16(); err != nil {
			return wire.FieldError("api_keys.min_version", err)
		}
		if maxV, err = d.Int16(); err != nil {
			return wire.FieldError("api_keys.max_version", err)
		}
		key, known := proto.ApiKeyFromCode(keyCode)
		if !known {
			// ApiVersions is the one place unknown codes are tolerated:
			// newer brokers advertise operations this client has no name
			// for.
			continue
		}
		r.ApiKeys = append(r.ApiKeys, ApiVersionsRange{ApiKey: key, MinVersion: minV, MaxVersion: maxV})
	}
	return nil
}
