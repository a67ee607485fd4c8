package proto_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/kafkaclient/pkg/proto"
	"github.com/grafana/kafkaclient/pkg/proto/messages"
	"github.com/grafana/kafkaclient/pkg/wire"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestRequestHeaderWireFormat(t *testing.T) {
	clientID := "testcli"
	header := &proto.RequestHeader{
		ApiKey:        proto.ApiVersions,
		ApiVersion:    0,
		CorrelationId: 1,
		ClientId:      &clientID,
	}

	buf, err := wire.Encode(header)
	require.NoError(t, err)

	expected := hexBytes(t, "0012000000000001000774657374636c69")
	assert.Equal(t, expected, buf)
	assert.Len(t, buf, 17)
}

func TestFramedApiVersionsRequest(t *testing.T) {
	clientID := "testcli"
	buf, err := proto.EncodeRequest(&messages.ApiVersionsRequest{}, 1, &clientID)
	require.NoError(t, err)

	expected := hexBytes(t, "000000110012000000000001000774657374636c69")
	assert.Equal(t, expected, buf)
}

func TestReadResponseFrame(t *testing.T) {
	frame := append([]byte{0x00, 0x00, 0x00, 0x06}, []byte{0x00, 0x00, 0x00, 0x07, 0xab, 0xcd}...)
	payload, err := proto.ReadResponseFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x07, 0xab, 0xcd}, payload)

	var header proto.ResponseHeader
	require.NoError(t, header.Decode(wire.NewDecoder(payload)))
	assert.Equal(t, int32(7), header.CorrelationId)
}

func TestReadResponseFrameRejectsBadSizes(t *testing.T) {
	_, err := proto.ReadResponseFrame(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x00}))
	require.Error(t, err)

	_, err = proto.ReadResponseFrame(bytes.NewReader([]byte{0x7f, 0xff, 0xff, 0xff}))
	require.Error(t, err)
}

func TestErrorForCode(t *testing.T) {
	assert.NoError(t, proto.ErrorForCode(0))
	assert.Equal(t, proto.RebalanceInProgress, proto.ErrorForCode(27))
	assert.Equal(t, proto.MemberIdRequired, proto.ErrorForCode(79))
	assert.Equal(t, proto.UnknownServerError, proto.ErrorForCode(12345))

	assert.True(t, proto.IsRetriable(proto.NotCoordinator))
	assert.False(t, proto.IsRetriable(proto.RebalanceInProgress))
}

func TestApiKeyFromCode(t *testing.T) {
	key, ok := proto.ApiKeyFromCode(18)
	assert.True(t, ok)
	assert.Equal(t, proto.ApiVersions, key)

	_, ok = proto.ApiKeyFromCode(9999)
	assert.False(t, ok)
}

func TestParseErrorContextReadsAsFieldStack(t *testing.T) {
	// A truncated FindCoordinator response: throttle time only.
	req := &messages.FindCoordinatorRequest{Key: "g", KeyType: messages.CoordinatorGroup}
	_, err := proto.DecodeResponse(req, []byte{0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FindCoordinator v2 response")
	assert.Contains(t, err.Error(), "error_code")
	assert.ErrorIs(t, err, wire.ErrInsufficientData)
}
