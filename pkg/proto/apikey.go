// Package proto defines the typed surface of the Kafka protocol: API keys,
// broker error codes, request/response headers and the framing that turns a
// typed request into bytes on a connection.
package proto

import "fmt"

// ApiKey identifies a protocol operation.
type ApiKey int16

const (
	Produce         ApiKey = 0
	Fetch           ApiKey = 1
	ListOffsets     ApiKey = 2
	Metadata        ApiKey = 3
	OffsetCommit    ApiKey = 8
	OffsetFetch     ApiKey = 9
	FindCoordinator ApiKey = 10
	JoinGroup       ApiKey = 11
	Heartbeat       ApiKey = 12
	LeaveGroup      ApiKey = 13
	SyncGroup       ApiKey = 14
	ApiVersions     ApiKey = 18
)

var apiKeyNames = map[ApiKey]string{
	Produce:         "Produce",
	Fetch:           "Fetch",
	ListOffsets:     "ListOffsets",
	Metadata:        "Metadata",
	OffsetCommit:    "OffsetCommit",
	OffsetFetch:     "OffsetFetch",
	FindCoordinator: "FindCoordinator",
	JoinGroup:       "JoinGroup",
	Heartbeat:       "Heartbeat",
	LeaveGroup:      "LeaveGroup",
	SyncGroup:       "SyncGroup",
	ApiVersions:     "ApiVersions",
}

func (k ApiKey) String() string {
	if name, ok := apiKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ApiKey(%d)", int16(k))
}

// ApiKeyFromCode maps a wire code to a known ApiKey. The second return is
// false for codes this client does not know; callers decide whether that is
// tolerable (ApiVersions responses filter unknowns) or a parse error
// (everywhere else).
func ApiKeyFromCode(code int16) (ApiKey, bool) {
	k := ApiKey(code)
	_, ok := apiKeyNames[k]
	return k, ok
}

// BrokerId identifies a broker within a cluster.
type BrokerId int32
