package proto

// Error is a broker-reported Kafka error. The table below mirrors the
// protocol error-code registry; codes the consumer reacts to by name are
// all present, the rest map through ErrorForCode.
type Error struct {
	// Message is the upstream string form of the code
	// (UNKNOWN_SERVER_ERROR, etc).
	Message string
	// Code is the wire value.
	Code int16
	// Retriable is whether Kafka considers the error retriable.
	Retriable bool
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorForCode returns the error for a broker error code. Code 0 returns
// nil; unknown codes return UnknownServerError.
func ErrorForCode(code int16) error {
	if code == 0 {
		return nil
	}
	if err, ok := code2err[code]; ok {
		return err
	}
	return UnknownServerError
}

// IsRetriable reports whether err is a broker error Kafka marks retriable.
func IsRetriable(err error) bool {
	kerr, ok := err.(*Error)
	return ok && kerr.Retriable
}

var (
	UnknownServerError           = &Error{"UNKNOWN_SERVER_ERROR", -1, false}
	OffsetOutOfRange             = &Error{"OFFSET_OUT_OF_RANGE", 1, false}
	CorruptMessage               = &Error{"CORRUPT_MESSAGE", 2, true}
	UnknownTopicOrPartition      = &Error{"UNKNOWN_TOPIC_OR_PARTITION", 3, true}
	InvalidFetchSize             = &Error{"INVALID_FETCH_SIZE", 4, false}
	LeaderNotAvailable           = &Error{"LEADER_NOT_AVAILABLE", 5, true}
	NotLeaderForPartition        = &Error{"NOT_LEADER_FOR_PARTITION", 6, true}
	RequestTimedOut              = &Error{"REQUEST_TIMED_OUT", 7, true}
	BrokerNotAvailable           = &Error{"BROKER_NOT_AVAILABLE", 8, false}
	ReplicaNotAvailable          = &Error{"REPLICA_NOT_AVAILABLE", 9, false}
	MessageTooLarge              = &Error{"MESSAGE_TOO_LARGE", 10, false}
	StaleControllerEpoch         = &Error{"STALE_CONTROLLER_EPOCH", 11, false}
	OffsetMetadataTooLarge       = &Error{"OFFSET_METADATA_TOO_LARGE", 12, false}
	NetworkException             = &Error{"NETWORK_EXCEPTION", 13, true}
	CoordinatorLoadInProgress    = &Error{"COORDINATOR_LOAD_IN_PROGRESS", 14, true}
	CoordinatorNotAvailable      = &Error{"COORDINATOR_NOT_AVAILABLE", 15, true}
	NotCoordinator               = &Error{"NOT_COORDINATOR", 16, true}
	InvalidTopicException        = &Error{"INVALID_TOPIC_EXCEPTION", 17, false}
	RecordListTooLarge           = &Error{"RECORD_LIST_TOO_LARGE", 18, false}
	NotEnoughReplicas            = &Error{"NOT_ENOUGH_REPLICAS", 19, true}
	NotEnoughReplicasAfterAppend = &Error{"NOT_ENOUGH_REPLICAS_AFTER_APPEND", 20, true}
	InvalidRequiredAcks          = &Error{"INVALID_REQUIRED_ACKS", 21, false}
	IllegalGeneration            = &Error{"ILLEGAL_GENERATION", 22, false}
	InconsistentGroupProtocol    = &Error{"INCONSISTENT_GROUP_PROTOCOL", 23, false}
	InvalidGroupId               = &Error{"INVALID_GROUP_ID", 24, false}
	UnknownMemberId              = &Error{"UNKNOWN_MEMBER_ID", 25, false}
	InvalidSessionTimeout        = &Error{"INVALID_SESSION_TIMEOUT", 26, false}
	RebalanceInProgress          = &Error{"REBALANCE_IN_PROGRESS", 27, false}
	InvalidCommitOffsetSize      = &Error{"INVALID_COMMIT_OFFSET_SIZE", 28, false}
	TopicAuthorizationFailed     = &Error{"TOPIC_AUTHORIZATION_FAILED", 29, false}
	GroupAuthorizationFailed     = &Error{"GROUP_AUTHORIZATION_FAILED", 30, false}
	ClusterAuthorizationFailed   = &Error{"CLUSTER_AUTHORIZATION_FAILED", 31, false}
	InvalidTimestamp             = &Error{"INVALID_TIMESTAMP", 32, false}
	UnsupportedSaslMechanism     = &Error{"UNSUPPORTED_SASL_MECHANISM", 33, false}
	IllegalSaslState             = &Error{"ILLEGAL_SASL_STATE", 34, false}
	UnsupportedVersion           = &Error{"UNSUPPORTED_VERSION", 35, false}
	TopicAlreadyExists           = &Error{"TOPIC_ALREADY_EXISTS", 36, false}
	InvalidPartitions            = &Error{"INVALID_PARTITIONS", 37, false}
	InvalidReplicationFactor     = &Error{"INVALID_REPLICATION_FACTOR", 38, false}
	InvalidReplicaAssignment     = &Error{"INVALID_REPLICA_ASSIGNMENT", 39, false}
	InvalidConfig                = &Error{"INVALID_CONFIG", 40, false}
	NotController                = &Error{"NOT_CONTROLLER", 41, true}
	InvalidRequest               = &Error{"INVALID_REQUEST", 42, false}
	UnsupportedForMessageFormat  = &Error{"UNSUPPORTED_FOR_MESSAGE_FORMAT", 43, false}
	PolicyViolation              = &Error{"POLICY_VIOLATION", 44, false}
	MemberIdRequired             = &Error{"MEMBER_ID_REQUIRED", 79, false}
	FencedInstanceId             = &Error{"FENCED_INSTANCE_ID", 82, false}
)

var code2err = map[int16]*Error{
	-1: UnknownServerError,
	1:  OffsetOutOfRange,
	2:  CorruptMessage,
	3:  UnknownTopicOrPartition,
	4:  InvalidFetchSize,
	5:  LeaderNotAvailable,
	6:  NotLeaderForPartition,
	7:  RequestTimedOut,
	8:  BrokerNotAvailable,
	9:  ReplicaNotAvailable,
	10: MessageTooLarge,
	11: StaleControllerEpoch,
	12: OffsetMetadataTooLarge,
	13: NetworkException,
	14: CoordinatorLoadInProgress,
	15: CoordinatorNotAvailable,
	16: NotCoordinator,
	17: InvalidTopicException,
	18: RecordListTooLarge,
	19: NotEnoughReplicas,
	20: NotEnoughReplicasAfterAppend,
	21: InvalidRequiredAcks,
	22: IllegalGeneration,
	23: InconsistentGroupProtocol,
	24: InvalidGroupId,
	25: UnknownMemberId,
	26: InvalidSessionTimeout,
	27: RebalanceInProgress,
	28: InvalidCommitOffsetSize,
	29: TopicAuthorizationFailed,
	30: GroupAuthorizationFailed,
	31: ClusterAuthorizationFailed,
	32: InvalidTimestamp,
	33: UnsupportedSaslMechanism,
	34: IllegalSaslState,
	35: UnsupportedVersion,
	36: TopicAlreadyExists,
	37: InvalidPartitions,
	38: InvalidReplicationFactor,
	39: InvalidReplicaAssignment,
	40: InvalidConfig,
	41: NotController,
	42: InvalidRequest,
	43: UnsupportedForMessageFormat,
	44: PolicyViolation,
	79: MemberIdRequired,
	82: FencedInstanceId,
}

// ErrorCode is the wire form of a broker error. Err converts the code to
// the table error above.
type ErrorCode int16

// Err returns nil for code 0, the mapped *Error otherwise.
func (c ErrorCode) Err() error {
	return ErrorForCode(int16(c))
}
