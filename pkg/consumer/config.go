package consumer

import (
	"errors"
	"flag"
	"time"

	"github.com/grafana/dskit/backoff"
	"github.com/grafana/dskit/flagext"

	"github.com/grafana/kafkaclient/pkg/client"
)

var (
	ErrNoTopics = errors.New("consumer config: at least one topic is required")
	ErrNoGroup  = errors.New("consumer config: group_id is required")
)

// Config holds the group consumer settings. It is immutable for the
// consumer's lifetime.
type Config struct {
	Topics  flagext.StringSlice `yaml:"topics"`
	GroupID string              `yaml:"group_id"`

	Client client.Config `yaml:"client"`

	SessionTimeout   time.Duration `yaml:"session_timeout"`
	RebalanceTimeout time.Duration `yaml:"rebalance_timeout"`
	// HeartbeatInterval defaults to a third of the session timeout when
	// left zero.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	FetchMaxWait           time.Duration `yaml:"fetch_max_wait"`
	FetchMinBytes          int           `yaml:"fetch_min_bytes"`
	FetchMaxBytes          int           `yaml:"fetch_max_bytes"`
	MaxPartitionFetchBytes int           `yaml:"max_partition_fetch_bytes"`

	CommitInterval time.Duration `yaml:"commit_interval"`

	// Backoff paces coordinator lookups and re-join attempts.
	Backoff backoff.Config `yaml:"-"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	cfg.Client.RegisterFlagsAndApplyDefaults(prefix+".client", f)

	f.Var(&cfg.Topics, prefix+".topics", "Topics to consume. Repeatable.")
	f.StringVar(&cfg.GroupID, prefix+".group-id", "", "Consumer group id.")
	f.DurationVar(&cfg.SessionTimeout, prefix+".session-timeout", 30*time.Second, "Group session timeout.")
	f.DurationVar(&cfg.RebalanceTimeout, prefix+".rebalance-timeout", 10*time.Second, "Group rebalance timeout.")
	f.DurationVar(&cfg.HeartbeatInterval, prefix+".heartbeat-interval", 0, "Heartbeat cadence. 0 means a third of the session timeout.")
	f.DurationVar(&cfg.FetchMaxWait, prefix+".fetch-max-wait", 100*time.Millisecond, "How long the broker may hold a fetch waiting for min bytes.")
	f.IntVar(&cfg.FetchMinBytes, prefix+".fetch-min-bytes", 1, "Minimum bytes a fetch response should carry.")
	f.IntVar(&cfg.FetchMaxBytes, prefix+".fetch-max-bytes", 1024*1024, "Maximum bytes per fetch response.")
	f.IntVar(&cfg.MaxPartitionFetchBytes, prefix+".max-partition-fetch-bytes", 1024*1024, "Maximum bytes per partition per fetch response.")
	f.DurationVar(&cfg.CommitInterval, prefix+".commit-interval", 5*time.Second, "How often accepted offsets are committed to the coordinator.")

	cfg.Backoff = backoff.Config{
		MinBackoff: 250 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		MaxRetries: 10,
	}
}

// Validate checks the parts of the config that have no workable default.
func (cfg *Config) Validate() error {
	if len(cfg.Topics) == 0 {
		return ErrNoTopics
	}
	if cfg.GroupID == "" {
		return ErrNoGroup
	}
	return nil
}

func (cfg *Config) heartbeatInterval() time.Duration {
	if cfg.HeartbeatInterval > 0 {
		return cfg.HeartbeatInterval
	}
	return cfg.SessionTimeout / 3
}
