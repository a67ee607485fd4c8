package client

import (
	"flag"
	"time"
)

// Config carries the transport-level settings shared by every broker
// connection.
type Config struct {
	// ClientID is echoed in every request header and shows up in broker
	// request logs and quotas.
	ClientID string `yaml:"client_id"`

	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ExchangeTimeout time.Duration `yaml:"exchange_timeout"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.ClientID, prefix+".client-id", "kafkaclient", "Client ID to echo in request headers.")
	f.DurationVar(&cfg.ConnectTimeout, prefix+".connect-timeout", 10*time.Second, "Timeout for establishing a broker connection.")
	f.DurationVar(&cfg.ExchangeTimeout, prefix+".exchange-timeout", 30*time.Second, "Timeout for a single request/response exchange.")
}
