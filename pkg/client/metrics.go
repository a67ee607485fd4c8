package client

import "github.com/prometheus/client_golang/prometheus"

const namespace = "kafkaclient"

var (
	metricConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connects_total",
			Help:      "Broker connections established, by outcome.",
		},
		[]string{"outcome"},
	)

	metricRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests exchanged with brokers, by API key.",
		},
		[]string{"api"},
	)

	metricRequestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_failures_total",
			Help:      "Failed request exchanges, by API key.",
		},
		[]string{"api"},
	)
)

func init() {
	prometheus.MustRegister(metricConnects)
	prometheus.MustRegister(metricRequests)
	prometheus.MustRegister(metricRequestFailures)
}
