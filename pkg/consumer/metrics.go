package consumer

import "github.com/prometheus/client_golang/prometheus"

const namespace = "kafkaclient"

var (
	metricRebalances = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "rebalances_total",
			Help:      "Group rebalances entered by this consumer.",
		},
	)

	metricHeartbeats = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "heartbeats_total",
			Help:      "Heartbeats sent, by outcome.",
		},
		[]string{"outcome"},
	)

	metricFetchedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "fetched_records_total",
			Help:      "Records delivered through assignment streams.",
		},
	)

	metricCommittedOffsets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "committed_offsets_total",
			Help:      "Partition offsets committed to the coordinator.",
		},
	)
)

func init() {
	prometheus.MustRegister(metricRebalances)
	prometheus.MustRegister(metricHeartbeats)
	prometheus.MustRegister(metricFetchedRecords)
	prometheus.MustRegister(metricCommittedOffsets)
}
