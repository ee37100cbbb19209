package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	Uploads             prometheus.Counter
	MatchesProcessed    prometheus.Counter
	RowsRejected        *prometheus.CounterVec
	StandingsRecomputed prometheus.Counter
	ProcessingDuration  prometheus.Histogram
	SlackNotifSent      prometheus.Counter
	SlackNotifFailed    prometheus.Counter
	StartupTimeSeconds  prometheus.Gauge
}
