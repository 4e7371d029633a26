// Package metrics defines the Prometheus collectors of the scoring service
// and serves them for scraping on a separate port.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus collectors for the decoder.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	FeatureFunctions    prometheus.Gauge
	ScoreSlots          prometheus.Gauge
	FeatureLoadDuration *prometheus.HistogramVec
	FeatureLoadFailures *prometheus.CounterVec

	ScoreRequestsTotal   *prometheus.CounterVec
	ScoreLatency         prometheus.Histogram
	CandidatesPerRequest prometheus.Histogram
	PoolBytes            prometheus.Histogram
	LookupDuration       *prometheus.HistogramVec
	KafkaMessagesTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg means
// the process-wide default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		FeatureFunctions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "decoder_feature_functions",
				Help: "Number of configured feature functions.",
			},
		),
		ScoreSlots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "decoder_score_slots",
				Help: "Width of the global score vector.",
			},
		),
		FeatureLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decoder_feature_load_seconds",
				Help:    "Time spent loading each feature function.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"feature", "phase"},
		),
		FeatureLoadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decoder_feature_load_failures_total",
				Help: "Feature function loads that returned an error.",
			},
			[]string{"feature"},
		),
		ScoreRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decoder_score_requests_total",
				Help: "Scoring requests by outcome (ok, unknown, error).",
			},
			[]string{"status"},
		),
		ScoreLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decoder_score_latency_seconds",
				Help:    "Latency of one scoring request.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		CandidatesPerRequest: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decoder_candidates_per_request",
				Help:    "Translation candidates scored per request.",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500},
			},
		),
		PoolBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decoder_pool_reserved_bytes",
				Help:    "Arena bytes reserved by one scoring request.",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "decoder_phrase_table_lookup_seconds",
				Help:    "Phrase table lookup latency by table.",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"table"},
		),
		KafkaMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decoder_kafka_messages_total",
				Help: "Kafka scoring messages by outcome.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.FeatureFunctions,
		m.ScoreSlots,
		m.FeatureLoadDuration,
		m.FeatureLoadFailures,
		m.ScoreRequestsTotal,
		m.ScoreLatency,
		m.CandidatesPerRequest,
		m.PoolBytes,
		m.LookupDuration,
		m.KafkaMessagesTotal,
	)

	return m
}
