// Package api provides the TCP ingest surface and Prometheus metrics for
// TickDB-Engine.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Parse metrics
	ParsesTotal    prometheus.Counter
	ParsesFailed   prometheus.Counter
	RowsParsed     prometheus.Counter
	BytesParsed    prometheus.Counter
	RaggedRows     prometheus.Counter
	ParseLatency   prometheus.Histogram
	ParseBatchRows prometheus.Histogram
	ThroughputMBps prometheus.Gauge

	// Ingest metrics
	ConnectionsActive prometheus.Gauge
	FramesTotal       prometheus.Counter
	FrameErrors       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ParsesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Total number of parse calls",
		}),
		ParsesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_failed_total",
			Help:      "Total number of parse calls that failed structurally",
		}),
		RowsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Total number of rows produced",
		}),
		BytesParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_parsed_total",
			Help:      "Total number of input bytes consumed",
		}),
		RaggedRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ragged_rows_total",
			Help:      "Total number of rows whose field count differed from the schema",
		}),
		ParseLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_latency_seconds",
			Help:      "Parse call latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ParseBatchRows: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_batch_rows",
			Help:      "Number of rows per parse call",
			Buckets:   []float64{10, 100, 1000, 10000, 100000, 1000000},
		}),
		ThroughputMBps: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parse_throughput_mbps",
			Help:      "Throughput of the most recent parse call in MB/s",
		}),

		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Current number of open ingest connections",
		}),
		FramesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of ingest frames received",
		}),
		FrameErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Total number of malformed or oversized frames",
		}),
	}
}

// RecordParse records a completed parse call.
func (m *Metrics) RecordParse(rows, bytes, ragged int64, throughputMBps float64, duration time.Duration, success bool) {
	m.ParsesTotal.Inc()
	m.ParseLatency.Observe(duration.Seconds())
	if !success {
		m.ParsesFailed.Inc()
		return
	}
	m.RowsParsed.Add(float64(rows))
	m.BytesParsed.Add(float64(bytes))
	m.RaggedRows.Add(float64(ragged))
	m.ParseBatchRows.Observe(float64(rows))
	m.ThroughputMBps.Set(throughputMBps)
}

// MetricsServer runs an HTTP server exposing /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address.
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
