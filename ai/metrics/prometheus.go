// Package metrics provides Prometheus metrics export for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/summy/ai/core/llm"
)

const namespace = "summy"

// PrometheusExporter exports bot metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Command metrics
	commands       *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec

	// Extraction metrics
	extractions       *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec

	// LLM metrics
	llmRequests     *prometheus.CounterVec
	llmTokensUsed   *prometheus.CounterVec
	llmTokensCached *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec

	messagesSent *prometheus.CounterVec
}

var _ llm.CallRecorder = (*PrometheusExporter)(nil)

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60, 120},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Total number of handled bot commands",
		},
		[]string{"command", "status"},
	)

	e.commandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "command_latency_seconds",
			Help:      "Command handling latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"command"},
	)

	e.extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "extractions_total",
			Help:      "Total number of content extractions by source and resulting kind",
		},
		[]string{"source", "kind", "status"},
	)

	e.extractionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "latency_seconds",
			Help:      "Content extraction latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"source"},
	)

	e.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "token_type"},
	)

	e.llmTokensCached = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_cached_total",
			Help:      "Total LLM tokens served from cache",
		},
		[]string{"model"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "provider"},
	)

	e.messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "messages_sent_total",
			Help:      "Total number of outgoing chat messages",
		},
		[]string{"status"},
	)

	registry.MustRegister(
		e.commands,
		e.commandLatency,
		e.extractions,
		e.extractionLatency,
		e.llmRequests,
		e.llmTokensUsed,
		e.llmTokensCached,
		e.llmLatency,
		e.messagesSent,
	)

	return e
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordCommand records one handled command.
func (e *PrometheusExporter) RecordCommand(command string, latency time.Duration, success bool) {
	e.commands.WithLabelValues(command, status(success)).Inc()
	e.commandLatency.WithLabelValues(command).Observe(latency.Seconds())
}

// RecordExtraction records one extraction. kind is empty on failure.
func (e *PrometheusExporter) RecordExtraction(source, kind string, latency time.Duration, success bool) {
	if kind == "" {
		kind = "none"
	}
	e.extractions.WithLabelValues(source, kind, status(success)).Inc()
	e.extractionLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordLLMCall implements llm.CallRecorder.
func (e *PrometheusExporter) RecordLLMCall(provider, model string, stats *llm.LLMCallStats, latency time.Duration, err error) {
	e.llmRequests.WithLabelValues(provider, model, status(err == nil)).Inc()
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
	if stats == nil {
		return
	}
	e.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(stats.PromptTokens))
	e.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(stats.CompletionTokens))
	if stats.CacheReadTokens > 0 {
		e.llmTokensCached.WithLabelValues(model).Add(float64(stats.CacheReadTokens))
	}
}

// RecordMessageSent records an outgoing message delivery attempt.
func (e *PrometheusExporter) RecordMessageSent(success bool) {
	e.messagesSent.WithLabelValues(status(success)).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
