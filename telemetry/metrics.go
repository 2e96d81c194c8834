// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesReceived     prometheus.Counter
	LinesSent         prometheus.Counter
	LinesUnrecognized prometheus.Counter
	LinesMalformed    prometheus.Counter
	PongsSent         prometheus.Counter
	EventsDispatched  *prometheus.CounterVec

	// Histograms (seconds)
	HandlerDuration prometheus.Observer

	// Gauges
	OutboundQueueDepth prometheus.Gauge
	ClientState        prometheus.Gauge // chat.State ordinal
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_received_total", Help: "Number of CRLF-framed lines read from the gateway"})
		LinesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_sent_total", Help: "Number of lines written to the gateway"})
		LinesUnrecognized = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_unrecognized_total", Help: "Number of inbound lines that matched no known shape"})
		LinesMalformed = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_lines_malformed_total", Help: "Number of inbound lines skipped because they were not valid UTF-8"})
		PongsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_pongs_total", Help: "Number of keepalive challenges answered"})
		EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_events_dispatched_total", Help: "Number of events dispatched to handlers"}, []string{"kind"})
		HandlerDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_dispatch_duration_seconds", Help: "Time spent running all handlers for one event", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}})
		OutboundQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_outbound_queue_depth", Help: "Lines waiting in the outbound queue"})
		ClientState = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_client_state", Help: "Client state: 0=idle 1=connected 2=authenticating 3=running 4=closed"})
	})
}

// IncLinesReceived counts one framed inbound line.
func IncLinesReceived() {
	if LinesReceived != nil {
		LinesReceived.Inc()
	}
}

// IncLinesSent counts one written outbound line.
func IncLinesSent() {
	if LinesSent != nil {
		LinesSent.Inc()
	}
}

// IncLinesUnrecognized counts one dropped inbound line.
func IncLinesUnrecognized() {
	if LinesUnrecognized != nil {
		LinesUnrecognized.Inc()
	}
}

// IncLinesMalformed counts one inbound line that failed to decode.
func IncLinesMalformed() {
	if LinesMalformed != nil {
		LinesMalformed.Inc()
	}
}

// IncPongs counts one keepalive reply.
func IncPongs() {
	if PongsSent != nil {
		PongsSent.Inc()
	}
}

// IncEventsDispatched counts one dispatch of the given kind.
func IncEventsDispatched(kind string) {
	if EventsDispatched != nil {
		EventsDispatched.WithLabelValues(kind).Inc()
	}
}

// SetOutboundDepth records the current outbound queue length.
func SetOutboundDepth(n int) {
	if OutboundQueueDepth != nil {
		OutboundQueueDepth.Set(float64(n))
	}
}

// SetClientState records the client's state ordinal.
func SetClientState(n int) {
	if ClientState != nil {
		ClientState.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	defer func() {
		if obs != nil {
			obs.Observe(time.Since(start).Seconds())
		}
	}()
	fn()
	return time.Since(start)
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
