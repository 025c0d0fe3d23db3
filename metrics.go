package hxwire

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the engine's Prometheus collectors. A nil *metrics records
// nothing, so the engine runs unchanged without a registerer.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	updatesTotal    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Component round trips by component, kind and status",
		}, []string{"component", "kind", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Component round trip duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component", "kind"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed component round trips by error type",
		}, []string{"component", "error_type"}),

		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Client updates received by type",
		}, []string{"component", "type"}),
	}
}

func (m *metrics) observe(component, kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(component, errorType(err)).Inc()
	}
	m.requestsTotal.WithLabelValues(component, kind, status).Inc()
	m.requestDuration.WithLabelValues(component, kind).Observe(time.Since(start).Seconds())
}

func (m *metrics) updates(component string, updates []Update) {
	if m == nil {
		return
	}
	for _, u := range updates {
		m.updatesTotal.WithLabelValues(component, u.Type).Inc()
	}
}

// errorType is a bounded label value for err.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrComponentNotFound):
		return "not_found"
	case errors.Is(err, ErrFingerprintMismatch):
		return "fingerprint"
	case errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrDecryptFailed):
		return "tampered"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrInvalidArgumentType):
		return "argument_type"
	case errors.Is(err, ErrRootTagMissing):
		return "root_tag"
	case errors.Is(err, ErrRenderFailed):
		return "render"
	case IsBadInput(err):
		return "bad_update"
	}
	return "internal"
}
