package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EntitlementMetrics tracks quota decisions, recorded operations and OCR runs.
type EntitlementMetrics struct {
	decisions    *prometheus.CounterVec
	recorded     *prometheus.CounterVec
	recordErrors prometheus.Counter
	ocrDuration  *prometheus.HistogramVec
	extractions  *prometheus.CounterVec
}

// NewEntitlementMetrics registers the entitlement metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEntitlementMetrics(reg prometheus.Registerer) *EntitlementMetrics {
	if reg == nil {
		return &EntitlementMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_decisions_total",
		Help: "Entitlement checks by plan type and outcome.",
	}, []string{"plan_type", "outcome"})
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usage_operations_recorded_total",
		Help: "Successful operations counted against the daily quota.",
	}, []string{"language"})
	recordErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "usage_record_failures_total",
		Help: "Operations whose usage could not be recorded after all attempts.",
	})
	ocrDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocr_recognition_duration_seconds",
		Help:    "Duration of OCR recognition calls in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"engine", "outcome"})
	extractions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extractions_total",
		Help: "Extraction requests by final status.",
	}, []string{"status"})
	reg.MustRegister(decisions, recorded, recordErrors, ocrDuration, extractions)
	return &EntitlementMetrics{
		decisions:    decisions,
		recorded:     recorded,
		recordErrors: recordErrors,
		ocrDuration:  ocrDuration,
		extractions:  extractions,
	}
}

// IncDecision counts one entitlement check. outcome is "allowed" or the denial reason.
func (m *EntitlementMetrics) IncDecision(planType, outcome string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(planType), normalizeLabel(outcome)).Inc()
}

// IncRecorded counts one recorded operation for the language code.
func (m *EntitlementMetrics) IncRecorded(language string) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.WithLabelValues(normalizeLabel(language)).Inc()
}

// IncRecordFailure counts an operation lost to the store.
func (m *EntitlementMetrics) IncRecordFailure() {
	if m == nil || m.recordErrors == nil {
		return
	}
	m.recordErrors.Inc()
}

// ObserveRecognition records how long the engine took.
func (m *EntitlementMetrics) ObserveRecognition(engine string, ok bool, duration time.Duration) {
	if m == nil || m.ocrDuration == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.ocrDuration.WithLabelValues(normalizeLabel(engine), outcome).Observe(duration.Seconds())
}

// IncExtraction counts a finished extraction by status.
func (m *EntitlementMetrics) IncExtraction(status string) {
	if m == nil || m.extractions == nil {
		return
	}
	m.extractions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
