// Package metrics defines the Prometheus collectors of the interview engine.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interviewer"

// Question sources reported by QuestionsGenerated.
const (
	SourceGenerator = "generator"
	SourceBank      = "bank"
	SourceStatic    = "static"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	questionsGenerated *prometheus.CounterVec
	extractions        *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
	sessions           *prometheus.CounterVec
	profileUpdates     *prometheus.CounterVec
	bankInserted       *prometheus.CounterVec
	externalLatency    *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		questionsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_generated_total",
			Help:      "Questions materialized into sessions, by source.",
		}, []string{"source"}),
		extractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Generator responses parsed, by winning extraction tier.",
		}, []string{"tier"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_evaluations_total",
			Help:      "Answers scored at completion, by question type and outcome.",
		}, []string{"type", "outcome"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status transitions, by target status.",
		}, []string{"status"}),
		profileUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_profile_updates_total",
			Help:      "Skill profile recomputations, by outcome.",
		}, []string{"outcome"}),
		bankInserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_questions_inserted_total",
			Help:      "Questions added to the pre-generated bank, by level.",
		}, []string{"level"}),
		externalLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Duration of generator and evaluator calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"operation", "status"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests received",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) QuestionsGenerated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.questionsGenerated.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) Extraction(tier string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(tier).Inc()
}

func (m *Metrics) Evaluation(questionType, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(questionType, outcome).Inc()
}

func (m *Metrics) SessionTransition(status string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(status).Inc()
}

func (m *Metrics) ProfileUpdate(outcome string) {
	if m == nil {
		return
	}
	m.profileUpdates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BankInserted(level string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bankInserted.WithLabelValues(level).Add(float64(n))
}

// ObserveExternal records the duration of one generator or evaluator call.
func (m *Metrics) ObserveExternal(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.externalLatency.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latency labelled by chi route
// pattern, keeping path parameters out of the label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
