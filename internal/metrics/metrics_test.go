package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QuestionsGenerated(SourceGenerator, 5)
	m.QuestionsGenerated(SourceStatic, 0)
	m.Evaluation("mcq", "ok")
	m.Evaluation("mcq", "ok")
	m.Evaluation("subjective", "error")
	m.ObserveExternal("evaluate", time.Now(), errors.New("down"))

	if got := testutil.ToFloat64(m.questionsGenerated.WithLabelValues(SourceGenerator)); got != 5 {
		t.Errorf("questions_generated{generator} = %v, want 5", got)
	}
	if got := testutil.CollectAndCount(m.questionsGenerated); got != 1 {
		t.Errorf("questions_generated series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.evaluations.WithLabelValues("mcq", "ok")); got != 2 {
		t.Errorf("evaluations{mcq,ok} = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.externalLatency); got != 1 {
		t.Errorf("external latency series = %d, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.QuestionsGenerated(SourceBank, 3)
	m.Extraction("structured")
	m.Evaluation("mcq", "ok")
	m.SessionTransition("COMPLETED")
	m.ProfileUpdate("ok")
	m.BankInserted("easy", 1)
	m.ObserveExternal("generate", time.Now(), nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sessions/42", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/sessions/{id}", "404")); got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "interviewer_http_requests_total") {
		t.Error("metrics endpoint does not expose interviewer_http_requests_total")
	}
}
