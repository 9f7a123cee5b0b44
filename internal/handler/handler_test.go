package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavelanni/interviewer/internal/analytics"
	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/scoring"
	"github.com/pavelanni/interviewer/internal/store"
)

type stubGenerator struct{ err error }

func (g *stubGenerator) GenerateQuestions(_ context.Context, req llm.GenerateRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	items := make([]string, req.Count)
	for i := range items {
		items[i] = fmt.Sprintf(`{"question": "Q%d?", "options": ["A) yes", "B) no"], "correctAnswer": "A", "topic": "Basics"}`, i+1)
	}
	return "[" + strings.Join(items, ",") + "]", nil
}

func (g *stubGenerator) GenerateModelAnswer(context.Context, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return `{"modelAnswer": "Yes."}`, nil
}

func (g *stubGenerator) PerformanceSummary(context.Context, prompts.SummaryData) (string, error) {
	return "Well done.", nil
}

func (g *stubGenerator) FollowUp(_ context.Context, _, _ string, p model.Personality) (string, error) {
	return "Why? (" + string(p) + ")", nil
}

func (g *stubGenerator) StudyPlan(context.Context, prompts.StudyPlanData) (string, error) {
	return "Week 1: basics.", nil
}

type stubJudge struct{}

func (stubJudge) EvaluateSubjective(context.Context, string, string) (string, error) {
	return "score: 7", nil
}

type testServer struct {
	*httptest.Server
	gen *stubGenerator
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	if err := i18n.Init("en", nil); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	cfg := model.DefaultConfig()
	gen := &stubGenerator{}
	engine := analytics.NewEngine(st, logger, m)
	eval := scoring.NewEvaluator(st, stubJudge{}, logger, m, cfg)
	svc := interview.New(st, gen, eval, engine, logger, m, cfg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Use(i18n.Middleware)
	New(svc, engine, m, logger).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return testServer{Server: srv, gen: gen}
}

func (s testServer) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	return s.doLang(t, method, path, body, "", out)
}

func (s testServer) doLang(t *testing.T, method, path, body, lang string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	if code := srv.do(t, http.MethodGet, "/healthz", "", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("GET /healthz = %d %v", code, body)
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	var sess model.Session
	code := srv.do(t, http.MethodPost, "/api/sessions", `{"owner": "ann", "role": "Go Developer", "type": "mcq", "question_count": 3}`, &sess)
	if code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}
	if sess.Status != model.StatusInProgress || sess.TotalQuestions != 3 || sess.Difficulty != model.DifficultyMedium {
		t.Fatalf("created session = %+v", sess)
	}
	base := fmt.Sprintf("/api/sessions/%d", sess.ID)

	var qs []model.Question
	if code := srv.do(t, http.MethodGet, base+"/questions", "", &qs); code != http.StatusOK || len(qs) != 3 {
		t.Fatalf("questions = %d, %d items", code, len(qs))
	}
	for _, q := range qs {
		body := fmt.Sprintf(`{"question_id": %d, "text": "A"}`, q.ID)
		if code := srv.do(t, http.MethodPost, base+"/answers", body, nil); code != http.StatusOK {
			t.Fatalf("submit answer = %d", code)
		}
	}
	var answers []model.Answer
	if code := srv.do(t, http.MethodGet, base+"/answers", "", &answers); code != http.StatusOK || len(answers) != 3 {
		t.Errorf("answers = %d, %d items", code, len(answers))
	}

	var done model.Session
	if code := srv.do(t, http.MethodPost, base+"/complete", "", &done); code != http.StatusOK {
		t.Fatalf("complete = %d", code)
	}
	if done.Score != 3 || done.Status != model.StatusCompleted {
		t.Errorf("completed session = %+v", done)
	}

	var got model.Session
	if code := srv.do(t, http.MethodGet, base, "", &got); code != http.StatusOK || got.Score != 3 {
		t.Errorf("get session = %d %+v", code, got)
	}

	var q model.Question
	if code := srv.do(t, http.MethodPost, fmt.Sprintf("%s/questions/%d/model-answer", base, qs[0].ID), "", &q); code != http.StatusOK || q.ModelAnswer != "Yes." {
		t.Errorf("model answer = %d %q", code, q.ModelAnswer)
	}

	var topics struct {
		Scores  map[string]float64 `json:"scores"`
		Weak    []string           `json:"weak"`
		Primary string             `json:"primary"`
	}
	if code := srv.do(t, http.MethodGet, base+"/topics", "", &topics); code != http.StatusOK || topics.Scores["Basics"] != 100 {
		t.Errorf("topics = %d %+v", code, topics)
	}

	var summary map[string]string
	if code := srv.do(t, http.MethodGet, base+"/summary", "", &summary); code != http.StatusOK || summary["summary"] != "Well done." {
		t.Errorf("summary = %d %v", code, summary)
	}

	var profile model.SkillProfile
	if code := srv.do(t, http.MethodGet, "/api/profiles/ann/Go%20Developer", "", &profile); code != http.StatusOK || profile.ConfidenceScore != 100 {
		t.Errorf("profile = %d %+v", code, profile)
	}
	var profiles []model.SkillProfile
	if code := srv.do(t, http.MethodGet, "/api/profiles/ann", "", &profiles); code != http.StatusOK || len(profiles) != 1 {
		t.Errorf("profiles = %d, %d items", code, len(profiles))
	}

	var diff map[string]string
	if code := srv.do(t, http.MethodGet, "/api/difficulty?owner=ann&role=Go+Developer", "", &diff); code != http.StatusOK || diff["difficulty"] != "hard" {
		t.Errorf("difficulty = %d %v", code, diff)
	}

	var board []model.LeaderboardEntry
	if code := srv.do(t, http.MethodGet, "/api/leaderboard?role=go+developer", "", &board); code != http.StatusOK || len(board) != 1 || board[0].Owner != "ann" {
		t.Errorf("leaderboard = %d %+v", code, board)
	}

	var dash model.Dashboard
	if code := srv.do(t, http.MethodGet, "/api/dashboard/ann", "", &dash); code != http.StatusOK || dash.TotalSessions != 1 || dash.BestRole != "Go Developer" {
		t.Errorf("dashboard = %d %+v", code, dash)
	}
}

func TestFollowUpAndStudyPlan(t *testing.T) {
	srv := newTestServer(t)
	var sess model.Session
	srv.do(t, http.MethodPost, "/api/sessions", `{"owner": "ann", "role": "Go", "type": "mcq", "question_count": 2}`, &sess)
	base := fmt.Sprintf("/api/sessions/%d", sess.ID)
	var qs []model.Question
	srv.do(t, http.MethodGet, base+"/questions", "", &qs)
	srv.do(t, http.MethodPost, base+"/answers", fmt.Sprintf(`{"question_id": %d, "text": "A"}`, qs[0].ID), nil)
	followUp := fmt.Sprintf("%s/questions/%d/follow-up", base, qs[0].ID)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{"default personality", followUp, "", http.StatusOK, "Why? (FRIENDLY)"},
		{"strict", followUp, `{"personality": "strict"}`, http.StatusOK, "Why? (STRICT)"},
		{"unknown personality", followUp, `{"personality": "grumpy"}`, http.StatusBadRequest, "unknown personality"},
		{"bad body", followUp, "{", http.StatusBadRequest, "decode body"},
		{"unanswered", fmt.Sprintf("%s/questions/%d/follow-up", base, qs[1].ID), "", http.StatusBadRequest, "no answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			code := srv.do(t, http.MethodPost, tt.path, tt.body, &body)
			if code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
			got := body["follow_up"]
			if code != http.StatusOK {
				got = body["error"]
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("body = %v, want it to contain %q", body, tt.want)
			}
		})
	}

	var body map[string]string
	if code := srv.do(t, http.MethodPost, "/api/profiles/ann/Go/study-plan", "", &body); code != http.StatusNotFound {
		t.Errorf("study plan before completion = %d %v", code, body)
	}
	srv.do(t, http.MethodPost, base+"/complete", "", nil)
	body = nil
	if code := srv.do(t, http.MethodPost, "/api/profiles/ann/Go/study-plan", "", &body); code != http.StatusOK || body["study_plan"] != "Week 1: basics." {
		t.Errorf("study plan = %d %v", code, body)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	var sess model.Session
	srv.do(t, http.MethodPost, "/api/sessions", `{"owner": "ann", "role": "Go", "type": "mcq", "question_count": 1}`, &sess)
	base := fmt.Sprintf("/api/sessions/%d", sess.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"unknown session", http.MethodGet, "/api/sessions/999", "", http.StatusNotFound, "The requested item was not found."},
		{"bad id", http.MethodGet, "/api/sessions/abc", "", http.StatusBadRequest, "Invalid request: id must be a positive integer"},
		{"bad body", http.MethodPost, "/api/sessions", "{", http.StatusBadRequest, "Invalid request: decode body"},
		{"missing role", http.MethodPost, "/api/sessions", `{"owner": "ann"}`, http.StatusBadRequest, "Invalid request: role is required"},
		{"blank answer", http.MethodPost, base + "/answers", `{"question_id": 1, "text": " "}`, http.StatusBadRequest, "Invalid request: answer text is required"},
		{"no profile", http.MethodGet, "/api/profiles/zed/Go", "", http.StatusNotFound, "No skill profile yet"},
		{"difficulty needs params", http.MethodGet, "/api/difficulty?owner=ann", "", http.StatusBadRequest, "owner and role are required"},
		{"summary before completion", http.MethodGet, base + "/summary", "", http.StatusBadRequest, "summaries need a completed session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			code := srv.do(t, tt.method, tt.path, tt.body, &body)
			if code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
			if !strings.Contains(body.Error, tt.want) {
				t.Errorf("error = %q, want it to contain %q", body.Error, tt.want)
			}
		})
	}

	srv.do(t, http.MethodPost, base+"/complete", "", nil)
	var body errorResponse
	if code := srv.do(t, http.MethodPost, base+"/complete", "", &body); code != http.StatusBadRequest || !strings.Contains(body.Error, "not in a state") {
		t.Errorf("second complete = %d %q", code, body.Error)
	}
}

func TestExternalServiceError(t *testing.T) {
	srv := newTestServer(t)
	var sess model.Session
	srv.do(t, http.MethodPost, "/api/sessions", `{"owner": "ann", "role": "Go", "type": "mcq", "question_count": 1}`, &sess)
	var qs []model.Question
	srv.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/%d/questions", sess.ID), "", &qs)

	srv.gen.err = &llm.ProviderError{Provider: "stub", Code: llm.ErrCodeServiceDown, Message: "down"}
	var body errorResponse
	code := srv.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/questions/%d/model-answer", sess.ID, qs[0].ID), "", &body)
	if code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", code)
	}
	if !strings.Contains(body.Error, "temporarily unavailable") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestLocalisedErrors(t *testing.T) {
	srv := newTestServer(t)
	var body errorResponse
	code := srv.doLang(t, http.MethodGet, "/api/sessions/999", "", "ru", &body)
	if code != http.StatusNotFound || body.Error != "Запрошенный объект не найден." {
		t.Errorf("ru error = %d %q", code, body.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodGet, "/api/sessions/999", "", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	out := string(data)
	if !strings.Contains(out, "interviewer_http_requests_total{") || !strings.Contains(out, `status="404"`) {
		t.Errorf("metrics output missing request counter:\n%s", data)
	}
}
