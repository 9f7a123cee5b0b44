package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/interviewer/internal/analytics"
	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	interviews *interview.Service
	analytics  *analytics.Engine
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a new Handler. m may be nil.
func New(svc *interview.Service, engine *analytics.Engine, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		interviews: svc,
		analytics:  engine,
		metrics:    m,
		logger:     logger.With("component", "http"),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Get("/questions", h.handleQuestions)
			r.Get("/answers", h.handleAnswers)
			r.Post("/answers", h.handleSubmitAnswer)
			r.Post("/complete", h.handleComplete)
			r.Post("/questions/{questionID}/model-answer", h.handleModelAnswer)
			r.Post("/questions/{questionID}/follow-up", h.handleFollowUp)
			r.Get("/topics", h.handleTopics)
			r.Get("/summary", h.handleSummary)
		})
		r.Get("/difficulty", h.handleDifficulty)
		r.Get("/leaderboard", h.handleLeaderboard)
		r.Get("/dashboard/{owner}", h.handleDashboard)
		r.Get("/profiles/{owner}", h.handleProfiles)
		r.Get("/profiles/{owner}/{role}", h.handleProfile)
		r.Post("/profiles/{owner}/{role}", h.handleUpdateProfile)
		r.Post("/profiles/{owner}/{role}/study-plan", h.handleStudyPlan)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req interview.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, model.Validationf("decode body: %v", err))
		return
	}
	sess, err := h.interviews.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.interviews.Session(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	qs, err := h.interviews.Questions(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(qs))
}

func (h *Handler) handleAnswers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	answers, err := h.interviews.Answers(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(answers))
}

type submitAnswerRequest struct {
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, model.Validationf("decode body: %v", err))
		return
	}
	a, err := h.interviews.SubmitAnswer(r.Context(), id, req.QuestionID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.interviews.Complete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleModelAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	qid, err := pathID(r, "questionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.interviews.GenerateModelAnswer(r.Context(), id, qid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type followUpRequest struct {
	Personality string `json:"personality"`
}

// handleFollowUp accepts an empty body, which asks for the default personality.
func (h *Handler) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	qid, err := pathID(r, "questionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, model.Validationf("decode body: %v", err))
		return
	}
	followUp, err := h.interviews.FollowUp(r.Context(), id, qid, req.Personality)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"follow_up": followUp})
}

type topicsResponse struct {
	Scores  map[string]float64 `json:"scores"`
	Weak    []string           `json:"weak"`
	Primary string             `json:"primary,omitempty"`
}

func (h *Handler) handleTopics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	scores, err := h.analytics.TopicScores(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	primary, _ := analytics.Primary(scores)
	writeJSON(w, http.StatusOK, topicsResponse{
		Scores:  scores,
		Weak:    nonNil(analytics.Weak(scores)),
		Primary: primary,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.interviews.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (h *Handler) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	owner, role := r.URL.Query().Get("owner"), r.URL.Query().Get("role")
	if owner == "" || role == "" {
		h.fail(w, r, model.Validationf("owner and role are required"))
		return
	}
	d, err := h.analytics.RecommendDifficulty(owner, role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": owner, "role": role, "difficulty": string(d)})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.analytics.Leaderboard(r.URL.Query().Get("role"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.analytics.Dashboard(chi.URLParam(r, "owner"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.analytics.SkillProfiles(chi.URLParam(r, "owner"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(profiles))
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.analytics.SkillProfile(chi.URLParam(r, "owner"), chi.URLParam(r, "role"))
	h.writeProfile(w, r, p, err)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.analytics.UpdateSkillProfile(chi.URLParam(r, "owner"), chi.URLParam(r, "role"))
	h.writeProfile(w, r, p, err)
}

func (h *Handler) handleStudyPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.interviews.StudyPlan(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "role"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"study_plan": plan})
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, p *model.SkillProfile, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: i18n.T(r.Context(), "NoProfileYet")})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type errorResponse struct {
	Error string `json:"error"`
}

// fail maps err onto a status code and a localised message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var status int
	var msg string
	switch {
	case errors.Is(err, model.ErrNotFound):
		status, msg = http.StatusNotFound, i18n.T(ctx, "NotFound")
	case errors.Is(err, model.ErrInvalidTransition):
		status, msg = http.StatusBadRequest, i18n.T(ctx, "InvalidTransition")
	case errors.Is(err, model.ErrValidation):
		detail := strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": ")
		status, msg = http.StatusBadRequest, i18n.Td(ctx, "InvalidRequest", map[string]any{"Detail": detail})
	case errors.Is(err, model.ErrExternalService):
		status, msg = http.StatusBadGateway, i18n.T(ctx, "ExternalServiceUnavailable")
	default:
		status, msg = http.StatusInternalServerError, i18n.T(ctx, "InternalError")
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Validationf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
