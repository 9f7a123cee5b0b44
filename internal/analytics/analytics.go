// Package analytics derives recommendations and rankings from completed
// sessions: next difficulty, weak topics, skill profiles, leaderboard and
// dashboard. All of it reads persisted state only.
package analytics

import (
	"log/slog"
	"math"

	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
)

// Store is the read/write persistence the engine needs.
type Store interface {
	GetSession(id int64) (model.Session, error)
	ListSessions() ([]model.Session, error)
	ListSessionsByOwner(owner string) ([]model.Session, error)
	ListSessionsByOwnerRole(owner, role string) ([]model.Session, error)
	QuestionsForSession(sessionID int64) ([]model.Question, error)
	AnswersForSession(sessionID int64) ([]model.Answer, error)
	GetSkillProfile(owner, role string) (*model.SkillProfile, error)
	UpsertSkillProfile(p model.SkillProfile) (model.SkillProfile, error)
	ListSkillProfiles(owner string) ([]model.SkillProfile, error)
}

// Engine runs the analytics algorithms over a store.
type Engine struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewEngine creates an engine. m may be nil.
func NewEngine(store Store, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		store:   store,
		logger:  logger.With("component", "analytics"),
		metrics: m,
	}
}

// MaxPossible returns the highest total score the questions allow.
func MaxPossible(questions []model.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Type.MaxPoints()
	}
	return total
}

// QuestionPercent puts one answer score on the 0-100 scale of its question type.
func QuestionPercent(q model.Question, score int) float64 {
	return math.Min(100, float64(score)*100/float64(q.Type.MaxPoints()))
}

// SessionPercent returns the session score as a percentage of the maximum
// its questions allow, capped at 100. Without questions it approximates with
// score/totalQuestions, which assumes one point per question.
func SessionPercent(s model.Session, questions []model.Question) float64 {
	var pct float64
	if maxPoints := MaxPossible(questions); maxPoints > 0 {
		pct = float64(s.Score) * 100 / float64(maxPoints)
	} else if s.TotalQuestions > 0 {
		pct = float64(s.Score) * 100 / float64(s.TotalQuestions)
	}
	return math.Min(100, pct)
}

// sessionPercent loads the session's questions and applies SessionPercent.
// A failed lookup falls back to the question-count approximation.
func (e *Engine) sessionPercent(s model.Session) float64 {
	questions, err := e.store.QuestionsForSession(s.ID)
	if err != nil {
		e.logger.Warn("questions unavailable, approximating percentage", "session_id", s.ID, "error", err)
		questions = nil
	}
	return SessionPercent(s, questions)
}

// scorable reports whether a session counts toward percentage statistics.
func scorable(s model.Session) bool {
	return s.Status == model.StatusCompleted && s.TotalQuestions > 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
