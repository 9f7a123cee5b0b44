package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
)

// Client sends a single prompt to a text-generation backend.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// GenerateRequest describes one batch of questions to generate.
type GenerateRequest struct {
	Role        string
	Level       model.Difficulty
	Count       int
	WeakTopic   string
	Kind        model.QuestionType
	Personality model.Personality
}

// Service renders prompts and calls the configured client. Its responses are
// returned raw; parsing them is the caller's job.
type Service struct {
	client  Client
	prompts *prompts.Set
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a service. m may be nil.
func NewService(client Client, set *prompts.Set, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		client:  client,
		prompts: set,
		logger:  logger.With("component", "llm", "provider", client.Provider()),
		metrics: m,
	}
}

// GenerateQuestions asks for req.Count questions of req.Kind.
func (s *Service) GenerateQuestions(ctx context.Context, req GenerateRequest) (string, error) {
	name, kind := prompts.Subjective, model.QuestionSubjective
	if req.Kind == model.QuestionMCQ {
		name, kind = prompts.MCQ, model.QuestionMCQ
	}
	prompt, err := s.prompts.Render(name, prompts.GenerateData{
		Role:        req.Role,
		Level:       string(req.Level),
		Count:       req.Count,
		WeakTopic:   req.WeakTopic,
		Personality: string(req.Personality),
	})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "generate_"+string(kind), prompt)
}

// EvaluateSubjective asks for a 0-10 score of answer to question.
func (s *Service) EvaluateSubjective(ctx context.Context, question, answer string) (string, error) {
	prompt, err := s.prompts.BuildEvalPrompt(question, answer)
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "evaluate", prompt)
}

// GenerateModelAnswer asks for a reference answer to question.
func (s *Service) GenerateModelAnswer(ctx context.Context, question string) (string, error) {
	prompt, err := s.prompts.Render(prompts.ModelAnswer, prompts.EvalData{Question: question})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "model_answer", prompt)
}

// PerformanceSummary asks for a coaching summary of a completed session.
func (s *Service) PerformanceSummary(ctx context.Context, data prompts.SummaryData) (string, error) {
	prompt, err := s.prompts.Render(prompts.PerformanceSummary, data)
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "summary", prompt)
}

// FollowUp asks for one follow-up question that digs into answer, in the tone of personality.
func (s *Service) FollowUp(ctx context.Context, question, answer string, personality model.Personality) (string, error) {
	prompt, err := s.prompts.BuildFollowUpPrompt(prompts.FollowUpData{
		Question:    question,
		Answer:      answer,
		Personality: string(personality),
	})
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "follow_up", prompt)
}

// StudyPlan asks for a two-week study plan built from a skill profile.
func (s *Service) StudyPlan(ctx context.Context, data prompts.StudyPlanData) (string, error) {
	prompt, err := s.prompts.Render(prompts.StudyPlan, data)
	if err != nil {
		return "", err
	}
	return s.complete(ctx, "study_plan", prompt)
}

func (s *Service) complete(ctx context.Context, op, prompt string) (string, error) {
	start := time.Now()
	raw, err := s.client.Complete(ctx, prompt)
	s.metrics.ObserveExternal(op, start, err)
	if err != nil {
		s.logger.Warn("LLM call failed", "operation", op, "elapsed", time.Since(start), "error", err)
		return "", fmt.Errorf("LLM %s: %w", op, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", &ProviderError{Provider: s.client.Provider(), Code: ErrCodeInvalidInput, Message: "empty response"}
	}
	s.logger.Debug("LLM response", "operation", op, "elapsed", time.Since(start), "raw", raw)
	return raw, nil
}
