// Package scoring scores submitted answers when a session completes.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/interviewer/internal/extract"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
)

// MaxSubjectiveScore is the upper bound of an evaluator-assigned score.
const MaxSubjectiveScore = 10

// ScoreMCQ returns 1 when submitted matches correct and 0 otherwise.
// Both sides are trimmed and upper-cased. A single-letter correct answer also
// accepts submissions that echo the option, such as "A) goroutine" or "A. goroutine".
func ScoreMCQ(correct, submitted string) int {
	c := strings.ToUpper(strings.TrimSpace(correct))
	s := strings.ToUpper(strings.TrimSpace(submitted))
	if c == "" {
		return 0
	}
	if r := []rune(c); len(r) == 1 && unicode.IsLetter(r[0]) {
		if s == c || strings.HasPrefix(s, c+")") || strings.HasPrefix(s, c+".") {
			return 1
		}
		return 0
	}
	if s == c {
		return 1
	}
	return 0
}

var scorePattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9_])"?score"?\s*[:=]\s*"?(\d+)`)

// ParseScore finds the integer after the first "score" key in an evaluator
// response and clamps it to [0, MaxSubjectiveScore]. Anything after the
// digits is ignored. The boolean is false when no number follows the key.
func ParseScore(text string) (int, bool) {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	digits := strings.TrimLeft(m[1], "0")
	if len(digits) > 3 {
		return MaxSubjectiveScore, true
	}
	if digits == "" {
		return 0, true
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return min(max(n, 0), MaxSubjectiveScore), true
}

// SubjectiveEvaluator grades an open-ended answer and returns the raw
// response text, which is expected to contain a "score" field.
type SubjectiveEvaluator interface {
	EvaluateSubjective(ctx context.Context, question, answer string) (string, error)
}

// Store is the persistence the evaluator reads from.
type Store interface {
	QuestionsForSession(sessionID int64) ([]model.Question, error)
	AnswersForSession(sessionID int64) ([]model.Answer, error)
}

// Evaluator scores every answer of a session in one batch.
type Evaluator struct {
	store       Store
	eval        SubjectiveEvaluator
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
	timeout     time.Duration
}

// NewEvaluator creates an evaluator. m may be nil.
func NewEvaluator(store Store, eval SubjectiveEvaluator, logger *slog.Logger, m *metrics.Metrics, cfg model.Config) *Evaluator {
	concurrency := cfg.EvalConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Evaluator{
		store:       store,
		eval:        eval,
		logger:      logger.With("component", "evaluator"),
		metrics:     m,
		concurrency: concurrency,
		timeout:     cfg.EvaluationTimeout,
	}
}

// EvaluateAll scores every answer stored for the session without saving
// anything; the caller commits the scores together with the completion.
// Per-answer failures score 0 and never stop the batch. A cancelled ctx is
// returned as an error so a lost caller never commits zeroed scores.
func (e *Evaluator) EvaluateAll(ctx context.Context, sessionID int64) ([]model.Answer, error) {
	answers, err := e.store.AnswersForSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	questions, err := e.store.QuestionsForSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	scored := make([]model.Answer, len(answers))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, a := range answers {
		q, ok := byID[a.QuestionID]
		g.Go(func() error {
			scored[i] = e.score(ctx, a, q, ok)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate session %d: %w", sessionID, err)
	}
	return scored, nil
}

func (e *Evaluator) score(ctx context.Context, a model.Answer, q model.Question, found bool) model.Answer {
	a.Score = 0
	a.Feedback = nil
	log := e.logger.With("session_id", a.SessionID, "question_id", a.QuestionID)

	if !found {
		log.Warn("answer references a question outside its session")
		e.metrics.Evaluation("unknown", "orphan")
		return a
	}

	if q.Type == model.QuestionMCQ {
		a.Score = ScoreMCQ(q.CorrectAnswer, a.Text)
		e.metrics.Evaluation(string(q.Type), "ok")
		return a
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	resp, err := e.eval.EvaluateSubjective(callCtx, q.Text, a.Text)
	if err != nil {
		log.Error("subjective evaluation failed", "error", err)
		e.metrics.Evaluation(string(q.Type), "error")
		return a
	}
	n, ok := ParseScore(resp)
	if !ok {
		log.Warn("no score in evaluator response", "response_len", len(resp))
		e.metrics.Evaluation(string(q.Type), "unparsed")
		return a
	}
	a.Score = n
	feedback, ok := extract.Field(resp, "feedback")
	if feedback = strings.TrimSpace(feedback); !ok || feedback == "" {
		feedback = strings.TrimSpace(resp)
	}
	a.Feedback = &feedback
	e.metrics.Evaluation(string(q.Type), "ok")
	return a
}
