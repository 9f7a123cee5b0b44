// Package interview runs the session lifecycle: question materialisation on
// create, answer submission, evaluation on completion, and on-demand model
// answers, follow-ups, summaries and study plans.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pavelanni/interviewer/internal/analytics"
	"github.com/pavelanni/interviewer/internal/extract"
	"github.com/pavelanni/interviewer/internal/fallback"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
)

// Store is the persistence the lifecycle needs.
type Store interface {
	CreateSession(sess model.Session) (int64, error)
	GetSession(id int64) (model.Session, error)
	MaterializeQuestions(sessionID int64, questions []model.Question) ([]model.Question, error)
	CompleteSession(id int64, score int, answers []model.Answer, at time.Time) error
	GetQuestion(id int64) (model.Question, error)
	QuestionsForSession(sessionID int64) ([]model.Question, error)
	AnswersForSession(sessionID int64) ([]model.Answer, error)
	UpsertAnswer(a model.Answer) (model.Answer, error)
	UpdateModelAnswer(questionID int64, text string) error
	BankQuestions(role string, level model.Difficulty, kind model.QuestionType, limit int) ([]model.BankQuestion, error)
}

// Generator produces raw text for questions, model answers and summaries.
type Generator interface {
	GenerateQuestions(ctx context.Context, req llm.GenerateRequest) (string, error)
	GenerateModelAnswer(ctx context.Context, question string) (string, error)
	PerformanceSummary(ctx context.Context, data prompts.SummaryData) (string, error)
	FollowUp(ctx context.Context, question, answer string, personality model.Personality) (string, error)
	StudyPlan(ctx context.Context, data prompts.StudyPlanData) (string, error)
}

// Evaluator scores every answer of a session without saving the scores.
type Evaluator interface {
	EvaluateAll(ctx context.Context, sessionID int64) ([]model.Answer, error)
}

// Service implements the session operations.
type Service struct {
	store     Store
	gen       Generator
	evaluator Evaluator
	analytics *analytics.Engine
	logger    *slog.Logger
	metrics   *metrics.Metrics
	config    model.Config
}

// New creates a Service. m may be nil.
func New(store Store, gen Generator, evaluator Evaluator, engine *analytics.Engine,
	logger *slog.Logger, m *metrics.Metrics, cfg model.Config) *Service {
	return &Service{
		store:     store,
		gen:       gen,
		evaluator: evaluator,
		analytics: engine,
		logger:    logger.With("component", "interview"),
		metrics:   m,
		config:    cfg,
	}
}

// CreateRequest holds the caller's choices for a new session. Empty
// Difficulty asks for a recommendation; zero QuestionCount uses the default.
type CreateRequest struct {
	Owner         string `json:"owner"`
	Role          string `json:"role"`
	Type          string `json:"type"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
	Personality   string `json:"personality"`
}

// Create stores a new session and materialises its questions. Generation
// failures fall back to banked or static questions. If nothing can be
// stored the session is returned at STARTED with no questions.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.Session, error) {
	owner := strings.TrimSpace(req.Owner)
	role := strings.TrimSpace(req.Role)
	if owner == "" {
		return model.Session{}, model.Validationf("owner is required")
	}
	if role == "" {
		return model.Session{}, model.Validationf("role is required")
	}

	count := req.QuestionCount
	if count == 0 {
		count = s.config.DefaultQuestionCount
	}
	if count < 1 || count > s.config.MaxQuestionCount {
		return model.Session{}, model.Validationf("question count must be between 1 and %d", s.config.MaxQuestionCount)
	}

	kind, ok := model.ParseInterviewType(req.Type)
	if !ok {
		if strings.TrimSpace(req.Type) != "" {
			s.logger.Warn("unknown interview type, using subjective", "type", req.Type, "role", role)
		}
		kind = model.TypeSubjective
	}

	level, err := s.resolveDifficulty(owner, role, req.Difficulty)
	if err != nil {
		return model.Session{}, err
	}
	weakTopic := s.focusTopic(owner, role)
	persona, ok := model.ParsePersonality(req.Personality)
	if !ok {
		s.logger.Warn("unknown interviewer personality, using none", "personality", req.Personality, "role", role)
		persona = ""
	}

	id, err := s.store.CreateSession(model.Session{
		Owner:         owner,
		Role:          role,
		Type:          kind,
		Difficulty:    level,
		QuestionCount: count,
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.metrics.SessionTransition(string(model.StatusStarted))
	log := s.logger.With("session_id", id, "role", role)

	var questions []model.Question
	sources := make(map[string]int)
	for _, qt := range questionTypes(kind) {
		qs, source := s.questionsFor(ctx, log, llm.GenerateRequest{
			Role:        role,
			Level:       level,
			Count:       count,
			WeakTopic:   weakTopic,
			Kind:        qt,
			Personality: persona,
		})
		questions = append(questions, qs...)
		sources[source] += len(qs)
	}

	if _, err := s.store.MaterializeQuestions(id, questions); err != nil {
		log.Error("failed to store questions, session left at STARTED", "error", err)
	} else {
		s.metrics.SessionTransition(string(model.StatusInProgress))
		for source, n := range sources {
			s.metrics.QuestionsGenerated(source, n)
		}
		log.Info("session created", "type", kind, "difficulty", level, "questions", len(questions), "weak_topic", weakTopic)
	}
	return s.store.GetSession(id)
}

func questionTypes(kind model.InterviewType) []model.QuestionType {
	switch kind {
	case model.TypeMCQ:
		return []model.QuestionType{model.QuestionMCQ}
	case model.TypeFull:
		return []model.QuestionType{model.QuestionSubjective, model.QuestionMCQ}
	default:
		return []model.QuestionType{model.QuestionSubjective}
	}
}

func (s *Service) resolveDifficulty(owner, role, requested string) (model.Difficulty, error) {
	if strings.TrimSpace(requested) != "" {
		d, ok := model.ParseDifficulty(requested)
		if !ok {
			return "", model.Validationf("difficulty must be easy, medium or hard, got %q", requested)
		}
		return d, nil
	}
	d, err := s.analytics.RecommendDifficulty(owner, role)
	if err != nil {
		s.logger.Warn("difficulty recommendation failed, using medium", "owner", owner, "role", role, "error", err)
		return model.DifficultyMedium, nil
	}
	return d, nil
}

// focusTopic returns the primary weak topic of the owner's latest completed
// session for role, or "".
func (s *Service) focusTopic(owner, role string) string {
	last, err := s.analytics.LatestCompleted(owner, role)
	if err != nil {
		s.logger.Warn("weak topic lookup failed", "owner", owner, "role", role, "error", err)
		return ""
	}
	if last == nil {
		return ""
	}
	topic, _, err := s.analytics.PrimaryWeakTopic(last.ID)
	if err != nil {
		s.logger.Warn("weak topic lookup failed", "session_id", last.ID, "error", err)
		return ""
	}
	return topic
}

// questionsFor generates and extracts one batch, falling back when the
// generator fails or yields nothing.
func (s *Service) questionsFor(ctx context.Context, log *slog.Logger, req llm.GenerateRequest) ([]model.Question, string) {
	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()

	raw, err := s.gen.GenerateQuestions(genCtx, req)
	if err != nil {
		log.Warn("question generation failed, using fallback", "kind", req.Kind, "error", err)
		return s.fallbackQuestions(log, req)
	}
	res := extract.Extract(raw, req.Kind)
	s.metrics.Extraction(res.Tier)
	if len(res.Questions) == 0 {
		log.Warn("no questions extracted, using fallback", "kind", req.Kind, "tier", res.Tier)
		return s.fallbackQuestions(log, req)
	}
	if len(res.Questions) > req.Count {
		res.Questions = res.Questions[:req.Count]
	}
	log.Debug("questions extracted", "kind", req.Kind, "tier", res.Tier, "count", len(res.Questions))
	return res.Questions, metrics.SourceGenerator
}

// fallbackQuestions prefers pre-generated bank questions when the bank holds
// enough of them, then the static set.
func (s *Service) fallbackQuestions(log *slog.Logger, req llm.GenerateRequest) ([]model.Question, string) {
	banked, err := s.store.BankQuestions(req.Role, req.Level, req.Kind, req.Count)
	if err != nil {
		log.Warn("question bank unavailable", "error", err)
	} else if len(banked) >= req.Count {
		qs := make([]model.Question, len(banked))
		for i, b := range banked {
			qs[i] = b.AsQuestion()
		}
		return qs, metrics.SourceBank
	}
	return fallback.Questions(req.Role, req.Kind), metrics.SourceStatic
}

// SubmitAnswer stores or replaces the answer to one question. Scoring is
// deferred to Complete.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, questionID int64, text string) (model.Answer, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return model.Answer{}, err
	}
	if sess.Status != model.StatusInProgress {
		return model.Answer{}, model.Validationf("session %d is %s, answers are accepted only while IN_PROGRESS", sessionID, sess.Status)
	}
	if strings.TrimSpace(text) == "" {
		return model.Answer{}, model.Validationf("answer text is required")
	}
	if _, err := s.sessionQuestion(sessionID, questionID); err != nil {
		return model.Answer{}, err
	}
	a, err := s.store.UpsertAnswer(model.Answer{SessionID: sessionID, QuestionID: questionID, Text: text})
	if err != nil {
		return model.Answer{}, fmt.Errorf("save answer: %w", err)
	}
	s.logger.Debug("answer submitted", "session_id", sessionID, "question_id", questionID)
	return a, nil
}

// sessionQuestion loads a question and checks it belongs to the session.
func (s *Service) sessionQuestion(sessionID, questionID int64) (model.Question, error) {
	q, err := s.store.GetQuestion(questionID)
	if err != nil {
		return model.Question{}, err
	}
	if q.SessionID != sessionID {
		return model.Question{}, model.NotFoundf("question %d in session %d", questionID, sessionID)
	}
	return q, nil
}

// Complete scores all answers, then stores the scores, the total and the
// COMPLETED status in one write, then refreshes the owner's skill profile.
// A cancelled ctx or failed write leaves the session IN_PROGRESS with its
// answers unscored.
func (s *Service) Complete(ctx context.Context, sessionID int64) (model.Session, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if !sess.Status.CanTransitionTo(model.StatusCompleted) {
		return model.Session{}, fmt.Errorf("session %d %s -> %s: %w",
			sessionID, sess.Status, model.StatusCompleted, model.ErrInvalidTransition)
	}

	answers, err := s.evaluator.EvaluateAll(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("evaluate answers: %w", err)
	}
	score := 0
	for _, a := range answers {
		score += a.Score
	}
	if err := s.store.CompleteSession(sessionID, score, answers, time.Now().UTC()); err != nil {
		return model.Session{}, fmt.Errorf("complete session: %w", err)
	}
	s.metrics.SessionTransition(string(model.StatusCompleted))
	s.logger.Info("session completed", "session_id", sessionID, "score", score, "answers", len(answers))

	if _, err := s.analytics.UpdateSkillProfile(sess.Owner, sess.Role); err != nil {
		s.logger.Error("skill profile update failed", "session_id", sessionID, "owner", sess.Owner, "role", sess.Role, "error", err)
	}
	return s.store.GetSession(sessionID)
}

// GenerateModelAnswer asks the generator for a fresh reference answer and
// stores it on the question.
func (s *Service) GenerateModelAnswer(ctx context.Context, sessionID, questionID int64) (model.Question, error) {
	if _, err := s.store.GetSession(sessionID); err != nil {
		return model.Question{}, err
	}
	q, err := s.sessionQuestion(sessionID, questionID)
	if err != nil {
		return model.Question{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	raw, err := s.gen.GenerateModelAnswer(genCtx, q.Text)
	if err != nil {
		return model.Question{}, err
	}
	answer, ok := extract.Field(raw, "modelAnswer")
	if !ok || strings.TrimSpace(answer) == "" {
		answer = strings.TrimSpace(raw)
	}
	if err := s.store.UpdateModelAnswer(questionID, answer); err != nil {
		return model.Question{}, fmt.Errorf("save model answer: %w", err)
	}
	q.ModelAnswer = answer
	return q, nil
}

// Summary asks the generator for a coaching summary of a completed session.
func (s *Service) Summary(ctx context.Context, sessionID int64) (string, error) {
	sess, err := s.store.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	if sess.Status != model.StatusCompleted {
		return "", model.Validationf("session %d is %s, summaries need a completed session", sessionID, sess.Status)
	}
	questions, err := s.store.QuestionsForSession(sessionID)
	if err != nil {
		return "", fmt.Errorf("load questions: %w", err)
	}
	topics, err := s.analytics.TopicScores(sessionID)
	if err != nil {
		return "", err
	}
	var strong []string
	for topic, avg := range topics {
		if avg >= analytics.StrongTopicThreshold {
			strong = append(strong, topic)
		}
	}
	sort.Strings(strong)

	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	raw, err := s.gen.PerformanceSummary(genCtx, prompts.SummaryData{
		Role:         sess.Role,
		Score:        sess.Score,
		MaxScore:     analytics.MaxPossible(questions),
		Percent:      int(math.Round(analytics.SessionPercent(sess, questions))),
		WeakTopics:   analytics.Weak(topics),
		StrongTopics: strong,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// shortAnswerRunes is the length below which the static follow-up asks the
// candidate to elaborate.
const shortAnswerRunes = 50

// FollowUp asks the generator for one question that digs into the candidate's answer
// to questionID. A blank personality is FRIENDLY. When the generator fails the
// follow-up comes from a static pair keyed on answer length.
func (s *Service) FollowUp(ctx context.Context, sessionID, questionID int64, personality string) (string, error) {
	if _, err := s.store.GetSession(sessionID); err != nil {
		return "", err
	}
	persona, ok := model.ParsePersonality(personality)
	if !ok {
		return "", model.Validationf("unknown personality %q (want STRICT, FRIENDLY or TECHNICAL)", personality)
	}
	if persona == "" {
		persona = model.PersonalityFriendly
	}
	q, err := s.sessionQuestion(sessionID, questionID)
	if err != nil {
		return "", err
	}
	answers, err := s.store.AnswersForSession(sessionID)
	if err != nil {
		return "", fmt.Errorf("load answers: %w", err)
	}
	var answer string
	for _, a := range answers {
		if a.QuestionID == questionID {
			answer = a.Text
		}
	}
	if strings.TrimSpace(answer) == "" {
		return "", model.Validationf("question %d has no answer to follow up on", questionID)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	raw, err := s.gen.FollowUp(genCtx, q.Text, answer, persona)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("follow-up generation failed, using static follow-up",
			"session_id", sessionID, "question_id", questionID, "error", err)
		return staticFollowUp(answer), nil
	}
	if followUp := strings.TrimSpace(raw); followUp != "" {
		return followUp, nil
	}
	return staticFollowUp(answer), nil
}

func staticFollowUp(answer string) string {
	if utf8.RuneCountInString(strings.TrimSpace(answer)) < shortAnswerRunes {
		return "Could you elaborate more on your answer? Please provide specific details or examples."
	}
	return "That's interesting. Can you explain the technical approach you would use and any potential challenges?"
}

// StudyPlan asks the generator for a two-week plan built from the owner's
// stored skill profile for role.
func (s *Service) StudyPlan(ctx context.Context, owner, role string) (string, error) {
	p, err := s.analytics.SkillProfile(owner, role)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", model.NotFoundf("skill profile for %s as %s", owner, role)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	raw, err := s.gen.StudyPlan(genCtx, prompts.StudyPlanData{
		Role:         p.Role,
		AvgScore:     p.AvgScore,
		Confidence:   string(p.ConfidenceLevel),
		WeakTopics:   splitTopics(p.WeakTopics),
		StrongTopics: splitTopics(p.StrongTopics),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// splitTopics reverses the comma-joined topic lists stored on profiles.
func splitTopics(joined string) []string {
	var topics []string
	for _, t := range strings.Split(joined, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// Session returns a session by ID.
func (s *Service) Session(id int64) (model.Session, error) {
	return s.store.GetSession(id)
}

// Questions returns the session's questions in order.
func (s *Service) Questions(sessionID int64) ([]model.Question, error) {
	if _, err := s.store.GetSession(sessionID); err != nil {
		return nil, err
	}
	return s.store.QuestionsForSession(sessionID)
}

// Answers returns the session's submitted answers.
func (s *Service) Answers(sessionID int64) ([]model.Answer, error) {
	if _, err := s.store.GetSession(sessionID); err != nil {
		return nil, err
	}
	return s.store.AnswersForSession(sessionID)
}
