package model

import (
	"strings"
	"time"
)

// SessionStatus represents the status of an interview session.
type SessionStatus string

const (
	StatusStarted    SessionStatus = "STARTED"
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusCompleted  SessionStatus = "COMPLETED"
)

// CanTransitionTo reports whether next is the single legal successor of s.
// Statuses only move forward one step: STARTED -> IN_PROGRESS -> COMPLETED.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusStarted:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	default:
		return false
	}
}

// InterviewType selects which question kinds a session generates.
type InterviewType string

const (
	TypeSubjective InterviewType = "subjective"
	TypeMCQ        InterviewType = "mcq"
	TypeFull       InterviewType = "full"
)

// ParseInterviewType normalizes t. The boolean is false for unknown types.
func ParseInterviewType(t string) (InterviewType, bool) {
	switch it := InterviewType(strings.ToLower(strings.TrimSpace(t))); it {
	case TypeSubjective, TypeMCQ, TypeFull:
		return it, true
	default:
		return it, false
	}
}

// QuestionType is the kind of a single question.
type QuestionType string

const (
	QuestionSubjective QuestionType = "subjective"
	QuestionMCQ        QuestionType = "mcq"
)

// MaxPoints returns the highest score an answer to a question of this type can get.
func (t QuestionType) MaxPoints() int {
	if strings.EqualFold(string(t), string(QuestionMCQ)) {
		return 1
	}
	return 10
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes d. The boolean is false for unknown levels.
func ParseDifficulty(d string) (Difficulty, bool) {
	switch dd := Difficulty(strings.ToLower(strings.TrimSpace(d))); dd {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return dd, true
	default:
		return dd, false
	}
}

// Personality sets the interviewer's tone in generated prompts. The empty
// value means no persona.
type Personality string

const (
	PersonalityStrict    Personality = "STRICT"
	PersonalityFriendly  Personality = "FRIENDLY"
	PersonalityTechnical Personality = "TECHNICAL"
)

// ParsePersonality normalizes p. Blank input gives the empty Personality;
// the boolean is false for unknown values.
func ParsePersonality(p string) (Personality, bool) {
	switch pp := Personality(strings.ToUpper(strings.TrimSpace(p))); pp {
	case "", PersonalityStrict, PersonalityFriendly, PersonalityTechnical:
		return pp, true
	default:
		return pp, false
	}
}

// ConfidenceLevel buckets a skill profile's confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// DefaultTopic is used when a question source gives no topic.
const DefaultTopic = "General"

// Session represents one interview-practice attempt.
type Session struct {
	ID             int64         `json:"id"`
	Owner          string        `json:"owner"`
	Role           string        `json:"role"`
	Type           InterviewType `json:"type"`
	Difficulty     Difficulty    `json:"difficulty"`
	QuestionCount  int           `json:"question_count"`
	TotalQuestions int           `json:"total_questions"`
	Score          int           `json:"score"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// Question is a single generated question belonging to a session.
type Question struct {
	ID            int64        `json:"id"`
	SessionID     int64        `json:"session_id"`
	Ordinal       int          `json:"ordinal"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Topic         string       `json:"topic"`
	Options       string       `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	ModelAnswer   string       `json:"model_answer,omitempty"`
}

// TopicOrDefault returns the question topic, or DefaultTopic when blank.
func (q Question) TopicOrDefault() string {
	if strings.TrimSpace(q.Topic) == "" {
		return DefaultTopic
	}
	return q.Topic
}

// Answer is a candidate's answer to one question of a session.
// Score stays 0 until the session is completed.
type Answer struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"session_id"`
	QuestionID  int64     `json:"question_id"`
	Text        string    `json:"text"`
	Score       int       `json:"score"`
	Feedback    *string   `json:"feedback,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SkillProfile is the per-(owner, role) performance summary.
type SkillProfile struct {
	ID              int64           `json:"id"`
	Owner           string          `json:"owner"`
	Role            string          `json:"role"`
	AvgScore        float64         `json:"avg_score"`
	RecentTrend     float64         `json:"recent_trend"`
	ConfidenceScore float64         `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	WeakTopics      string          `json:"weak_topics"`
	StrongTopics    string          `json:"strong_topics"`
	TotalSessions   int             `json:"total_sessions"`
	TotalCompleted  int             `json:"total_completed"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// BankQuestion is a pre-generated question kept for fast or degraded session starts.
type BankQuestion struct {
	ID            int64        `json:"id"`
	Role          string       `json:"role"`
	Level         Difficulty   `json:"level"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Topic         string       `json:"topic"`
	Options       string       `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	ModelAnswer   string       `json:"model_answer,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AsQuestion converts a bank entry into an unsaved session question.
func (b BankQuestion) AsQuestion() Question {
	return Question{
		Type:          b.Type,
		Text:          b.Text,
		Topic:         b.Topic,
		Options:       b.Options,
		CorrectAnswer: b.CorrectAnswer,
		Explanation:   b.Explanation,
		ModelAnswer:   b.ModelAnswer,
	}
}

// LeaderboardEntry is one ranked owner.
type LeaderboardEntry struct {
	Owner         string  `json:"owner"`
	AvgScore      float64 `json:"avg_score"`
	TotalSessions int     `json:"total_sessions"`
	Role          string  `json:"role,omitempty"`
}

// SessionSummary is a compact session view used by the dashboard.
type SessionSummary struct {
	SessionID  int64         `json:"session_id"`
	Role       string        `json:"role"`
	Type       InterviewType `json:"type"`
	Difficulty Difficulty    `json:"difficulty"`
	Score      int           `json:"score"`
	Status     SessionStatus `json:"status"`
	Date       time.Time     `json:"date"`
}

// Dashboard aggregates an owner's history across roles.
type Dashboard struct {
	Owner             string             `json:"owner"`
	TotalSessions     int                `json:"total_sessions"`
	AverageScore      float64            `json:"average_score"`
	HighestScore      int                `json:"highest_score"`
	BestRole          string             `json:"best_role"`
	WeakestRole       string             `json:"weakest_role"`
	WeakAreas         []string           `json:"weak_areas"`
	RoleWiseAverage   map[string]float64 `json:"role_wise_average"`
	LastInterviewDate *time.Time         `json:"last_interview_date,omitempty"`
	RecentSessions    []SessionSummary   `json:"recent_sessions"`
}

// Config holds runtime interview parameters set via CLI flags.
type Config struct {
	DefaultQuestionCount int
	MaxQuestionCount     int
	EvalConcurrency      int
	GenerationTimeout    time.Duration
	EvaluationTimeout    time.Duration
}

// DefaultConfig returns the values used when flags are not set.
func DefaultConfig() Config {
	return Config{
		DefaultQuestionCount: 5,
		MaxQuestionCount:     20,
		EvalConcurrency:      4,
		GenerationTimeout:    60 * time.Second,
		EvaluationTimeout:    30 * time.Second,
	}
}
