package model

import "time"

// SessionsExport is the top-level JSON structure for session export.
type SessionsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Owner      string          `json:"owner,omitempty"`
	Results    []SessionResult `json:"results"`
}

// SessionResult holds one session's data for export.
type SessionResult struct {
	SessionID     int64            `json:"session_id"`
	Owner         string           `json:"owner"`
	Role          string           `json:"role"`
	Type          InterviewType    `json:"type"`
	Difficulty    Difficulty       `json:"difficulty"`
	SessionNumber int              `json:"session_number"`
	Status        SessionStatus    `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Score         int              `json:"score"`
	MaxScore      int              `json:"max_score"`
	Questions     []QuestionResult `json:"questions"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	Ordinal       int          `json:"ordinal"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Topic         string       `json:"topic"`
	Options       string       `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	ModelAnswer   string       `json:"model_answer,omitempty"`
	Answer        string       `json:"answer,omitempty"`
	Score         int          `json:"score"`
	Feedback      string       `json:"feedback,omitempty"`
}
