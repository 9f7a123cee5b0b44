package store

import (
	"fmt"
	"slices"

	"github.com/pavelanni/interviewer/internal/model"
)

// ExportSessions builds export-ready results for the owner's sessions, or
// for every session when owner is empty. Sessions are listed oldest first
// and numbered per owner.
func (s *Store) ExportSessions(owner string) ([]model.SessionResult, error) {
	var (
		sessions []model.Session
		err      error
	)
	if owner == "" {
		sessions, err = s.ListSessions()
	} else {
		sessions, err = s.ListSessionsByOwner(owner)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	slices.Reverse(sessions)

	ownerSessionCount := make(map[string]int)

	results := make([]model.SessionResult, 0, len(sessions))
	for _, sess := range sessions {
		ownerSessionCount[sess.Owner]++

		questions, err := s.QuestionsForSession(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("questions for session %d: %w", sess.ID, err)
		}
		answers, err := s.AnswersForSession(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("answers for session %d: %w", sess.ID, err)
		}
		byQuestion := make(map[int64]model.Answer, len(answers))
		for _, a := range answers {
			byQuestion[a.QuestionID] = a
		}

		maxScore := 0
		qrs := make([]model.QuestionResult, 0, len(questions))
		for _, q := range questions {
			maxScore += q.Type.MaxPoints()
			qr := model.QuestionResult{
				Ordinal:       q.Ordinal,
				Type:          q.Type,
				Text:          q.Text,
				Topic:         q.Topic,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				ModelAnswer:   q.ModelAnswer,
			}
			if a, ok := byQuestion[q.ID]; ok {
				qr.Answer = a.Text
				qr.Score = a.Score
				if a.Feedback != nil {
					qr.Feedback = *a.Feedback
				}
			}
			qrs = append(qrs, qr)
		}

		results = append(results, model.SessionResult{
			SessionID:     sess.ID,
			Owner:         sess.Owner,
			Role:          sess.Role,
			Type:          sess.Type,
			Difficulty:    sess.Difficulty,
			SessionNumber: ownerSessionCount[sess.Owner],
			Status:        sess.Status,
			CreatedAt:     sess.CreatedAt,
			CompletedAt:   sess.CompletedAt,
			Score:         sess.Score,
			MaxScore:      maxScore,
			Questions:     qrs,
		})
	}

	return results, nil
}
