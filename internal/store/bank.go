package store

import (
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

// InsertBankQuestions adds pre-generated questions for (role, level) and
// returns how many were stored.
func (s *Store) InsertBankQuestions(role string, level model.Difficulty, questions []model.Question) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, q := range questions {
		topic := q.Topic
		if topic == "" {
			topic = model.DefaultTopic
		}
		_, err := tx.Exec(
			`INSERT INTO bank_questions (role, level, type, text, topic, options, correct_answer, explanation, model_answer, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			role, level, q.Type, q.Text, topic, q.Options, q.CorrectAnswer, q.Explanation, q.ModelAnswer, now,
		)
		if err != nil {
			return 0, err
		}
	}
	return len(questions), tx.Commit()
}

// CountBank returns the number of banked questions for (role, level) across types.
func (s *Store) CountBank(role string, level model.Difficulty) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bank_questions WHERE role = ? COLLATE NOCASE AND level = ?`, role, level,
	).Scan(&count)
	return count, err
}

// BankQuestions returns up to limit random banked questions of one type for (role, level).
func (s *Store) BankQuestions(role string, level model.Difficulty, kind model.QuestionType, limit int) ([]model.BankQuestion, error) {
	rows, err := s.db.Query(
		`SELECT id, role, level, type, text, topic, options, correct_answer, explanation, model_answer, created_at
		 FROM bank_questions WHERE role = ? COLLATE NOCASE AND level = ? AND type = ?
		 ORDER BY RANDOM() LIMIT ?`,
		role, level, kind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BankQuestion
	for rows.Next() {
		var b model.BankQuestion
		if err := rows.Scan(&b.ID, &b.Role, &b.Level, &b.Type, &b.Text, &b.Topic, &b.Options,
			&b.CorrectAnswer, &b.Explanation, &b.ModelAnswer, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
