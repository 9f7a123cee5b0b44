package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

const questionColumns = `id, session_id, ordinal, type, text, topic, options, correct_answer, explanation, model_answer`

func scanQuestion(r rowScanner) (model.Question, error) {
	var q model.Question
	err := r.Scan(&q.ID, &q.SessionID, &q.Ordinal, &q.Type, &q.Text, &q.Topic,
		&q.Options, &q.CorrectAnswer, &q.Explanation, &q.ModelAnswer)
	return q, err
}

// GetQuestion returns a question by ID, or an error matching model.ErrNotFound.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	q, err := scanQuestion(s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return q, model.NotFoundf("question %d", id)
	}
	return q, err
}

// QuestionsForSession returns the session's questions by ordinal.
func (s *Store) QuestionsForSession(sessionID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT `+questionColumns+` FROM questions WHERE session_id = ? ORDER BY ordinal`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpdateModelAnswer overwrites a question's model answer.
func (s *Store) UpdateModelAnswer(questionID int64, text string) error {
	res, err := s.db.Exec(`UPDATE questions SET model_answer = ? WHERE id = ?`, text, questionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return model.NotFoundf("question %d", questionID)
	}
	return nil
}

const answerColumns = `id, session_id, question_id, text, score, feedback, submitted_at`

func scanAnswer(r rowScanner) (model.Answer, error) {
	var a model.Answer
	var feedback sql.NullString
	err := r.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.Text, &a.Score, &feedback, &a.SubmittedAt)
	if feedback.Valid {
		a.Feedback = &feedback.String
	}
	return a, err
}

// UpsertAnswer stores the answer for its (session, question) pair. A
// resubmission replaces the text and resets score and feedback.
func (s *Store) UpsertAnswer(a model.Answer) (model.Answer, error) {
	submitted := a.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO answers (session_id, question_id, text, score, feedback, submitted_at)
		 VALUES (?, ?, ?, 0, NULL, ?)
		 ON CONFLICT(session_id, question_id) DO UPDATE SET
		   text = excluded.text, score = 0, feedback = NULL, submitted_at = excluded.submitted_at`,
		a.SessionID, a.QuestionID, a.Text, submitted,
	)
	if err != nil {
		return model.Answer{}, err
	}
	return scanAnswer(s.db.QueryRow(
		`SELECT `+answerColumns+` FROM answers WHERE session_id = ? AND question_id = ?`, a.SessionID, a.QuestionID))
}

// AnswersForSession returns the session's answers ordered by first submission.
func (s *Store) AnswersForSession(sessionID int64) ([]model.Answer, error) {
	rows, err := s.db.Query(`SELECT `+answerColumns+` FROM answers WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// writeAnswerScores writes score and feedback for the session's answers inside tx.
func writeAnswerScores(tx *sql.Tx, sessionID int64, answers []model.Answer) error {
	stmt, err := tx.Prepare(`UPDATE answers SET score = ?, feedback = ? WHERE id = ? AND session_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range answers {
		var feedback sql.NullString
		if a.Feedback != nil {
			feedback = sql.NullString{String: *a.Feedback, Valid: true}
		}
		if _, err := stmt.Exec(a.Score, feedback, a.ID, sessionID); err != nil {
			return err
		}
	}
	return nil
}
