package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/interviewer/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		role TEXT NOT NULL,
		type TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		question_count INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'STARTED',
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner_role ON sessions(owner, role);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		ordinal INTEGER NOT NULL,
		type TEXT NOT NULL,
		text TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT 'General',
		options TEXT NOT NULL DEFAULT '',
		correct_answer TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		model_answer TEXT NOT NULL DEFAULT '',
		UNIQUE(session_id, ordinal),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		feedback TEXT,
		submitted_at DATETIME NOT NULL,
		UNIQUE(session_id, question_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS skill_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		role TEXT NOT NULL,
		avg_score REAL NOT NULL DEFAULT 0,
		recent_trend REAL NOT NULL DEFAULT 0,
		confidence_score REAL NOT NULL DEFAULT 0,
		confidence_level TEXT NOT NULL DEFAULT 'LOW',
		weak_topics TEXT NOT NULL DEFAULT '',
		strong_topics TEXT NOT NULL DEFAULT '',
		total_sessions INTEGER NOT NULL DEFAULT 0,
		total_completed INTEGER NOT NULL DEFAULT 0,
		last_updated DATETIME NOT NULL,
		UNIQUE(owner, role)
	);

	CREATE TABLE IF NOT EXISTS bank_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		level TEXT NOT NULL,
		type TEXT NOT NULL,
		text TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT 'General',
		options TEXT NOT NULL DEFAULT '',
		correct_answer TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		model_answer TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bank_role_level ON bank_questions(role, level, type);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sessionColumns = `id, owner, role, type, difficulty, question_count, total_questions, score, status, created_at, completed_at`

func scanSession(r rowScanner) (model.Session, error) {
	var sess model.Session
	err := r.Scan(&sess.ID, &sess.Owner, &sess.Role, &sess.Type, &sess.Difficulty,
		&sess.QuestionCount, &sess.TotalQuestions, &sess.Score, &sess.Status,
		&sess.CreatedAt, &sess.CompletedAt)
	return sess, err
}

func (s *Store) querySessions(query string, args ...any) ([]model.Session, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CreateSession stores a new session at STARTED and returns its ID.
func (s *Store) CreateSession(sess model.Session) (int64, error) {
	created := sess.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO sessions (owner, role, type, difficulty, question_count, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.Owner, sess.Role, sess.Type, sess.Difficulty, sess.QuestionCount, model.StatusStarted, created,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSession returns a session by ID, or an error matching model.ErrNotFound.
func (s *Store) GetSession(id int64) (model.Session, error) {
	sess, err := scanSession(s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sess, model.NotFoundf("session %d", id)
	}
	return sess, err
}

// MaterializeQuestions inserts the session's questions numbered 1..n,
// records the count and moves the session to IN_PROGRESS in one
// transaction. Readers never see a partial question set.
func (s *Store) MaterializeQuestions(sessionID int64, questions []model.Question) ([]model.Question, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE sessions SET total_questions = ?, status = ? WHERE id = ? AND status = ?`,
		len(questions), model.StatusInProgress, sessionID, model.StatusStarted,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, s.transitionError(tx, sessionID, model.StatusInProgress)
	}

	saved := make([]model.Question, len(questions))
	for i, q := range questions {
		q.SessionID = sessionID
		q.Ordinal = i + 1
		if q.Topic == "" {
			q.Topic = model.DefaultTopic
		}
		res, err := tx.Exec(
			`INSERT INTO questions (session_id, ordinal, type, text, topic, options, correct_answer, explanation, model_answer)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.SessionID, q.Ordinal, q.Type, q.Text, q.Topic, q.Options, q.CorrectAnswer, q.Explanation, q.ModelAnswer,
		)
		if err != nil {
			return nil, fmt.Errorf("insert question %d: %w", q.Ordinal, err)
		}
		if q.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		saved[i] = q
	}
	return saved, tx.Commit()
}

// CompleteSession stores the evaluated answers, records the final score and
// moves the session from IN_PROGRESS to COMPLETED, all in one transaction.
// Nothing is written when the session is not IN_PROGRESS.
func (s *Store) CompleteSession(id int64, score int, answers []model.Answer, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE sessions SET score = ?, status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		score, model.StatusCompleted, at.UTC(), id, model.StatusInProgress,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return s.transitionError(tx, id, model.StatusCompleted)
	}
	if err := writeAnswerScores(tx, id, answers); err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	return tx.Commit()
}

// transitionError explains why a guarded status update touched no rows.
func (s *Store) transitionError(tx *sql.Tx, id int64, to model.SessionStatus) error {
	var status model.SessionStatus
	err := tx.QueryRow(`SELECT status FROM sessions WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundf("session %d", id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("session %d %s -> %s: %w", id, status, to, model.ErrInvalidTransition)
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.Session, error) {
	return s.querySessions(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC, id DESC`)
}

// ListSessionsByOwner returns the owner's sessions across roles, newest first.
func (s *Store) ListSessionsByOwner(owner string) ([]model.Session, error) {
	return s.querySessions(
		`SELECT `+sessionColumns+` FROM sessions WHERE owner = ? ORDER BY created_at DESC, id DESC`, owner)
}

// ListSessionsByOwnerRole returns the owner's sessions for one role, oldest first.
func (s *Store) ListSessionsByOwnerRole(owner, role string) ([]model.Session, error) {
	return s.querySessions(
		`SELECT `+sessionColumns+` FROM sessions WHERE owner = ? AND role = ? ORDER BY created_at, id`, owner, role)
}

// SessionCount returns the number of sessions in the database.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}
