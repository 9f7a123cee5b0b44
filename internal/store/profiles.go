package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

const profileColumns = `id, owner, role, avg_score, recent_trend, confidence_score, confidence_level,
	weak_topics, strong_topics, total_sessions, total_completed, last_updated`

func scanProfile(r rowScanner) (model.SkillProfile, error) {
	var p model.SkillProfile
	err := r.Scan(&p.ID, &p.Owner, &p.Role, &p.AvgScore, &p.RecentTrend, &p.ConfidenceScore,
		&p.ConfidenceLevel, &p.WeakTopics, &p.StrongTopics, &p.TotalSessions, &p.TotalCompleted, &p.LastUpdated)
	return p, err
}

// GetSkillProfile returns the profile for (owner, role).
// Returns nil and nil error if none has been computed yet.
func (s *Store) GetSkillProfile(owner, role string) (*model.SkillProfile, error) {
	p, err := scanProfile(s.db.QueryRow(
		`SELECT `+profileColumns+` FROM skill_profiles WHERE owner = ? AND role = ?`, owner, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertSkillProfile creates or fully overwrites the profile for (p.Owner, p.Role).
func (s *Store) UpsertSkillProfile(p model.SkillProfile) (model.SkillProfile, error) {
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO skill_profiles (owner, role, avg_score, recent_trend, confidence_score, confidence_level,
		   weak_topics, strong_topics, total_sessions, total_completed, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner, role) DO UPDATE SET
		   avg_score = excluded.avg_score,
		   recent_trend = excluded.recent_trend,
		   confidence_score = excluded.confidence_score,
		   confidence_level = excluded.confidence_level,
		   weak_topics = excluded.weak_topics,
		   strong_topics = excluded.strong_topics,
		   total_sessions = excluded.total_sessions,
		   total_completed = excluded.total_completed,
		   last_updated = excluded.last_updated`,
		p.Owner, p.Role, p.AvgScore, p.RecentTrend, p.ConfidenceScore, p.ConfidenceLevel,
		p.WeakTopics, p.StrongTopics, p.TotalSessions, p.TotalCompleted, p.LastUpdated,
	)
	if err != nil {
		return model.SkillProfile{}, err
	}
	return scanProfile(s.db.QueryRow(
		`SELECT `+profileColumns+` FROM skill_profiles WHERE owner = ? AND role = ?`, p.Owner, p.Role))
}

// ListSkillProfiles returns all of the owner's profiles ordered by role.
func (s *Store) ListSkillProfiles(owner string) ([]model.SkillProfile, error) {
	rows, err := s.db.Query(`SELECT `+profileColumns+` FROM skill_profiles WHERE owner = ? ORDER BY role`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []model.SkillProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
