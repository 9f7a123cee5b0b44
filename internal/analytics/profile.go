package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

const (
	recentWindow = 3
	topicWindow  = 5

	highConfidence   = 70.0
	mediumConfidence = 45.0
)

// Confidence blends the long-run average with the recent trend and
// classifies the result.
func Confidence(avgPercent, recentTrend float64) (float64, model.ConfidenceLevel) {
	score := math.Min(100, 0.7*avgPercent+0.3*recentTrend)
	switch {
	case score >= highConfidence:
		return score, model.ConfidenceHigh
	case score >= mediumConfidence:
		return score, model.ConfidenceMedium
	default:
		return score, model.ConfidenceLow
	}
}

// UpdateSkillProfile recomputes and overwrites the (owner, role) profile from
// the owner's completed sessions. It returns nil when there are none.
func (e *Engine) UpdateSkillProfile(owner, role string) (*model.SkillProfile, error) {
	sessions, err := e.store.ListSessionsByOwnerRole(owner, role)
	if err != nil {
		e.metrics.ProfileUpdate("error")
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var completed []model.Session
	for _, s := range sessions {
		if s.Status == model.StatusCompleted {
			completed = append(completed, s)
		}
	}
	if len(completed) == 0 {
		e.metrics.ProfileUpdate("skipped")
		return nil, nil
	}

	var pcts []float64
	for _, s := range completed {
		if s.TotalQuestions > 0 {
			pcts = append(pcts, e.sessionPercent(s))
		}
	}
	avg := mean(pcts)
	trend := avg
	if len(pcts) > 0 {
		trend = mean(pcts[max(0, len(pcts)-recentWindow):])
	}
	confidence, level := Confidence(avg, trend)

	weak, strong, err := e.classifyTopics(completed[max(0, len(completed)-topicWindow):])
	if err != nil {
		e.metrics.ProfileUpdate("error")
		return nil, err
	}

	saved, err := e.store.UpsertSkillProfile(model.SkillProfile{
		Owner:           owner,
		Role:            role,
		AvgScore:        round(avg, 1),
		RecentTrend:     round(trend, 1),
		ConfidenceScore: round(confidence, 1),
		ConfidenceLevel: level,
		WeakTopics:      strings.Join(weak, ","),
		StrongTopics:    strings.Join(strong, ","),
		TotalSessions:   len(sessions),
		TotalCompleted:  len(completed),
		LastUpdated:     time.Now().UTC(),
	})
	if err != nil {
		e.metrics.ProfileUpdate("error")
		return nil, fmt.Errorf("save skill profile: %w", err)
	}
	e.metrics.ProfileUpdate("ok")
	e.logger.Info("skill profile updated", "owner", owner, "role", role,
		"confidence", saved.ConfidenceScore, "level", saved.ConfidenceLevel)
	return &saved, nil
}

// classifyTopics averages answer percentages per topic across sessions. Only
// answered questions with a topic count.
func (e *Engine) classifyTopics(sessions []model.Session) (weak, strong []string, err error) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range sessions {
		questions, err := e.store.QuestionsForSession(s.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load questions for session %d: %w", s.ID, err)
		}
		answers, err := e.store.AnswersForSession(s.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load answers for session %d: %w", s.ID, err)
		}
		scores := make(map[int64]int, len(answers))
		for _, a := range answers {
			scores[a.QuestionID] = a.Score
		}
		for _, q := range questions {
			topic := strings.TrimSpace(q.Topic)
			score, answered := scores[q.ID]
			if topic == "" || !answered {
				continue
			}
			sums[topic] += QuestionPercent(q, score)
			counts[topic]++
		}
	}
	for topic, sum := range sums {
		avg := sum / float64(counts[topic])
		switch {
		case avg < WeakTopicThreshold:
			weak = append(weak, topic)
		case avg >= StrongTopicThreshold:
			strong = append(strong, topic)
		}
	}
	sort.Strings(weak)
	sort.Strings(strong)
	return weak, strong, nil
}

// SkillProfile returns the stored profile for (owner, role), or nil.
func (e *Engine) SkillProfile(owner, role string) (*model.SkillProfile, error) {
	return e.store.GetSkillProfile(owner, role)
}

// SkillProfiles lists every stored profile of owner.
func (e *Engine) SkillProfiles(owner string) ([]model.SkillProfile, error) {
	return e.store.ListSkillProfiles(owner)
}
