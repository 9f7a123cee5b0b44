package analytics

import (
	"fmt"
	"sort"

	"github.com/pavelanni/interviewer/internal/model"
)

// WeakTopicThreshold is the average percentage below which a topic is weak.
const WeakTopicThreshold = 50.0

// StrongTopicThreshold is the average percentage at or above which a profile topic is strong.
const StrongTopicThreshold = 75.0

// TopicAverages groups questions by topic and averages their answer scores as
// percentages of each question's maximum. Unanswered questions count as 0.
func TopicAverages(questions []model.Question, answers []model.Answer) map[string]float64 {
	scoreByQuestion := make(map[int64]int, len(answers))
	for _, a := range answers {
		scoreByQuestion[a.QuestionID] = a.Score
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, q := range questions {
		topic := q.TopicOrDefault()
		sums[topic] += QuestionPercent(q, scoreByQuestion[q.ID])
		counts[topic]++
	}
	avgs := make(map[string]float64, len(sums))
	for topic, sum := range sums {
		avgs[topic] = round(sum/float64(counts[topic]), 2)
	}
	return avgs
}

// Weak returns the topics averaging below WeakTopicThreshold, sorted by name.
func Weak(avgs map[string]float64) []string {
	var weak []string
	for topic, avg := range avgs {
		if avg < WeakTopicThreshold {
			weak = append(weak, topic)
		}
	}
	sort.Strings(weak)
	return weak
}

// Primary returns the lowest-scoring weak topic. Ties go to the name that sorts first.
func Primary(avgs map[string]float64) (string, bool) {
	var (
		best  string
		low   float64
		found bool
	)
	for _, topic := range Weak(avgs) {
		if !found || avgs[topic] < low {
			best, low, found = topic, avgs[topic], true
		}
	}
	return best, found
}

// TopicScores returns the per-topic average percentages of a session.
func (e *Engine) TopicScores(sessionID int64) (map[string]float64, error) {
	if _, err := e.store.GetSession(sessionID); err != nil {
		return nil, err
	}
	questions, err := e.store.QuestionsForSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	answers, err := e.store.AnswersForSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return TopicAverages(questions, answers), nil
}

// WeakTopics returns the session's weak topics sorted by name.
func (e *Engine) WeakTopics(sessionID int64) ([]string, error) {
	avgs, err := e.TopicScores(sessionID)
	if err != nil {
		return nil, err
	}
	return Weak(avgs), nil
}

// PrimaryWeakTopic returns the session's lowest-scoring weak topic, if any.
func (e *Engine) PrimaryWeakTopic(sessionID int64) (string, bool, error) {
	avgs, err := e.TopicScores(sessionID)
	if err != nil {
		return "", false, err
	}
	topic, ok := Primary(avgs)
	return topic, ok, nil
}

// LatestCompleted returns the owner's most recently created completed session
// for role, or nil if there is none.
func (e *Engine) LatestCompleted(owner, role string) (*model.Session, error) {
	sessions, err := e.store.ListSessionsByOwnerRole(owner, role)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Status == model.StatusCompleted {
			s := sessions[i]
			return &s, nil
		}
	}
	return nil, nil
}
