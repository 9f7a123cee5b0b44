package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pavelanni/interviewer/internal/model"
)

// LeaderboardSize is the number of owners Rank returns.
const LeaderboardSize = 10

// ScoredSession pairs a session with its percentage score.
type ScoredSession struct {
	Session model.Session
	Percent float64
}

// Rank groups completed sessions by owner and returns the top owners by mean
// percentage. An empty role ranks across all roles.
func Rank(scored []ScoredSession, role string) []model.LeaderboardEntry {
	pcts := make(map[string][]float64)
	for _, sc := range scored {
		if !scorable(sc.Session) {
			continue
		}
		if role != "" && !strings.EqualFold(sc.Session.Role, role) {
			continue
		}
		pcts[sc.Session.Owner] = append(pcts[sc.Session.Owner], sc.Percent)
	}

	entries := make([]model.LeaderboardEntry, 0, len(pcts))
	for owner, p := range pcts {
		entries = append(entries, model.LeaderboardEntry{
			Owner:         owner,
			AvgScore:      mean(p),
			TotalSessions: len(p),
			Role:          role,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AvgScore != entries[j].AvgScore {
			return entries[i].AvgScore > entries[j].AvgScore
		}
		return entries[i].Owner < entries[j].Owner
	})
	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	for i := range entries {
		entries[i].AvgScore = min(100, round(entries[i].AvgScore, 1))
	}
	return entries
}

// Leaderboard ranks owners over every stored session.
func (e *Engine) Leaderboard(role string) ([]model.LeaderboardEntry, error) {
	sessions, err := e.store.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	scored := make([]ScoredSession, 0, len(sessions))
	for _, s := range sessions {
		if !scorable(s) {
			continue
		}
		if role != "" && !strings.EqualFold(s.Role, role) {
			continue
		}
		scored = append(scored, ScoredSession{Session: s, Percent: e.sessionPercent(s)})
	}
	return Rank(scored, role), nil
}
