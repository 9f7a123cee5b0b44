package analytics

import (
	"fmt"
	"sort"

	"github.com/pavelanni/interviewer/internal/model"
)

const (
	recentSessions = 5
	weakRoleCutoff = 50.0
	noRole         = "N/A"
)

// Dashboard summarises an owner's history across all roles.
func (e *Engine) Dashboard(owner string) (model.Dashboard, error) {
	sessions, err := e.store.ListSessionsByOwner(owner)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("list sessions: %w", err)
	}

	d := model.Dashboard{
		Owner:           owner,
		TotalSessions:   len(sessions),
		BestRole:        noRole,
		WeakestRole:     noRole,
		WeakAreas:       []string{},
		RoleWiseAverage: map[string]float64{},
		RecentSessions:  []model.SessionSummary{},
	}
	// Sessions arrive newest first.
	if len(sessions) > 0 {
		last := sessions[0].CreatedAt
		d.LastInterviewDate = &last
	}
	for _, s := range sessions[:min(recentSessions, len(sessions))] {
		d.RecentSessions = append(d.RecentSessions, model.SessionSummary{
			SessionID:  s.ID,
			Role:       s.Role,
			Type:       s.Type,
			Difficulty: s.Difficulty,
			Score:      s.Score,
			Status:     s.Status,
			Date:       s.CreatedAt,
		})
	}

	var all []float64
	byRole := make(map[string][]float64)
	for _, s := range sessions {
		if s.Status != model.StatusCompleted {
			continue
		}
		d.HighestScore = max(d.HighestScore, s.Score)
		if s.TotalQuestions == 0 {
			continue
		}
		pct := e.sessionPercent(s)
		all = append(all, pct)
		byRole[s.Role] = append(byRole[s.Role], pct)
	}
	if len(all) == 0 {
		return d, nil
	}
	d.AverageScore = min(100, round(mean(all), 1))

	roles := make([]string, 0, len(byRole))
	for role, p := range byRole {
		d.RoleWiseAverage[role] = min(100, round(mean(p), 2))
		roles = append(roles, role)
	}
	sort.Strings(roles)
	d.BestRole, d.WeakestRole = roles[0], roles[0]
	for _, role := range roles {
		avg := d.RoleWiseAverage[role]
		if avg > d.RoleWiseAverage[d.BestRole] {
			d.BestRole = role
		}
		if avg < d.RoleWiseAverage[d.WeakestRole] {
			d.WeakestRole = role
		}
		if avg < weakRoleCutoff {
			d.WeakAreas = append(d.WeakAreas, role)
		}
	}
	return d, nil
}
