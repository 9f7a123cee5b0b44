package analytics

import (
	"fmt"

	"github.com/pavelanni/interviewer/internal/model"
)

const (
	hardThreshold   = 80.0
	mediumThreshold = 50.0
)

// DifficultyFor maps an average percentage to the next difficulty.
func DifficultyFor(avgPercent float64) model.Difficulty {
	switch {
	case avgPercent >= hardThreshold:
		return model.DifficultyHard
	case avgPercent >= mediumThreshold:
		return model.DifficultyMedium
	default:
		return model.DifficultyEasy
	}
}

// RecommendDifficulty averages the owner's completed sessions for role and
// picks the next difficulty. With no usable history it returns medium.
func (e *Engine) RecommendDifficulty(owner, role string) (model.Difficulty, error) {
	sessions, err := e.store.ListSessionsByOwnerRole(owner, role)
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	var pcts []float64
	for _, s := range sessions {
		if scorable(s) {
			pcts = append(pcts, e.sessionPercent(s))
		}
	}
	if len(pcts) == 0 {
		return model.DifficultyMedium, nil
	}
	d := DifficultyFor(mean(pcts))
	e.logger.Debug("difficulty recommended", "owner", owner, "role", role, "sessions", len(pcts), "difficulty", d)
	return d, nil
}
