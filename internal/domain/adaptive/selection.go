package adaptive

import (
	"math/rand"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// Question is a candidate quiz question. Points is the declared weight used
// as a proxy for difficulty.
type Question struct {
	ID     string `json:"id"`
	Points int    `json:"points"`
}

// MinPoints returns the smallest question weight allowed at a level.
func MinPoints(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyHard:
		return 10
	case domain.DifficultyMedium:
		return 5
	default:
		return 1
	}
}

// FilterCandidates returns the questions that meet the level's minimum
// weight. If none do, the whole pool is returned so delivery never stalls.
func FilterCandidates(pool []Question, d domain.Difficulty) []Question {
	minPoints := MinPoints(d)
	filtered := make([]Question, 0, len(pool))
	for _, q := range pool {
		if q.Points >= minPoints {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) == 0 {
		return pool
	}
	return filtered
}

// SelectNext picks a question for the session's current level. It returns
// false when the pool is empty. A nil rng uses the global source.
func SelectNext(pool []Question, s State, rng *rand.Rand) (Question, bool) {
	if len(pool) == 0 {
		return Question{}, false
	}

	candidates := FilterCandidates(pool, s.CurrentDifficulty)

	var i int
	if rng != nil {
		i = rng.Intn(len(candidates))
	} else {
		i = rand.Intn(len(candidates))
	}
	return candidates[i], true
}
