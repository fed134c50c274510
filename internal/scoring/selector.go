package scoring

import "PositiveNews/internal/domain"

// Select returns the leading candidates from a score-sorted list that
// reach minScore, capped at max. An empty result is a valid outcome,
// not an error.
func Select(ranked []domain.Candidate, minScore float64, max int) []domain.Candidate {
	var selected []domain.Candidate
	for _, c := range ranked {
		if c.Score < minScore {
			continue
		}
		selected = append(selected, c)
		if len(selected) == max {
			break
		}
	}
	return selected
}
