package scoring

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"PositiveNews/internal/domain"
	"PositiveNews/internal/ports"
)

const (
	// DefaultOracleBudget caps judgment-oracle calls per run.
	DefaultOracleBudget = 25

	finalScoreFloor = 1.0
	finalScoreCeil  = 10.0

	// neutralScore is the final score of a candidate whose oracle call
	// failed; the keyword boost never applies to it.
	neutralScore = 5.0

	// skippedReason marks candidates that never reached the oracle.
	skippedReason = "pre-filtered"
)

// Scorer ranks candidates in two tiers: a free keyword pre-score for
// everyone, then a budgeted judgment-oracle call for only the most
// promising subset.
type Scorer struct {
	oracle ports.JudgmentOracle
	budget int
	logger *slog.Logger
}

// NewScorer wires the judgment oracle; budget <= 0 falls back to
// DefaultOracleBudget.
func NewScorer(oracle ports.JudgmentOracle, budget int, logger *slog.Logger) *Scorer {
	if budget <= 0 {
		budget = DefaultOracleBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{oracle: oracle, budget: budget, logger: logger}
}

// Budget returns the per-run cap on judgment-oracle calls.
func (s *Scorer) Budget() int {
	return s.budget
}

// Score attaches a final score, reason, keywords and category to every
// candidate and returns the list sorted by final score descending.
// Oracle failures degrade the affected candidate to a neutral default
// and never abort the batch. progress (optional) is invoked after each
// oracle call.
func (s *Scorer) Score(ctx context.Context, candidates []domain.Candidate, ledger *Ledger, progress ports.ProgressFunc) []domain.Candidate {
	for i := range candidates {
		candidates[i].PreScore = ledger.Boost(combinedText(candidates[i]))
	}

	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PreScore > ranked[j].PreScore
	})

	cut := s.budget
	if cut > len(ranked) {
		cut = len(ranked)
	}
	judged, skipped := ranked[:cut], ranked[cut:]
	s.logger.Info("scoring batch", "oracle_candidates", len(judged), "skipped", len(skipped))

	ledgerContext := ledger.PromptContext()
	for i := range judged {
		eval, ok := s.evaluate(ctx, judged[i], ledgerContext)

		if ok {
			judged[i].Score = round2(clamp(eval.Score+judged[i].PreScore, finalScoreFloor, finalScoreCeil))
		} else {
			judged[i].Score = neutralScore
		}
		judged[i].ScoreReason = eval.Reason
		judged[i].Keywords = eval.Keywords
		judged[i].Category = eval.Category

		if progress != nil {
			progress(i+1, len(judged), judged[i].Title)
		}
	}

	for i := range skipped {
		skipped[i].Score = clamp(3.0+skipped[i].PreScore, 1.0, 4.0)
		skipped[i].ScoreReason = skippedReason
		skipped[i].Keywords = nil
		skipped[i].Category = domain.CategoryOther
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func (s *Scorer) evaluate(ctx context.Context, candidate domain.Candidate, ledgerContext string) (domain.Evaluation, bool) {
	eval, err := s.oracle.Evaluate(ctx, candidate, ledgerContext)
	if err != nil {
		s.logger.Warn("judgment oracle failed, using neutral default", "title", candidate.Title, "error", err)
		return domain.Evaluation{Category: domain.CategoryOther}, false
	}
	if !domain.ValidCategory(eval.Category) {
		eval.Category = domain.CategoryOther
	}
	return eval, true
}

func combinedText(c domain.Candidate) string {
	return c.Title + "\n\n" + c.Description
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
