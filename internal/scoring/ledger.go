package scoring

import (
	"fmt"
	"math"
	"strings"

	"PositiveNews/internal/domain"
)

const (
	boostPerMatch = 0.3
	boostFloor    = -3.0
	boostCeil     = 3.0
)

// Ledger is the keyword table used for the free pre-score. It is
// loaded once per run and read-only thereafter.
type Ledger struct {
	entries []domain.Keyword
}

// NewLedger builds a ledger from the stored keyword entries.
func NewLedger(entries []domain.Keyword) *Ledger {
	return &Ledger{entries: entries}
}

// Boost scans text for every ledger entry and returns the summed
// keyword boost, clamped to [-3.0, 3.0]. Matching is case-insensitive
// substring containment, so the result is deterministic for a fixed
// ledger and text.
func (l *Ledger) Boost(text string) float64 {
	lower := strings.ToLower(text)

	var boost float64
	for _, kw := range l.entries {
		if !strings.Contains(lower, strings.ToLower(kw.Word)) {
			continue
		}
		if kw.Type == domain.KeywordPositive {
			boost += kw.Weight * boostPerMatch
		} else {
			boost -= math.Abs(kw.Weight) * boostPerMatch
		}
	}

	return clamp(boost, boostFloor, boostCeil)
}

// PromptContext renders the ledger for the judgment-oracle prompt.
// Returns "" for an empty ledger.
func (l *Ledger) PromptContext() string {
	var positives, negatives []string
	for _, kw := range l.entries {
		if kw.Type == domain.KeywordPositive {
			positives = append(positives, fmt.Sprintf("%q (+%g)", kw.Word, kw.Weight))
		} else {
			negatives = append(negatives, fmt.Sprintf("%q (-%g)", kw.Word, math.Abs(kw.Weight)))
		}
	}

	var parts []string
	if len(positives) > 0 {
		parts = append(parts, "Positive keywords: "+strings.Join(positives, ", "))
	}
	if len(negatives) > 0 {
		parts = append(parts, "Negative keywords: "+strings.Join(negatives, ", "))
	}
	return strings.Join(parts, "\n")
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
