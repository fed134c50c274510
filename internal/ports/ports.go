package ports

import (
	"context"
	"time"

	"PositiveNews/internal/domain"
)

// CandidateSource pulls deduplicated candidates from all enabled feeds.
type CandidateSource interface {
	FetchAll(ctx context.Context, sources []domain.Source) []domain.Candidate
}

// JudgmentOracle scores one candidate for editorial positivity.
type JudgmentOracle interface {
	Evaluate(ctx context.Context, candidate domain.Candidate, ledgerContext string) (domain.Evaluation, error)
}

// GenerationOracle rewrites one selected candidate into finished copy.
type GenerationOracle interface {
	Generate(ctx context.Context, candidate domain.Candidate) (domain.Draft, error)
}

// ImageSearcher resolves a short query to an illustration. It never
// fails: unreachable services and empty result sets degrade to a
// built-in fallback descriptor.
type ImageSearcher interface {
	Find(ctx context.Context, query string) domain.Image
}

// ArticleStore persists finished articles and the tables the pipeline
// reads: sources, keywords and durable settings.
type ArticleStore interface {
	ExistingURLs(ctx context.Context) (map[string]bool, error)

	// PublishBatch atomically clears the newest-batch flag everywhere
	// and inserts the given articles with the flag set.
	PublishBatch(ctx context.Context, articles []domain.Article) error

	EnabledSources(ctx context.Context) ([]domain.Source, error)
	Keywords(ctx context.Context) ([]domain.Keyword, error)

	Setting(ctx context.Context, key, fallback string) string
	SaveSetting(ctx context.Context, key, value string) error

	// AdvanceStatuses performs the periodic lifecycle maintenance:
	// hot articles outside the newest batch become categorized, and
	// articles older than archiveAfter become archived.
	AdvanceStatuses(ctx context.Context, now time.Time, archiveAfter time.Duration) error
}

// Scheduler drives the recurring pipeline job.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Reschedule(interval time.Duration)
	Stop(ctx context.Context) error
}

// ProgressFunc reports oracle-evaluation progress back to the
// orchestrator for the live status snapshot.
type ProgressFunc func(done, total int, title string)
