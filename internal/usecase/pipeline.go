package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"PositiveNews/internal/domain"
	"PositiveNews/internal/ports"
	"PositiveNews/internal/scoring"
)

// Durable setting keys shared with the presentation layer.
const (
	settingIntervalHours = "scrape_interval_hours"
	settingMinScore      = "min_publish_score"
	settingMaxArticles   = "max_articles"
	settingLastRunTS     = "last_run_ts"
)

const (
	maxHeadlineRunes = 500
	maxErrorRunes    = 120

	fallbackImageQuery = "positive news"
)

// PipelineDeps wires all driven adapters into the curation pipeline.
type PipelineDeps struct {
	Store     ports.ArticleStore
	Source    ports.CandidateSource
	Oracle    ports.JudgmentOracle
	Generator ports.GenerationOracle
	Images    ports.ImageSearcher
	Logger    *slog.Logger

	OracleBudget       int
	DefaultMinScore    float64
	DefaultMaxArticles int
}

// Pipeline owns one end-to-end curation run: fetch, dedup, two-tier
// scoring, selection, synthesis, enrichment and the atomic publish.
// Runs are single-flight; a trigger while a run is in progress is a
// logged no-op.
type Pipeline struct {
	store     ports.ArticleStore
	source    ports.CandidateSource
	scorer    *scoring.Scorer
	generator ports.GenerationOracle
	images    ports.ImageSearcher
	logger    *slog.Logger

	defaultMinScore    float64
	defaultMaxArticles int

	status *statusTracker
}

// NewPipeline constructs the orchestrator.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	minScore := deps.DefaultMinScore
	if minScore <= 0 {
		minScore = 6.0
	}
	maxArticles := deps.DefaultMaxArticles
	if maxArticles <= 0 {
		maxArticles = 6
	}

	return &Pipeline{
		store:              deps.Store,
		source:             deps.Source,
		scorer:             scoring.NewScorer(deps.Oracle, deps.OracleBudget, logger.With("component", "scorer")),
		generator:          deps.Generator,
		images:             deps.Images,
		logger:             logger,
		defaultMinScore:    minScore,
		defaultMaxArticles: maxArticles,
		status:             newStatusTracker(),
	}
}

// Status returns a consistent copy of the live job snapshot.
func (p *Pipeline) Status() StatusSnapshot {
	return p.status.Snapshot()
}

// Run executes one curation pass. It is safe to call from both the
// scheduler tick and the manual-trigger path; only one run proceeds
// at a time.
func (p *Pipeline) Run(ctx context.Context) {
	if !p.status.tryAcquire(time.Now()) {
		p.logger.Info("run already in progress, skipping trigger")
		return
	}
	defer p.status.release()

	defer func() {
		if r := recover(); r != nil {
			p.terminate(ctx, PhaseError, truncateRunes(fmt.Sprintf("panic: %v", r), maxErrorRunes))
		}
	}()

	p.logger.Info("curation run started")

	sources, err := p.store.EnabledSources(ctx)
	if err != nil {
		p.terminate(ctx, PhaseError, truncateRunes("load sources: "+err.Error(), maxErrorRunes))
		return
	}
	if len(sources) == 0 {
		p.terminate(ctx, PhaseError, "no enabled feed sources")
		return
	}

	keywords, err := p.store.Keywords(ctx)
	if err != nil {
		p.terminate(ctx, PhaseError, truncateRunes("load keywords: "+err.Error(), maxErrorRunes))
		return
	}
	ledger := scoring.NewLedger(keywords)

	// fetching
	p.status.setPhase(PhaseFetching, "fetching feeds")
	candidates := p.source.FetchAll(ctx, sources)
	if len(candidates) == 0 {
		p.terminate(ctx, PhaseDone, "no articles from any source")
		return
	}

	existing, err := p.store.ExistingURLs(ctx)
	if err != nil {
		p.terminate(ctx, PhaseError, truncateRunes("load existing urls: "+err.Error(), maxErrorRunes))
		return
	}
	fresh := candidates[:0]
	for _, c := range candidates {
		if !existing[c.URL] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		p.terminate(ctx, PhaseDone, "no new articles to evaluate")
		return
	}
	p.logger.Info("new candidates", "count", len(fresh))

	// evaluating
	willEvaluate := len(fresh)
	if budget := p.scorer.Budget(); willEvaluate > budget {
		willEvaluate = budget
	}
	p.status.beginEvaluation(willEvaluate)

	ranked := p.scorer.Score(ctx, fresh, ledger, func(done, total int, title string) {
		p.status.progress(done, total, fmt.Sprintf("%d / %d evaluated: %s", done, total, truncateRunes(title, 40)))
	})

	minScore := p.minScore(ctx)
	selected := scoring.Select(ranked, minScore, p.maxArticles(ctx))
	if len(selected) == 0 {
		msg := fmt.Sprintf("no article reached minimum score %.1f (best was %.2f)", minScore, ranked[0].Score)
		p.terminate(ctx, PhaseDone, msg)
		return
	}

	// generating
	staged := make([]domain.Article, 0, len(selected))
	for i, candidate := range selected {
		p.status.setPhase(PhaseGenerating,
			fmt.Sprintf("generating article %d/%d: %s", i+1, len(selected), truncateRunes(candidate.Title, 45)))

		draft := p.synthesize(ctx, candidate)
		image := p.images.Find(ctx, draft.ImageQuery)

		staged = append(staged, domain.Article{
			Title:       truncateRunes(draft.Headline, maxHeadlineRunes),
			Content:     draft.Content,
			OriginalURL: candidate.URL,
			SourceName:  candidate.SourceName,
			PublishedAt: candidate.PublishedAt,
			CreatedAt:   time.Now().UTC(),
			Score:       candidate.Score,
			Image:       image,
			Language:    candidate.Language,
			Category:    candidate.Category,
			Status:      domain.StatusHot,
		})
		p.logger.Info("article staged", "headline", truncateRunes(draft.Headline, 60), "score", candidate.Score)
	}

	if err := p.store.PublishBatch(ctx, staged); err != nil {
		p.terminate(ctx, PhaseError, truncateRunes("publish batch: "+err.Error(), maxErrorRunes))
		return
	}

	p.terminate(ctx, PhaseDone, fmt.Sprintf("published %d articles (minimum score %.1f)", len(staged), minScore))
}

// synthesize calls the generation oracle and applies the deterministic
// fallback on any failure. It never fails.
func (p *Pipeline) synthesize(ctx context.Context, candidate domain.Candidate) domain.Draft {
	draft, err := p.generator.Generate(ctx, candidate)
	if err != nil {
		p.logger.Warn("generation oracle failed, using fallback draft", "title", candidate.Title, "error", err)
		return domain.Draft{
			Headline:   candidate.Title,
			Content:    candidate.Description,
			ImageQuery: fallbackImageQuery,
		}
	}
	if draft.ImageQuery == "" {
		draft.ImageQuery = fallbackImageQuery
	}
	return draft
}

// terminate records a terminal transition: status snapshot, durable
// last-run timestamp and the outcome summary.
func (p *Pipeline) terminate(ctx context.Context, phase Phase, result string) {
	now := time.Now()
	p.status.finish(phase, result, now)

	if err := p.store.SaveSetting(ctx, settingLastRunTS, strconv.FormatInt(now.Unix(), 10)); err != nil {
		p.logger.Warn("cannot persist last run timestamp", "error", err)
	}

	if phase == PhaseError {
		p.logger.Error("curation run failed", "result", result)
	} else {
		p.logger.Info("curation run finished", "result", result)
	}
}

func (p *Pipeline) minScore(ctx context.Context) float64 {
	raw := p.store.Setting(ctx, settingMinScore, "")
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
		return v
	}
	return p.defaultMinScore
}

func (p *Pipeline) maxArticles(ctx context.Context) int {
	raw := p.store.Setting(ctx, settingMaxArticles, "")
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return p.defaultMaxArticles
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
