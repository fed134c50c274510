package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PositiveNews/internal/config"
	"PositiveNews/internal/domain"
	"PositiveNews/internal/infrastructure/feed"
	"PositiveNews/internal/infrastructure/llm"
	"PositiveNews/internal/infrastructure/scheduler"
	"PositiveNews/internal/infrastructure/storage"
	"PositiveNews/internal/infrastructure/unsplash"
	"PositiveNews/internal/logging"
	"PositiveNews/internal/usecase"
)

// Application wires configuration to adapters and the job service.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *storage.SQLiteRepository
	service *usecase.Service
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Seed(context.Background(), seedSources(cfg.Seeds.Sources), seedKeywords(cfg.Seeds.Keywords)); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}

	claude := llm.NewClient(cfg.Claude)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:              store,
		Source:             feed.NewCoordinator(nil, baseLogger.With("component", "feed")),
		Oracle:             claude,
		Generator:          claude,
		Images:             unsplash.NewClient(cfg.Unsplash, baseLogger.With("component", "unsplash")),
		Logger:             baseLogger.With("component", "pipeline"),
		OracleBudget:       cfg.Pipeline.OracleBudget,
		DefaultMinScore:    cfg.Pipeline.DefaultMinScore,
		DefaultMaxArticles: cfg.Pipeline.DefaultMaxArticles,
	})

	driver := scheduler.NewIntervalScheduler(time.Duration(cfg.Pipeline.DefaultIntervalHours * float64(time.Hour)))
	service := usecase.NewService(
		driver,
		pipeline,
		store,
		cfg.Pipeline.DefaultIntervalHours,
		time.Duration(cfg.Pipeline.ArchiveAfterDays)*24*time.Hour,
		baseLogger.With("component", "scheduler"),
	)

	return &Application{cfg: cfg, logger: baseLogger, store: store, service: service}, nil
}

// Service exposes the job orchestration surface consumed by the
// presentation layer.
func (a *Application) Service() *usecase.Service {
	return a.service
}

// Store exposes the publication store's read queries.
func (a *Application) Store() *storage.SQLiteRepository {
	return a.store
}

// Run starts the scheduler and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	if err := a.service.Stop(context.Background()); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	return a.store.Close()
}

func seedSources(seeds []config.SourceSeed) []domain.Source {
	sources := make([]domain.Source, 0, len(seeds))
	for _, s := range seeds {
		sources = append(sources, domain.Source{Name: s.Name, URL: s.URL, Language: s.Language, Enabled: true})
	}
	return sources
}

func seedKeywords(seeds []config.KeywordSeed) []domain.Keyword {
	keywords := make([]domain.Keyword, 0, len(seeds))
	for _, k := range seeds {
		keywords = append(keywords, domain.Keyword{Word: k.Word, Weight: k.Weight, Type: domain.KeywordType(k.Type)})
	}
	return keywords
}
