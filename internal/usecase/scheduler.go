package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"PositiveNews/internal/ports"
)

// Service is the surface the presentation layer talks to: it owns the
// recurring trigger, startup catch-up, the manual trigger and the
// durable settings.
type Service struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	store    ports.ArticleStore
	logger   *slog.Logger

	defaultIntervalHours float64
	archiveAfter         time.Duration
}

// NewService wires the interval driver with the pipeline.
func NewService(driver ports.Scheduler, pipeline *Pipeline, store ports.ArticleStore, defaultIntervalHours float64, archiveAfter time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultIntervalHours <= 0 {
		defaultIntervalHours = 2.0
	}
	return &Service{
		driver:               driver,
		pipeline:             pipeline,
		store:                store,
		logger:               logger,
		defaultIntervalHours: defaultIntervalHours,
		archiveAfter:         archiveAfter,
	}
}

// Start launches the recurring trigger and, when the configured
// interval has already elapsed since the last recorded run, one
// asynchronous catch-up run.
func (s *Service) Start(ctx context.Context) error {
	interval := s.intervalDuration(ctx)
	s.driver.Reschedule(interval)
	if err := s.driver.Start(ctx, func(t time.Time) { s.tick(ctx, t) }); err != nil {
		return err
	}
	s.logger.Info("scheduler started", "interval", interval)

	lastTS, _ := strconv.ParseInt(s.store.Setting(ctx, settingLastRunTS, "0"), 10, 64)
	elapsed := time.Since(time.Unix(lastTS, 0))
	if elapsed >= interval {
		s.logger.Info("startup catch-up run", "elapsed", elapsed.Round(time.Minute))
		go s.pipeline.Run(ctx)
	} else {
		s.logger.Info("skipping startup run", "elapsed", elapsed.Round(time.Minute), "remaining", (interval - elapsed).Round(time.Minute))
	}
	return nil
}

// Stop tears down the recurring trigger. A run already in progress
// completes on its own.
func (s *Service) Stop(ctx context.Context) error {
	return s.driver.Stop(ctx)
}

// tick is the scheduled entry point: lifecycle maintenance first, then
// the pipeline. Manual triggers bypass the maintenance pass.
func (s *Service) tick(ctx context.Context, t time.Time) {
	if err := s.store.AdvanceStatuses(ctx, t, s.archiveAfter); err != nil {
		s.logger.Warn("status maintenance failed", "error", err)
	}
	s.pipeline.Run(ctx)
}

// TriggerManual requests one run asynchronously, subject to the
// single-flight guard.
func (s *Service) TriggerManual(ctx context.Context) {
	go s.pipeline.Run(ctx)
}

// Status returns the live job snapshot.
func (s *Service) Status() StatusSnapshot {
	return s.pipeline.Status()
}

// Interval reads the scrape interval in hours.
func (s *Service) Interval(ctx context.Context) float64 {
	raw := s.store.Setting(ctx, settingIntervalHours, "")
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
		return v
	}
	return s.defaultIntervalHours
}

// SetInterval persists a new scrape interval and reschedules the live
// trigger without restarting the process.
func (s *Service) SetInterval(ctx context.Context, hours float64) error {
	if err := s.store.SaveSetting(ctx, settingIntervalHours, strconv.FormatFloat(hours, 'f', -1, 64)); err != nil {
		return err
	}
	s.driver.Reschedule(time.Duration(hours * float64(time.Hour)))
	s.logger.Info("interval changed", "hours", hours)
	return nil
}

// MinScore reads the minimum publish score.
func (s *Service) MinScore(ctx context.Context) float64 {
	return s.pipeline.minScore(ctx)
}

// SetMinScore persists the minimum publish score, rounded to one
// decimal.
func (s *Service) SetMinScore(ctx context.Context, score float64) error {
	return s.store.SaveSetting(ctx, settingMinScore, strconv.FormatFloat(score, 'f', 1, 64))
}

// MaxArticles reads the per-run publish cap.
func (s *Service) MaxArticles(ctx context.Context) int {
	return s.pipeline.maxArticles(ctx)
}

// SetMaxArticles persists the per-run publish cap.
func (s *Service) SetMaxArticles(ctx context.Context, max int) error {
	return s.store.SaveSetting(ctx, settingMaxArticles, strconv.Itoa(max))
}

func (s *Service) intervalDuration(ctx context.Context) time.Duration {
	return time.Duration(s.Interval(ctx) * float64(time.Hour))
}
