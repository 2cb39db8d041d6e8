package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/metrics"
)

// SourceLister provides the active sources to evaluate.
type SourceLister interface {
	ListActive(ctx context.Context) ([]*domain.Source, error)
}

// TaskDispatcher enqueues a crawl task for a source. Delivery is
// at-least-once; the queue layer owns retry and dead-lettering.
type TaskDispatcher interface {
	DispatchCrawl(ctx context.Context, sourceID string) error
}

// Scheduler evaluates source schedules once per tick and dispatches one crawl
// task per due source. It never touches last_scraped_at: that is written only
// by the pipeline after a crawl actually completed.
type Scheduler struct {
	sources    SourceLister
	dispatcher TaskDispatcher
	logger     logger.Logger
	now        func() time.Time
}

// NewScheduler creates a source scheduler.
func NewScheduler(sources SourceLister, dispatcher TaskDispatcher, log logger.Logger) *Scheduler {
	return &Scheduler{
		sources:    sources,
		dispatcher: dispatcher,
		logger:     log,
		now:        time.Now,
	}
}

// CheckSources runs one scheduling pass and returns the number of dispatched
// tasks. Per-source failures are logged and skipped so a single bad source
// cannot abort the scan.
func (s *Scheduler) CheckSources(ctx context.Context) (int, error) {
	s.logger.Debug("checking sources for updates")

	sources, err := s.sources.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active sources: %w", err)
	}

	now := s.now()
	dispatched := 0

	for _, source := range sources {
		if !source.HasSchedule() {
			continue
		}

		due, dueErr := IsDue(*source.Schedule, source.LastScrapedAt, now)
		if dueErr != nil {
			s.logger.Warn("skipping source with invalid schedule",
				logger.String("source_id", source.ID),
				logger.String("source", source.Name),
				logger.Error(dueErr),
			)
			continue
		}
		if !due {
			continue
		}

		if dispatchErr := s.dispatcher.DispatchCrawl(ctx, source.ID); dispatchErr != nil {
			s.logger.Error("failed to dispatch crawl task",
				logger.String("source_id", source.ID),
				logger.String("source", source.Name),
				logger.Error(dispatchErr),
			)
			continue
		}

		s.logger.Info("source due for update, task dispatched",
			logger.String("source_id", source.ID),
			logger.String("source", source.Name),
		)
		dispatched++
	}

	metrics.TasksDispatched.Add(float64(dispatched))
	s.logger.Info("source check complete", logger.Int("dispatched", dispatched))

	return dispatched, nil
}
