// Package report runs the scheduled end-of-day summary: it aggregates
// the previous day's activity, logs it, and publishes it on the bus for
// dashboards.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"parkd/internal/domain"
)

// Scheduler runs the daily summary on a cron schedule.
type Scheduler struct {
	store    domain.ParkingStore
	bus      domain.EventBus
	schedule string
	logger   *slog.Logger

	cron   *cron.Cron
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. schedule is a standard five-field cron
// expression; the default "0 0 * * *" fires at midnight.
func New(store domain.ParkingStore, bus domain.EventBus, schedule string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		store:    store,
		bus:      bus,
		schedule: schedule,
		logger:   logger.With("component", "report"),
		cron:     cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("report: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule. Stop with Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("daily report scheduled", "schedule", s.schedule)
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	// The midnight run reports on the day that just ended.
	if err := s.Publish(taskCtx, time.Now().Add(-time.Minute)); err != nil {
		s.logger.Warn("daily summary failed", "error", err)
	}
}

// Publish aggregates the day containing t and publishes the summary.
func (s *Scheduler) Publish(ctx context.Context, t time.Time) error {
	summary, err := s.store.Summary(ctx, t)
	if err != nil {
		return fmt.Errorf("report: summarize %s: %w", t.Format("2006-01-02"), err)
	}

	s.logger.Info("daily summary",
		"date", summary.Date,
		"entries", summary.Entries,
		"exits", summary.Exits,
		"revenue", summary.Revenue)

	if s.bus != nil {
		payload, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		s.bus.Publish(ctx, domain.Event{
			Type:      domain.EventDailySummary,
			Timestamp: time.Now(),
			Payload:   payload,
		})
	}
	return nil
}
