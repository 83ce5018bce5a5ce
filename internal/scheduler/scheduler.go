// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/state"
)

// Handler is the callback invoked for each tracked asset when a sweep fires.
type Handler func(assetID string)

// Scheduler periodically sweeps the tracked assets and feeds each id to a
// handler callback, typically the metadata refresher. Sweeps are best
// effort: a failing asset is the handler's problem, the sweep moves on.
type Scheduler struct {
	tracking *state.TrackingStore
	schedule string
	handler  Handler
	cron     *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler sweeping on the given cron schedule.
func New(tracking *state.TrackingStore, schedule string, handler Handler) *Scheduler {
	return &Scheduler{
		tracking: tracking,
		schedule: schedule,
		handler:  handler,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the sweep and starts the cron ticker.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	slog.Info("refresh scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Sweep runs one sweep immediately, outside the cron schedule.
func (s *Scheduler) Sweep() {
	s.sweep()
}

func (s *Scheduler) sweep() {
	ids, err := s.tracking.AssetIDs()
	if err != nil {
		slog.Error("list tracked assets failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	slog.Info("refresh sweep", "assets", len(ids))
	for _, id := range ids {
		s.handler(id)
	}
}
