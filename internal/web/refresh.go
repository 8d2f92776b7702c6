package web

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "tutorsheet/internal/log"
)

// Refresher runs a refresh function on a cron schedule.
type Refresher struct {
	schedule string
	refresh  func(context.Context) error
	cron     *cron.Cron
}

// NewRefresher schedules refresh on schedule, a standard five-field cron
// expression or a descriptor such as "@every 15m".
func NewRefresher(schedule string, refresh func(context.Context) error) *Refresher {
	return &Refresher{
		schedule: schedule,
		refresh:  refresh,
		cron:     cron.New(),
	}
}

// Start schedules the job. Runs use ctx until Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh %q: %w", r.schedule, err)
	}
	r.cron.Start()
	appLog.Info("refresh job started", "schedule", r.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	appLog.Info("refresh job stopped")
}
