// Package scheduler runs periodic background jobs
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpiredViewPurger is implemented by view stores that cannot expire entries on their own
type ExpiredViewPurger interface {
	PurgeExpired() int
}

// ViewJanitor periodically drops expired counter views from an in-process store
type ViewJanitor struct {
	store    ExpiredViewPurger
	interval time.Duration
	logger   zerolog.Logger
}

func NewViewJanitor(store ExpiredViewPurger, interval time.Duration, logger zerolog.Logger) *ViewJanitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ViewJanitor{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "view_janitor").Logger(),
	}
}

// Start launches the janitor loop in a background goroutine and returns a stop function
func (j *ViewJanitor) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce()
			}
		}
	}()

	return cancel
}

// RunOnce purges expired views and returns how many were removed
func (j *ViewJanitor) RunOnce() int {
	removed := j.store.PurgeExpired()
	if removed > 0 {
		j.logger.Debug().Int("removed", removed).Msg("Purged expired counter views")
	}
	return removed
}
