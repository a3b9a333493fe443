// Package bot – Janitor
//
// This file schedules the purge of expired callback receipts.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog/log"
)

// DefaultPurgeCron runs the receipt purge at the top of every hour.
const DefaultPurgeCron = "0 * * * *"

// Purger removes expired callback receipts.
type Purger interface {
	PurgeReceipts(ctx context.Context) (int64, error)
}

// Janitor runs the receipt purge on a cron schedule.
type Janitor struct {
	purger Purger
	expr   string
	now    func() time.Time
	retry  time.Duration
}

// NewJanitor validates expr and returns a Janitor. An empty expr selects
// DefaultPurgeCron.
func NewJanitor(p Purger, expr string) (*Janitor, error) {
	if expr == "" {
		expr = DefaultPurgeCron
	}
	if !gronx.IsValid(expr) {
		return nil, fmt.Errorf("invalid purge cron expression: %q", expr)
	}
	return &Janitor{purger: p, expr: expr, now: time.Now, retry: 30 * time.Second}, nil
}

// Run blocks until ctx is cancelled, purging once per schedule tick.
func (j *Janitor) Run(ctx context.Context) {
	for {
		wait := j.retry
		now := j.now().UTC()
		next, err := gronx.NextTickAfter(j.expr, now, false)
		if err != nil {
			log.Error().Err(err).Str("cron", j.expr).Msg("receipt purge: next tick failed")
		} else {
			wait = next.Sub(now)
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("receipt purge stopping")
			return
		case <-time.After(wait):
		}
		if err == nil {
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge and logs the outcome.
func (j *Janitor) RunOnce(ctx context.Context) {
	n, err := j.purger.PurgeReceipts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("receipt purge failed")
		return
	}
	log.Info().Int64("purged", n).Msg("receipt purge")
}
