// Package bot – Dispatcher
//
// This file implements the Dispatcher, which runs each update as its own unit
// of work with a bounded worker count, a per-update deadline and panic
// recovery.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/pull-party-bot/internal/platform"
)

// UpdateHandler serves a single update.
type UpdateHandler interface {
	Handle(ctx context.Context, u platform.Update) error
}

// Dispatcher fans updates out to a bounded number of concurrent handlers.
// Each update runs under its own deadline; a slow or panicking update never
// blocks or crashes the others.
type Dispatcher struct {
	handler UpdateHandler
	workers int
	timeout time.Duration
}

// NewDispatcher builds a Dispatcher. Non-positive workers default to 16 and a
// non-positive timeout to 30s.
func NewDispatcher(h UpdateHandler, workers int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 16
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{handler: h, workers: workers, timeout: timeout}
}

// Run consumes updates until the channel closes or ctx is cancelled, then
// waits for in-flight handlers. In-flight handlers keep their own deadline
// after ctx is cancelled so accepted updates are finished.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan platform.Update) error {
	var g errgroup.Group
	g.SetLimit(d.workers)

	base := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case u, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				d.serve(base, u)
				return nil
			})
		}
	}
}

// serve handles one update and records its outcome.
func (d *Dispatcher) serve(ctx context.Context, u platform.Update) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.safeHandle(ctx, u)

	kind := u.Kind()
	latency := time.Since(start)
	updateDuration.WithLabelValues(kind).Observe(latency.Seconds())

	l := log.With().
		Str("request_id", uuid.NewString()).
		Int("update_id", u.ID).
		Str("update_kind", kind).
		Int64("chat_id", chatOf(u)).
		Str("command", commandOf(u)).
		Dur("latency", latency).
		Logger()
	if err != nil {
		l.Error().Err(err).Msg("update")
		return
	}
	l.Debug().Msg("update")
}

// safeHandle converts a handler panic into an error.
func (d *Dispatcher) safeHandle(ctx context.Context, u platform.Update) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			panicsTotal.Inc()
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Int("update_id", u.ID).
				Msg("panic recovered")
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return d.handler.Handle(ctx, u)
}

func chatOf(u platform.Update) int64 {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID
	case u.Callback != nil && u.Callback.Message != nil:
		return u.Callback.Message.Chat.ID
	default:
		return 0
	}
}

func commandOf(u platform.Update) string {
	if u.Message != nil {
		return u.Message.Command
	}
	return ""
}
