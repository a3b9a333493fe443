package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls int32
	err   error
}

func (p *countingPurger) PurgeReceipts(ctx context.Context) (int64, error) {
	atomic.AddInt32(&p.calls, 1)
	return 3, p.err
}

func TestNewJanitor_ValidatesCron(t *testing.T) {
	if _, err := NewJanitor(&countingPurger{}, "not a cron"); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
	j, err := NewJanitor(&countingPurger{}, "")
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	if j.expr != DefaultPurgeCron {
		t.Fatalf("expr = %q; want default", j.expr)
	}
}

func TestJanitor_RunOnce(t *testing.T) {
	p := &countingPurger{}
	j, _ := NewJanitor(p, "*/5 * * * *")
	j.RunOnce(context.Background())

	p.err = errors.New("db locked")
	j.RunOnce(context.Background())
	if p.calls != 2 {
		t.Fatalf("calls = %d; want 2", p.calls)
	}
}

func TestJanitor_RunTicksAndStops(t *testing.T) {
	p := &countingPurger{}
	j, _ := NewJanitor(p, "* * * * *")
	// Pretend the clock sits just before a minute boundary.
	j.now = func() time.Time {
		n := time.Now()
		return n.Truncate(time.Minute).Add(time.Minute - 10*time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&p.calls) == 0 {
		select {
		case <-deadline:
			t.Fatalf("purge never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
