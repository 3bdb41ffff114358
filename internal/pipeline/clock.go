package pipeline

import (
	"context"
	"time"
)

// Timer is the handle the aggregator holds for an armed debounce window.
// Stop reports whether the timer was cancelled before firing.
type Timer interface {
	Stop() bool
}

// TimerFactory arms a timer that calls fn once after d. The default factory
// wraps time.AfterFunc; tests inject a fake that fires on demand.
type TimerFactory func(d time.Duration, fn func()) Timer

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// AfterFunc is the production TimerFactory.
func AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
// Used for chunk pacing; injectable so tests record delays instead of waiting.
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
