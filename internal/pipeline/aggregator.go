package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last event of a media group
// before the bucket is considered complete. Telegram delivers album items as
// separate updates with no end-of-group marker, so completion can only be
// inferred from silence.
const DefaultDebounce = 1500 * time.Millisecond

// Aggregator buckets media events sharing a group id and flushes each bucket
// to the dispatcher once its debounce window expires. The bucket table is the
// only shared mutable state in the core; all access goes through mu.
type Aggregator struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	debounce    time.Duration
	newTimer    TimerFactory
	activations Activations
	dispatch    func(ctx context.Context, events []MediaEvent)

	// ctx is the channel's lifetime context; timer callbacks have no caller
	// context of their own, so flushed buckets run under this one.
	ctx context.Context
}

type bucket struct {
	chatID int64
	events []MediaEvent
	timer  Timer
}

// NewAggregator creates an aggregator that hands flushed buckets to dispatch.
// ctx bounds the work started by timer expiry. A nil newTimer falls back to
// AfterFunc.
func NewAggregator(ctx context.Context, debounce time.Duration, activations Activations, newTimer TimerFactory, dispatch func(ctx context.Context, events []MediaEvent)) *Aggregator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if newTimer == nil {
		newTimer = AfterFunc
	}
	return &Aggregator{
		buckets:     make(map[string]*bucket),
		debounce:    debounce,
		newTimer:    newTimer,
		activations: activations,
		dispatch:    dispatch,
		ctx:         ctx,
	}
}

// Ingest appends the event to its group's bucket and rearms the debounce
// timer, extending the window for as long as the burst keeps arriving.
// Fire-and-forget: the bucket is flushed asynchronously on expiry.
func (a *Aggregator) Ingest(ev MediaEvent) {
	if ev.GroupID == "" {
		// Ungrouped events never reach the aggregator; route them straight
		// to the dispatcher instead.
		return
	}

	a.mu.Lock()
	b, ok := a.buckets[ev.GroupID]
	if !ok {
		b = &bucket{chatID: ev.ChatID}
		a.buckets[ev.GroupID] = b
	}
	b.events = append(b.events, ev)

	// Cancel-and-rearm: at most one armed timer per group id at any instant.
	if b.timer != nil {
		b.timer.Stop()
	}
	groupID := ev.GroupID
	b.timer = a.newTimer(a.debounce, func() { a.flush(groupID) })
	a.mu.Unlock()

	slog.Debug("media group event buffered",
		"group_id", ev.GroupID,
		"chat_id", ev.ChatID,
		"seq", ev.Seq,
		"kind", string(ev.Kind),
	)
}

// flush removes the bucket atomically, so a late event for the same group id
// starts a fresh bucket rather than racing into a half-flushed one, then
// re-checks activation and hands the ordered event list to the dispatcher.
func (a *Aggregator) flush(groupID string) {
	a.mu.Lock()
	b, ok := a.buckets[groupID]
	if ok {
		delete(a.buckets, groupID)
	}
	a.mu.Unlock()

	if !ok || len(b.events) == 0 {
		return
	}

	if !a.activations.IsActive(a.ctx, b.chatID) {
		slog.Info("chat inactive at flush, dropping media group",
			"group_id", groupID,
			"chat_id", b.chatID,
			"events", len(b.events),
		)
		return
	}

	// Platform delivery order is not guaranteed to match intended order.
	sort.Slice(b.events, func(i, j int) bool { return b.events[i].Seq < b.events[j].Seq })

	slog.Info("media group complete",
		"group_id", groupID,
		"chat_id", b.chatID,
		"events", len(b.events),
	)
	a.dispatch(a.ctx, b.events)
}

// Pending reports the number of open buckets. Diagnostic only.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buckets)
}
