package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultChunkPacing is the delay between successive chunk sends; Telegram
// throttles bursts of messages to the same chat.
const DefaultChunkPacing = 500 * time.Millisecond

// User-facing notices. A failed bucket produces exactly one generic message,
// never a raw error.
const (
	noticeEmpty = "Не удалось получить описание для этого медиафайла."
	noticeError = "Извините, произошла ошибка при обработке вашего запроса. " +
		"Пожалуйста, попробуйте еще раз позже."
)

// Dispatcher runs one bucket (or one ungrouped event) end to end: presence
// signal, concurrent resolution, a single describe call, chunked delivery.
// Failures are converted to user notices here and never propagate upward.
type Dispatcher struct {
	resolver  Resolver
	describer Describer
	delivery  Delivery

	chunkLimit int
	pacing     time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

// NewDispatcher wires the dispatch pipeline. chunkLimit and pacing fall back
// to the platform defaults when zero; sleep may be overridden in tests.
func NewDispatcher(resolver Resolver, describer Describer, delivery Delivery, chunkLimit int, pacing time.Duration) *Dispatcher {
	if chunkLimit <= 0 {
		chunkLimit = DefaultChunkLimit
	}
	if pacing <= 0 {
		pacing = DefaultChunkPacing
	}
	return &Dispatcher{
		resolver:   resolver,
		describer:  describer,
		delivery:   delivery,
		chunkLimit: chunkLimit,
		pacing:     pacing,
		sleep:      Sleep,
	}
}

// Process handles one ordered unit of work. events must be non-empty and
// pre-sorted by sequence number; replies thread to the first event.
func (d *Dispatcher) Process(ctx context.Context, events []MediaEvent) {
	if len(events) == 0 {
		return
	}

	first := events[0]
	workID := uuid.NewString()
	log := slog.With("work_id", workID, "chat_id", first.ChatID, "events", len(events))

	// Best-effort working indicator; a failure here must not block the flow.
	if err := d.delivery.SendPresence(ctx, first.ChatID, first.Kind); err != nil {
		log.Debug("presence signal failed", "error", err)
	}

	resolved, err := d.resolveAll(ctx, events)
	if err != nil {
		log.Error("media resolution failed, dropping bucket", "error", err)
		d.reply(ctx, log, first, noticeError)
		return
	}

	text, err := d.describer.Describe(ctx, DescribeRequest{Media: resolved})
	if err != nil {
		log.Error("describe failed after retries", "error", err)
		d.reply(ctx, log, first, noticeError)
		return
	}

	if strings.TrimSpace(text) == "" {
		log.Warn("describer returned empty text")
		d.reply(ctx, log, first, noticeEmpty)
		return
	}

	chunks := Split(text, d.chunkLimit)
	log.Info("delivering description", "length", len(text), "chunks", len(chunks))

	for i, chunk := range chunks {
		if i > 0 {
			d.sleep(ctx, d.pacing)
		}
		if err := d.delivery.SendText(ctx, first.ChatID, first.Seq, chunk); err != nil {
			// One failed send does not retract chunks already delivered;
			// there is also no point pushing the rest into the same error.
			log.Error("chunk send failed", "chunk", i+1, "error", err)
			return
		}
	}
}

// resolveAll downloads every event concurrently, one goroutine per item.
// Any single failure fails the whole bucket; partial description is never
// attempted.
func (d *Dispatcher) resolveAll(ctx context.Context, events []MediaEvent) ([]ResolvedMedia, error) {
	resolved := make([]ResolvedMedia, len(events))
	errs := make([]error, len(events))

	var wg sync.WaitGroup
	for i, ev := range events {
		wg.Add(1)
		go func(i int, ev MediaEvent) {
			defer wg.Done()
			m, err := d.resolver.Resolve(ctx, ev.FileRef, ev.Kind)
			if err != nil {
				errs[i] = &ResolutionError{Ref: ev.FileRef, Err: err}
				return
			}
			resolved[i] = m
		}(i, ev)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func (d *Dispatcher) reply(ctx context.Context, log *slog.Logger, ev MediaEvent, text string) {
	if err := d.delivery.SendText(ctx, ev.ChatID, ev.Seq, text); err != nil {
		log.Error("notice send failed", "error", err)
	}
}
