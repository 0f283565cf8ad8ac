package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dolor/internal/amqp"
	"dolor/internal/core"
	"dolor/internal/sheets"
)

// SummarySource computes the current monthly summary.
type SummarySource interface {
	MonthlySummary(ctx context.Context) ([]core.MonthBucket, error)
}

// SummaryWorker keeps the exported monthly summary in step with the expenses
// collection, driven by record events and a periodic refresh.
type SummaryWorker struct {
	source   SummarySource
	writer   sheets.SummaryWriter
	interval time.Duration

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSummaryWorker(source SummarySource, writer sheets.SummaryWriter, interval time.Duration) *SummaryWorker {
	return &SummaryWorker{
		source:   source,
		writer:   writer,
		interval: interval,
	}
}

// HandleRecordEvent refreshes the summary when expenses change and ignores
// events for other collections. A returned error makes the consumer requeue.
func (w *SummaryWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	if ev.Collection != core.CollectionExpenses {
		slog.DebugContext(ctx, "Ignoring record event",
			"collection", ev.Collection,
			"op", ev.Op)
		return nil
	}

	slog.InfoContext(ctx, "Processing expense event",
		"op", ev.Op,
		"count", len(ev.IDs),
		"timestamp", ev.Timestamp)

	_, err := w.Refresh(ctx)
	return err
}

// Refresh recomputes the summary and writes it, returning the writer's reference.
func (w *SummaryWorker) Refresh(ctx context.Context) (string, error) {
	buckets, err := w.source.MonthlySummary(ctx)
	if err != nil {
		return "", fmt.Errorf("compute summary: %w", err)
	}
	ref, err := w.writer.WriteMonthlySummary(ctx, buckets)
	if err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	slog.InfoContext(ctx, "Monthly summary refreshed", "ref", ref)
	return ref, nil
}

// Start runs Refresh immediately and then every interval until Stop or ctx
// cancellation. A zero interval disables the periodic refresh.
func (w *SummaryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("summary worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Summary worker started", "interval", w.interval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (w *SummaryWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Summary worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Summary worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the periodic loop is active
func (w *SummaryWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SummaryWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	w.refreshLogged(ctx)

	if w.interval <= 0 {
		select {
		case <-w.stopCh:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshLogged(ctx)
		}
	}
}

func (w *SummaryWorker) refreshLogged(ctx context.Context) {
	if _, err := w.Refresh(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic summary refresh failed", "error", err)
	}
}
