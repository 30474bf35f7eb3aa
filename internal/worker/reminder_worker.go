package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/services"
	"financas/internal/sheets"
)

// Config holds configuration for the reminder worker.
type Config struct {
	// Interval is how often bills are checked (default: 1h)
	Interval time.Duration
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() Config {
	return Config{Interval: time.Hour}
}

// ReminderProcessor is implemented by services.ReminderProcessor.
type ReminderProcessor interface {
	ProcessReminders(ctx context.Context, now time.Time) (int, error)
}

// ReminderWorker periodically publishes bill reminders and, when an exporter
// is set, refreshes the monthly summary sheet.
type ReminderWorker struct {
	processor ReminderProcessor
	txs       services.TransactionStore
	exporter  sheets.SummaryWriter
	config    Config
	now       func() time.Time
	loc       *time.Location

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReminderWorker creates a worker. exporter may be nil.
func NewReminderWorker(processor ReminderProcessor, txs services.TransactionStore, exporter sheets.SummaryWriter, config Config, loc *time.Location) *ReminderWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if loc == nil {
		loc = time.Local
	}
	return &ReminderWorker{
		processor: processor,
		txs:       txs,
		exporter:  exporter,
		config:    config,
		now:       time.Now,
		loc:       loc,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reminder worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Reminder worker started",
		"interval", w.config.Interval,
		"sheets_export", w.exporter != nil)
	return nil
}

// Stop signals the loop and waits for the current run to finish. Only the
// first of several concurrent calls waits; the others return at once.
func (w *ReminderWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stop, done := w.stopCh, w.doneCh
	w.running = false
	w.stopCh = nil
	w.mu.Unlock()

	close(stop)

	select {
	case <-done:
		slog.InfoContext(ctx, "Reminder worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder worker stop timed out")
		return ctx.Err()
	}
	return nil
}

func (w *ReminderWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ReminderWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	w.RunOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reminder pass followed by the optional export.
// Failures are logged; the next tick retries.
func (w *ReminderWorker) RunOnce(ctx context.Context) {
	now := w.now()
	count, err := w.processor.ProcessReminders(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Reminder processing failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Reminder processing complete",
			"published", count,
			"next_check", now.Add(w.config.Interval).Format("15:04:05"))
	}

	if w.exporter == nil {
		return
	}
	if _, err := w.ExportSummary(ctx); err != nil {
		slog.ErrorContext(ctx, "Summary export failed", "error", err)
	}
}

// ExportSummary writes the all-time monthly income and expense rows to the
// summary sheet and returns the written range.
func (w *ReminderWorker) ExportSummary(ctx context.Context) (string, error) {
	if w.exporter == nil || w.txs == nil {
		return "", fmt.Errorf("summary export not configured")
	}
	txs, err := w.txs.ListTransactions(ctx, core.AllTime())
	if err != nil {
		return "", fmt.Errorf("load transactions: %w", err)
	}
	today := core.Today(w.now().In(w.loc))
	sum := services.AggregateDashboard(txs, core.AllTime(), today)

	ref, err := w.exporter.WriteMonthlySummary(ctx, sum.ByMonth)
	if err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return ref, nil
}
