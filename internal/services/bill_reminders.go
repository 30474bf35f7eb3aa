package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"financas/internal/amqp"
	"financas/internal/core"
)

// ReminderPublisher is implemented by amqp.Client.
type ReminderPublisher interface {
	PublishBillReminder(ctx context.Context, msg *amqp.BillReminder) error
}

// ReminderProcessor publishes a reminder for every active unpaid bill that is
// due soon or overdue. A reminder is sent once per bill, due date and status;
// a status change (due_soon to due_tomorrow, say) sends a new one.
type ReminderProcessor struct {
	store     BillStore
	publisher ReminderPublisher
	loc       *time.Location

	mu   sync.Mutex
	sent map[string]civil.Date
}

func NewReminderProcessor(store BillStore, publisher ReminderPublisher, loc *time.Location) *ReminderProcessor {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderProcessor{
		store:     store,
		publisher: publisher,
		loc:       loc,
		sent:      make(map[string]civil.Date),
	}
}

// ProcessReminders resolves today's bill statuses and publishes the pending
// reminders. It returns how many were published. Publish failures are logged
// and retried on the next run.
func (p *ReminderProcessor) ProcessReminders(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.Today(now.In(p.loc))
	overview, err := LoadBillsOverview(ctx, p.store, today)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(today)

	published := 0
	var errs []error
	for _, st := range overview.Statuses {
		if !NeedsReminder(st) {
			continue
		}
		msg := amqp.NewBillReminder(st, now)
		id := msg.MessageID()
		if _, done := p.sent[id]; done {
			continue
		}

		if err := p.publisher.PublishBillReminder(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish bill reminder",
				"bill_id", st.Bill.ID,
				"name", st.Bill.Name,
				"error", err)
			errs = append(errs, err)
			continue
		}
		p.sent[id] = st.DueDate
		published++

		slog.InfoContext(ctx, "Bill reminder published",
			"bill_id", st.Bill.ID,
			"name", st.Bill.Name,
			"days_until_due", st.DaysUntilDue,
			"severity", st.Severity)
	}

	slog.InfoContext(ctx, "Bill reminder processing complete",
		"published", published,
		"total_checked", len(overview.Statuses),
		"date", today.String())

	if len(errs) > 0 && published == 0 {
		return 0, fmt.Errorf("publish reminders: %w", errors.Join(errs...))
	}
	return published, nil
}

// prune drops remembered reminders whose due date is gone.
func (p *ReminderProcessor) prune(today civil.Date) {
	for id, due := range p.sent {
		if due.Before(today) {
			delete(p.sent, id)
		}
	}
}
