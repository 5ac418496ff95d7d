package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/models"
)

// Publisher is the slice of the outbox the sweep needs.
type Publisher interface {
	Publish(ctx context.Context, evt mail.Event) (string, error)
}

// Sweep fires every due reminder. Rows are processed independently: a
// failure on one row is logged and the rest of the batch continues. A row
// whose mail could not even be queued keeps is_done=false and is retried on
// the next pass.
func Sweep(ctx context.Context, db *gorm.DB, pub Publisher, now time.Time) error {
	var due []models.Reminder
	err := db.WithContext(ctx).
		Preload("User").Preload("Property").
		Where("remind_at <= ? AND is_done = ?", now, false).
		Order("remind_at ASC").
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("failed to load due reminders: %w", err)
	}

	fired := 0
	for i := range due {
		if err := fireOne(ctx, db, pub, &due[i], now); err != nil {
			slog.Error("Reminder sweep: row failed", "reminder_id", due[i].ID, "error", err.Error())
			continue
		}
		fired++
	}

	if len(due) > 0 {
		slog.Info("Reminder sweep completed", "due", len(due), "fired", fired)
	}
	return nil
}

func fireOne(ctx context.Context, db *gorm.DB, pub Publisher, r *models.Reminder, now time.Time) error {
	// A contract-end reminder for a contract that has meanwhile ended is
	// pointless; retire it without sending.
	if r.Type == models.ReminderTypeContractEnd && r.Property != nil && !r.Property.EndDate.After(now) {
		return markDone(ctx, db, r, now)
	}

	if _, err := pub.Publish(ctx, mail.Event{
		Type:       models.MailTypeReminder,
		To:         r.User.Mail,
		Subject:    "Reminder: " + r.Message,
		Body:       r.Message,
		UserID:     &r.UserID,
		PropertyID: r.PropertyID,
	}); err != nil {
		return err
	}

	if r.Type != models.ReminderTypeMonthlyPayment {
		return markDone(ctx, db, r, now)
	}

	// Recurring payment reminder: advance the same row to the next
	// occurrence of its rule, anchored at the fired remind_at. The chain
	// ends once the property's rental period is over at fire time (or the
	// property is gone), so the last occurrence before the end still fires
	// but schedules nothing further.
	if r.Property == nil || r.DayOfMonth == nil || !r.Property.EndDate.After(now) {
		return markDone(ctx, db, r, now)
	}

	return db.WithContext(ctx).Model(r).Updates(map[string]interface{}{
		"remind_at":     NextOccurrence(r.RemindAt, *r.DayOfMonth),
		"last_fired_at": now,
	}).Error
}

func markDone(ctx context.Context, db *gorm.DB, r *models.Reminder, now time.Time) error {
	return db.WithContext(ctx).Model(r).Updates(map[string]interface{}{
		"is_done":       true,
		"last_fired_at": now,
	}).Error
}
