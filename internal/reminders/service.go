// Package reminders implements scheduled notifications: one-off reminders,
// monthly payment reminders carrying an explicit recurrence rule, and
// contract-end reminders computed from the property's end date.
package reminders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/models"
)

// fireHour is the local hour at which computed reminders fire.
const fireHour = 9

// CreateInput describes a reminder creation request.
type CreateInput struct {
	UserID          uint
	PropertyID      *uint
	Type            string
	Message         string
	RemindAt        *time.Time
	DayOfMonth      *int
	MonthsBeforeEnd *int
}

// Create validates the request per reminder type and persists the row.
func Create(ctx context.Context, db *gorm.DB, in CreateInput, now time.Time) (*models.Reminder, error) {
	if in.Message == "" {
		return nil, httpapi.BadRequest("message is required")
	}
	if in.Type == "" {
		in.Type = models.ReminderTypeManual
	}

	reminder := models.Reminder{
		UserID:     in.UserID,
		PropertyID: in.PropertyID,
		Type:       in.Type,
		Message:    in.Message,
	}

	switch in.Type {
	case models.ReminderTypeManual:
		if in.RemindAt == nil {
			return nil, httpapi.BadRequest("remindAt is required")
		}
		if !in.RemindAt.After(now) {
			return nil, httpapi.BadRequest("remindAt must be in the future")
		}
		reminder.RemindAt = *in.RemindAt

	case models.ReminderTypeMonthlyPayment:
		if in.DayOfMonth == nil || *in.DayOfMonth < 1 || *in.DayOfMonth > 31 {
			return nil, httpapi.BadRequest("dayOfMonth must be between 1 and 31")
		}
		property, err := loadLinkedProperty(ctx, db, in)
		if err != nil {
			return nil, err
		}

		first := FirstOccurrence(now, *in.DayOfMonth)
		if first.Before(property.RentDate) || first.After(property.EndDate) {
			return nil, httpapi.BadRequest("computed reminder date falls outside the rental period")
		}
		reminder.RemindAt = first
		reminder.DayOfMonth = in.DayOfMonth

	case models.ReminderTypeContractEnd:
		if in.MonthsBeforeEnd == nil || *in.MonthsBeforeEnd < 1 || *in.MonthsBeforeEnd > 24 {
			return nil, httpapi.BadRequest("monthsBeforeEnd must be between 1 and 24")
		}
		property, err := loadLinkedProperty(ctx, db, in)
		if err != nil {
			return nil, err
		}

		remindAt := atFireHour(property.EndDate.AddDate(0, -*in.MonthsBeforeEnd, 0))
		if !remindAt.Before(property.EndDate) || !property.EndDate.After(now) {
			return nil, httpapi.BadRequest("contract already over")
		}
		if !remindAt.After(now) {
			return nil, httpapi.BadRequest("computed reminder time is already in the past")
		}
		reminder.RemindAt = remindAt
		reminder.MonthsBeforeEnd = in.MonthsBeforeEnd

	default:
		return nil, httpapi.BadRequest("unknown reminder type")
	}

	if err := db.WithContext(ctx).Create(&reminder).Error; err != nil {
		return nil, err
	}
	return &reminder, nil
}

func loadLinkedProperty(ctx context.Context, db *gorm.DB, in CreateInput) (*models.Property, error) {
	if in.PropertyID == nil {
		return nil, httpapi.BadRequest("propertyId is required for this reminder type")
	}

	var property models.Property
	if err := db.WithContext(ctx).First(&property, *in.PropertyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("property not found")
		}
		return nil, err
	}
	if property.RealtorID != in.UserID && (property.OwnerID == nil || *property.OwnerID != in.UserID) {
		return nil, httpapi.Forbidden("you are not linked to this property")
	}
	return &property, nil
}

// FirstOccurrence returns the earliest firing time strictly after now on the
// given day of month.
func FirstOccurrence(now time.Time, dayOfMonth int) time.Time {
	candidate := occurrenceIn(now.Year(), now.Month(), dayOfMonth, now.Location())
	if candidate.After(now) {
		return candidate
	}
	return NextOccurrence(candidate, dayOfMonth)
}

// NextOccurrence advances a fired occurrence one month, anchored at the
// recurrence rule's day of month (not at the possibly clamped fired day, so
// a 31st-anchored rule springs back after a short month).
func NextOccurrence(fired time.Time, dayOfMonth int) time.Time {
	firstOfNext := time.Date(fired.Year(), fired.Month()+1, 1, 0, 0, 0, 0, fired.Location())
	return occurrenceIn(firstOfNext.Year(), firstOfNext.Month(), dayOfMonth, fired.Location())
}

// occurrenceIn places the occurrence in the given month, clamping the day to
// the month's length (a day-31 rule fires on Feb 28).
func occurrenceIn(year int, month time.Month, dayOfMonth int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if dayOfMonth > lastDay {
		dayOfMonth = lastDay
	}
	return time.Date(year, month, dayOfMonth, fireHour, 0, 0, 0, loc)
}

func atFireHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), fireHour, 0, 0, 0, t.Location())
}

// ListForUser returns the user's reminders, soonest first.
func ListForUser(ctx context.Context, db *gorm.DB, userID uint) ([]models.Reminder, error) {
	var list []models.Reminder
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_done ASC, remind_at ASC").
		Find(&list).Error
	return list, err
}

// Complete marks a reminder done. Completing a recurring reminder ends its
// chain.
func Complete(ctx context.Context, db *gorm.DB, reminderID, callerID uint) error {
	res := db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ? AND user_id = ?", reminderID, callerID).
		Update("is_done", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httpapi.NotFound("reminder not found")
	}
	return nil
}

// Remove deletes a reminder owned by the caller.
func Remove(ctx context.Context, db *gorm.DB, reminderID, callerID uint) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, callerID).
		Delete(&models.Reminder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httpapi.NotFound("reminder not found")
	}
	return nil
}
