package models

import (
	"time"

	"gorm.io/gorm"
)

// Reminder type constants
const (
	ReminderTypeManual         = "manual"
	ReminderTypeMonthlyPayment = "monthlyPayment"
	ReminderTypeContractEnd    = "contractEnd"
)

// Reminder is a scheduled notification. Monthly-payment reminders carry an
// explicit recurrence rule (DayOfMonth anchor): the sweep advances RemindAt
// to the next occurrence on the same row instead of inserting successors,
// and marks the row done once the linked property's rental period is over
// at fire time.
type Reminder struct {
	gorm.Model
	UserID     uint      `gorm:"not null;index"`
	User       User      `gorm:"foreignKey:UserID"`
	PropertyID *uint     `gorm:"index"`
	Property   *Property `gorm:"foreignKey:PropertyID"`

	Type     string    `gorm:"not null;default:'manual'"`
	Message  string    `gorm:"not null"`
	RemindAt time.Time `gorm:"not null;index"`
	IsDone   bool      `gorm:"not null;default:false;index"`

	DayOfMonth      *int // monthlyPayment recurrence anchor, 1..31
	MonthsBeforeEnd *int // contractEnd offset, 1..24
	LastFiredAt     *time.Time
}
