package models

import "gorm.io/gorm"

// Notification (mail log) type constants
const (
	MailTypeInvite   = "invite"
	MailTypeAccept   = "accept"
	MailTypeReject   = "reject"
	MailTypeVerify   = "verify"
	MailTypeReset    = "reset"
	MailTypeReminder = "reminder"
	MailTypeOther    = "other"
)

// Notification delivery status constants
const (
	MailStatusSent   = "sent"
	MailStatusFailed = "failed"
)

// Notification is the append-only mail audit log. Rows are written by the
// outbox consumer for every delivery attempt, success or not, and are only
// read back for the user-facing notification history.
type Notification struct {
	gorm.Model
	To           string `gorm:"not null"`
	Subject      string `gorm:"not null"`
	Type         string `gorm:"not null;default:'other'"`
	Status       string `gorm:"not null"`
	UserID       *uint  `gorm:"index"`
	PropertyID   *uint
	ErrorMessage string `gorm:"type:text"`
}
