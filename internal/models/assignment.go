package models

import "gorm.io/gorm"

// Assignment status constants
const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusAccepted  = "accepted"
	AssignmentStatusRejected  = "rejected"
	AssignmentStatusCancelled = "cancelled"
)

// Assignment is a request to link ToUser to a property in the given role.
// At most one pending assignment may exist per (property, role); the status
// never leaves a terminal state.
type Assignment struct {
	gorm.Model
	PropertyID uint     `gorm:"not null;index"`
	Property   Property `gorm:"foreignKey:PropertyID"`
	FromUserID uint     `gorm:"not null;index"`
	FromUser   User     `gorm:"foreignKey:FromUserID"`
	ToUserID   uint     `gorm:"not null;index"`
	ToUser     User     `gorm:"foreignKey:ToUserID"`
	Role       string   `gorm:"not null"` // enum: 'owner' or 'realtor'
	Status     string   `gorm:"not null;default:'pending';index"`
}
