package models

import (
	"time"

	"gorm.io/gorm"
)

// User role constants
const (
	RoleRealtor = "realtor"
	RoleOwner   = "owner"
)

// User represents an application user. Users are soft-deleted only;
// verify/reset tokens are stored hashed, never in the clear.
type User struct {
	gorm.Model
	Name         string `gorm:"not null;default:''"`
	Surname      string `gorm:"not null;default:''"`
	Mail         string `gorm:"uniqueIndex:idx_users_mail_not_deleted,where:deleted_at IS NULL;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null"` // enum: 'realtor' or 'owner'
	IsVerified   bool   `gorm:"not null;default:false"`

	VerifyTokenHash string `json:"-"`
	VerifyExpiresAt *time.Time
	ResetTokenHash  string `json:"-"`
	ResetExpiresAt  *time.Time

	LastLoginAt *time.Time
}
