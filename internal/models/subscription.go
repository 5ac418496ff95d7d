package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription status constants
const (
	SubscriptionStatusPending   = "PENDING"
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusExpired   = "EXPIRED"
	SubscriptionStatusCancelled = "CANCELLED"
)

// Subscription is one paid period for a user. The ACTIVE row with the
// furthest EndDate is authoritative; renewals chain from the prior EndDate
// so no paid time is lost.
type Subscription struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"foreignKey:UserID"`
	PlanType  string    `gorm:"not null"`
	Status    string    `gorm:"not null;default:'PENDING';index"`
	StartDate time.Time
	EndDate   time.Time `gorm:"index"`
	Price     int       `gorm:"not null"`

	// Checkout token issued by the payment gateway; the callback resolves
	// the PENDING row through it.
	GatewayReference string `gorm:"uniqueIndex;not null"`
}
