package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property represents a rental listing. The realtor link is set at creation;
// the owner link is only ever written by an accepted assignment.
type Property struct {
	gorm.Model
	RentPrice  int       `gorm:"not null"`
	RentDate   time.Time `gorm:"not null"`
	EndDate    time.Time `gorm:"not null"` // invariant: EndDate > RentDate
	Location   string    `gorm:"not null"`
	TenantName string

	RealtorID uint  `gorm:"not null;index"`
	Realtor   User  `gorm:"foreignKey:RealtorID"`
	OwnerID   *uint `gorm:"index"`
	Owner     *User `gorm:"foreignKey:OwnerID"`

	ContractFile string
	Notes        datatypes.JSON `gorm:"type:jsonb"`
}
