// Package properties implements listing CRUD, the contract file attachment,
// notes, and the free-tier listing quota.
package properties

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/assignments"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/models"
	"github.com/ekaramel/rentdesk/internal/payments"
)

// FreeListingLimit is the number of listings a realtor without an active
// subscription may hold.
const FreeListingLimit = 3

// ValidateDates enforces the listing date invariant.
func ValidateDates(rentDate, endDate time.Time) error {
	if !endDate.After(rentDate) {
		return httpapi.BadRequest("endDate must be after rentDate")
	}
	return nil
}

// CheckListingQuota rejects a new listing when the realtor is at the free
// cap and holds no active subscription.
func CheckListingQuota(ctx context.Context, db *gorm.DB, realtorID uint, now time.Time) error {
	active, err := payments.HasActive(ctx, db, realtorID, now)
	if err != nil {
		return err
	}
	if active {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Property{}).
		Where("realtor_id = ?", realtorID).Count(&count).Error; err != nil {
		return err
	}
	if count >= FreeListingLimit {
		return httpapi.Forbidden("listing limit reached, upgrade your plan for unlimited listings")
	}
	return nil
}

// LoadAuthorized loads a property and checks the caller is a linked party
// (the realtor or the accepted owner).
func LoadAuthorized(ctx context.Context, db *gorm.DB, propertyID, callerID uint) (*models.Property, error) {
	var property models.Property
	if err := db.WithContext(ctx).First(&property, propertyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("property not found")
		}
		return nil, err
	}

	if property.RealtorID != callerID && (property.OwnerID == nil || *property.OwnerID != callerID) {
		return nil, httpapi.Forbidden("you are not linked to this property")
	}
	return &property, nil
}

// Delete removes a property together with its dependents: pending
// assignments are cancelled, reminders are deleted.
func Delete(ctx context.Context, db *gorm.DB, property *models.Property) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := assignments.CancelPendingForProperty(ctx, tx, property.ID); err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", property.ID).Delete(&models.Reminder{}).Error; err != nil {
			return err
		}
		return tx.Delete(property).Error
	})
}
