package properties

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Assignment{},
		&models.Reminder{}, &models.Notification{}, &models.Subscription{},
	))
	return db
}

func seedRealtor(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Name: "Deniz", Mail: "deniz@test.local", PasswordHash: "x", Role: models.RoleRealtor, IsVerified: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func newProperty(realtorID uint) models.Property {
	return models.Property{
		RentPrice: 6000,
		RentDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Location:  "Moda",
		RealtorID: realtorID,
	}
}

func TestValidateDates(t *testing.T) {
	rent := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDates(rent, rent.AddDate(1, 0, 0)))
	assert.Error(t, ValidateDates(rent, rent))
	assert.Error(t, ValidateDates(rent, rent.AddDate(-1, 0, 0)))
}

func TestListingQuotaFreeTier(t *testing.T) {
	db := setupDB(t)
	realtor := seedRealtor(t, db)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < FreeListingLimit; i++ {
		require.NoError(t, CheckListingQuota(ctx, db, realtor.ID, now))
		p := newProperty(realtor.ID)
		require.NoError(t, db.Create(&p).Error)
	}

	err := CheckListingQuota(ctx, db, realtor.ID, now)
	var apiErr *httpapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
}

func TestListingQuotaLiftedBySubscription(t *testing.T) {
	db := setupDB(t)
	realtor := seedRealtor(t, db)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < FreeListingLimit; i++ {
		p := newProperty(realtor.ID)
		require.NoError(t, db.Create(&p).Error)
	}

	sub := models.Subscription{
		UserID: realtor.ID, PlanType: "monthly", Status: models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 1, 0),
		GatewayReference: "t1",
	}
	require.NoError(t, db.Create(&sub).Error)

	assert.NoError(t, CheckListingQuota(ctx, db, realtor.ID, now))
}

func TestLoadAuthorized(t *testing.T) {
	db := setupDB(t)
	realtor := seedRealtor(t, db)
	ctx := context.Background()

	owner := models.User{Name: "Melis", Mail: "melis@test.local", PasswordHash: "x", Role: models.RoleOwner, IsVerified: true}
	require.NoError(t, db.Create(&owner).Error)

	p := newProperty(realtor.ID)
	p.OwnerID = &owner.ID
	require.NoError(t, db.Create(&p).Error)

	_, err := LoadAuthorized(ctx, db, p.ID, realtor.ID)
	assert.NoError(t, err)

	_, err = LoadAuthorized(ctx, db, p.ID, owner.ID)
	assert.NoError(t, err)

	_, err = LoadAuthorized(ctx, db, p.ID, owner.ID+100)
	var apiErr *httpapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)

	_, err = LoadAuthorized(ctx, db, 9999, realtor.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
}

func TestDeleteCascades(t *testing.T) {
	db := setupDB(t)
	realtor := seedRealtor(t, db)
	ctx := context.Background()

	owner := models.User{Name: "Melis", Mail: "melis@test.local", PasswordHash: "x", Role: models.RoleOwner, IsVerified: true}
	require.NoError(t, db.Create(&owner).Error)

	p := newProperty(realtor.ID)
	require.NoError(t, db.Create(&p).Error)

	pending := models.Assignment{
		PropertyID: p.ID, FromUserID: realtor.ID, ToUserID: owner.ID,
		Role: models.RoleOwner, Status: models.AssignmentStatusPending,
	}
	require.NoError(t, db.Create(&pending).Error)

	reminder := models.Reminder{
		UserID: realtor.ID, PropertyID: &p.ID,
		Type: models.ReminderTypeManual, Message: "x", RemindAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&reminder).Error)

	require.NoError(t, Delete(ctx, db, &p))

	var fresh models.Property
	assert.ErrorIs(t, db.First(&fresh, p.ID).Error, gorm.ErrRecordNotFound)

	var a models.Assignment
	require.NoError(t, db.First(&a, pending.ID).Error)
	assert.Equal(t, models.AssignmentStatusCancelled, a.Status)

	var r models.Reminder
	assert.ErrorIs(t, db.First(&r, reminder.ID).Error, gorm.ErrRecordNotFound)
}
