package assignments

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
	// a single connection keeps every session on the same in-memory DB
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Assignment{},
		&models.Reminder{}, &models.Notification{}, &models.Subscription{},
	))
	return db
}

func seedParties(t *testing.T, db *gorm.DB) (realtor, owner models.User, property models.Property) {
	t.Helper()

	realtor = models.User{Name: "Deniz", Mail: "realtor@test.local", PasswordHash: "x", Role: models.RoleRealtor, IsVerified: true}
	require.NoError(t, db.Create(&realtor).Error)

	owner = models.User{Name: "Melis", Mail: "owner@test.local", PasswordHash: "x", Role: models.RoleOwner, IsVerified: true}
	require.NoError(t, db.Create(&owner).Error)

	property = models.Property{
		RentPrice: 5000,
		RentDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Location:  "Kadıköy",
		RealtorID: realtor.ID,
	}
	require.NoError(t, db.Create(&property).Error)
	return realtor, owner, property
}

func apiCode(t *testing.T, err error) int {
	t.Helper()
	var apiErr *httpapi.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Code
}

func TestCreateAssignmentPending(t *testing.T) {
	db := setupDB(t)
	realtor, owner, property := seedParties(t, db)
	ctx := context.Background()

	a, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID,
		FromUserID: realtor.ID,
		TargetMail: "Owner@test.local",
		Role:       models.RoleOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusPending, a.Status)
	assert.Equal(t, owner.ID, a.ToUserID)

	var fresh models.Property
	require.NoError(t, db.First(&fresh, property.ID).Error)
	assert.Nil(t, fresh.OwnerID, "invite alone must not link the owner")
}

func TestCreateAssignmentDeduplicatesPending(t *testing.T) {
	db := setupDB(t)
	realtor, _, property := seedParties(t, db)
	ctx := context.Background()

	in := CreateInput{PropertyID: property.ID, FromUserID: realtor.ID, TargetMail: "owner@test.local", Role: models.RoleOwner}

	first, err := Create(ctx, db, nil, in)
	require.NoError(t, err)

	second, err := Create(ctx, db, nil, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "duplicate invite must be a no-op success")

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateAssignmentAuthorization(t *testing.T) {
	db := setupDB(t)
	_, owner, property := seedParties(t, db)
	ctx := context.Background()

	// the owner is not linked yet, so they hold no slot on the property
	_, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID,
		FromUserID: owner.ID,
		TargetMail: "owner@test.local",
		Role:       models.RoleOwner,
	})
	assert.Equal(t, http.StatusForbidden, apiCode(t, err))
}

func TestCreateAssignmentTargetChecks(t *testing.T) {
	db := setupDB(t)
	realtor, _, property := seedParties(t, db)
	ctx := context.Background()

	_, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID,
		FromUserID: realtor.ID,
		TargetMail: "ghost@test.local",
		Role:       models.RoleOwner,
	})
	assert.Equal(t, http.StatusNotFound, apiCode(t, err))

	// the realtor's own mail resolves to a user whose role is not 'owner'
	_, err = Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID,
		FromUserID: realtor.ID,
		TargetMail: "realtor@test.local",
		Role:       models.RoleOwner,
	})
	assert.Equal(t, http.StatusBadRequest, apiCode(t, err))

	_, err = Create(ctx, db, nil, CreateInput{
		PropertyID: 9999,
		FromUserID: realtor.ID,
		TargetMail: "owner@test.local",
		Role:       models.RoleOwner,
	})
	assert.Equal(t, http.StatusNotFound, apiCode(t, err))
}

func TestAcceptLinksOwnerAndIsTerminal(t *testing.T) {
	db := setupDB(t)
	realtor, owner, property := seedParties(t, db)
	ctx := context.Background()

	a, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID, FromUserID: realtor.ID,
		TargetMail: "owner@test.local", Role: models.RoleOwner,
	})
	require.NoError(t, err)

	accepted, err := Accept(ctx, db, nil, a.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusAccepted, accepted.Status)

	var fresh models.Property
	require.NoError(t, db.First(&fresh, property.ID).Error)
	require.NotNil(t, fresh.OwnerID)
	assert.Equal(t, owner.ID, *fresh.OwnerID)

	// terminal states read as not-found, same as a missing id
	_, err = Accept(ctx, db, nil, a.ID, owner.ID)
	assert.Equal(t, http.StatusNotFound, apiCode(t, err))

	_, err = Accept(ctx, db, nil, 9999, owner.ID)
	assert.Equal(t, http.StatusNotFound, apiCode(t, err))
}

func TestAcceptOnlyByInvitedUser(t *testing.T) {
	db := setupDB(t)
	realtor, _, property := seedParties(t, db)
	ctx := context.Background()

	a, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID, FromUserID: realtor.ID,
		TargetMail: "owner@test.local", Role: models.RoleOwner,
	})
	require.NoError(t, err)

	_, err = Accept(ctx, db, nil, a.ID, realtor.ID)
	assert.Equal(t, http.StatusForbidden, apiCode(t, err))
}

func TestRejectNeverTouchesProperty(t *testing.T) {
	db := setupDB(t)
	realtor, owner, property := seedParties(t, db)
	ctx := context.Background()

	a, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID, FromUserID: realtor.ID,
		TargetMail: "owner@test.local", Role: models.RoleOwner,
	})
	require.NoError(t, err)

	rejected, err := Reject(ctx, db, nil, a.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusRejected, rejected.Status)

	var fresh models.Property
	require.NoError(t, db.First(&fresh, property.ID).Error)
	assert.Nil(t, fresh.OwnerID)

	_, err = Reject(ctx, db, nil, a.ID, owner.ID)
	assert.Equal(t, http.StatusNotFound, apiCode(t, err))
}

func TestOwnerInvitesReplacementRealtor(t *testing.T) {
	db := setupDB(t)
	realtor, owner, property := seedParties(t, db)
	ctx := context.Background()

	require.NoError(t, db.Model(&property).Update("owner_id", owner.ID).Error)

	second := models.User{Name: "Ege", Mail: "realtor2@test.local", PasswordHash: "x", Role: models.RoleRealtor, IsVerified: true}
	require.NoError(t, db.Create(&second).Error)

	a, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID, FromUserID: owner.ID,
		TargetMail: "realtor2@test.local", Role: models.RoleRealtor,
	})
	require.NoError(t, err)

	_, err = Accept(ctx, db, nil, a.ID, second.ID)
	require.NoError(t, err)

	var fresh models.Property
	require.NoError(t, db.First(&fresh, property.ID).Error)
	assert.Equal(t, second.ID, fresh.RealtorID)
	_ = realtor
}

func TestCancelPendingForProperty(t *testing.T) {
	db := setupDB(t)
	realtor, _, property := seedParties(t, db)
	ctx := context.Background()

	_, err := Create(ctx, db, nil, CreateInput{
		PropertyID: property.ID, FromUserID: realtor.ID,
		TargetMail: "owner@test.local", Role: models.RoleOwner,
	})
	require.NoError(t, err)

	require.NoError(t, CancelPendingForProperty(ctx, db, property.ID))

	var cancelled int64
	require.NoError(t, db.Model(&models.Assignment{}).
		Where("property_id = ? AND status = ?", property.ID, models.AssignmentStatusCancelled).
		Count(&cancelled).Error)
	assert.EqualValues(t, 1, cancelled)
}
