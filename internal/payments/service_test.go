package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ekaramel/rentdesk/internal/models"
	"github.com/ekaramel/rentdesk/internal/plans"
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

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Subscription{}))
	return db
}

func setupRegistry(t *testing.T) *plans.Registry {
	t.Helper()
	reg, err := plans.Load()
	require.NoError(t, err)
	return reg
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Name: "Deniz", Mail: "deniz@test.local", PasswordHash: "x", Role: models.RoleRealtor, IsVerified: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestInitializeRecordsPendingSubscription(t *testing.T) {
	db := setupDB(t)
	reg := setupRegistry(t)
	gw := NewGateway("", "", "", true)
	user := seedUser(t, db)
	ctx := context.Background()

	session, err := Initialize(ctx, db, gw, reg, user.ID, "monthly", "https://app.local/callback")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.NotEmpty(t, session.PaymentPageURL)

	var sub models.Subscription
	require.NoError(t, db.Where("gateway_reference = ?", session.Token).First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, "monthly", sub.PlanType)
	assert.Equal(t, user.ID, sub.UserID)

	_, err = Initialize(ctx, db, gw, reg, user.ID, "lifetime", "https://app.local/callback")
	assert.Error(t, err, "unknown plan must be rejected before any checkout")
}

func TestCallbackActivatesSubscription(t *testing.T) {
	db := setupDB(t)
	reg := setupRegistry(t)
	gw := NewGateway("", "", "", true)
	user := seedUser(t, db)
	ctx := context.Background()

	session, err := Initialize(ctx, db, gw, reg, user.ID, "monthly", "cb")
	require.NoError(t, err)

	now := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	sub, err := HandleCallback(ctx, db, reg, session.Token, true, now)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.StartDate.Equal(now))
	assert.True(t, sub.EndDate.Equal(now.AddDate(0, 1, 0)))

	// the token is consumed: a replayed callback finds no pending row
	_, err = HandleCallback(ctx, db, reg, session.Token, true, now)
	assert.Error(t, err)
}

func TestCallbackRenewalChainsFromActiveEnd(t *testing.T) {
	db := setupDB(t)
	reg := setupRegistry(t)
	gw := NewGateway("", "", "", true)
	user := seedUser(t, db)
	ctx := context.Background()

	current := models.Subscription{
		UserID:           user.ID,
		PlanType:         "monthly",
		Status:           models.SubscriptionStatusActive,
		Price:            249,
		StartDate:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		GatewayReference: "prev-token",
	}
	require.NoError(t, db.Create(&current).Error)

	session, err := Initialize(ctx, db, gw, reg, user.ID, "monthly", "cb")
	require.NoError(t, err)

	// renewing mid-period starts the new period at the old end date
	now := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	sub, err := HandleCallback(ctx, db, reg, session.Token, true, now)
	require.NoError(t, err)
	assert.True(t, sub.StartDate.Equal(current.EndDate))
	assert.True(t, sub.EndDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCallbackNotPaidCancels(t *testing.T) {
	db := setupDB(t)
	reg := setupRegistry(t)
	gw := NewGateway("", "", "", true)
	user := seedUser(t, db)
	ctx := context.Background()

	session, err := Initialize(ctx, db, gw, reg, user.ID, "annual", "cb")
	require.NoError(t, err)

	sub, err := HandleCallback(ctx, db, reg, session.Token, false, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, sub.Status)

	active, err := HasActive(ctx, db, user.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestStatusReturnsFurthestActive(t *testing.T) {
	db := setupDB(t)
	user := seedUser(t, db)
	ctx := context.Background()
	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	short := models.Subscription{
		UserID: user.ID, PlanType: "monthly", Status: models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 0, 10),
		GatewayReference: "t1",
	}
	long := models.Subscription{
		UserID: user.ID, PlanType: "monthly", Status: models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, 0, 10), EndDate: now.AddDate(0, 1, 10),
		GatewayReference: "t2",
	}
	require.NoError(t, db.Create(&short).Error)
	require.NoError(t, db.Create(&long).Error)

	sub, err := Status(ctx, db, user.ID, now)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, long.ID, sub.ID)
}

func TestStatusIgnoresLapsedActiveRow(t *testing.T) {
	db := setupDB(t)
	user := seedUser(t, db)
	ctx := context.Background()
	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	stale := models.Subscription{
		UserID: user.ID, PlanType: "monthly", Status: models.SubscriptionStatusActive,
		StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, -1, 0),
		GatewayReference: "t1",
	}
	require.NoError(t, db.Create(&stale).Error)

	// the sweep has not demoted the row yet, but it must not count
	sub, err := Status(ctx, db, user.ID, now)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestExpireSweep(t *testing.T) {
	db := setupDB(t)
	user := seedUser(t, db)
	ctx := context.Background()
	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	lapsed := models.Subscription{
		UserID: user.ID, PlanType: "monthly", Status: models.SubscriptionStatusActive,
		EndDate: now.AddDate(0, 0, -1), GatewayReference: "t1",
	}
	live := models.Subscription{
		UserID: user.ID, PlanType: "monthly", Status: models.SubscriptionStatusActive,
		EndDate: now.AddDate(0, 0, 1), GatewayReference: "t2",
	}
	require.NoError(t, db.Create(&lapsed).Error)
	require.NoError(t, db.Create(&live).Error)

	require.NoError(t, ExpireSweep(ctx, db, now))

	var fresh models.Subscription
	require.NoError(t, db.First(&fresh, lapsed.ID).Error)
	assert.Equal(t, models.SubscriptionStatusExpired, fresh.Status)

	fresh = models.Subscription{}
	require.NoError(t, db.First(&fresh, live.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, fresh.Status)
}
