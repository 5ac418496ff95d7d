// Package payments implements the subscription gate: checkout, gateway
// callback, status, and the daily expiry sweep.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/models"
	"github.com/ekaramel/rentdesk/internal/plans"
)

// Initialize looks up the plan, opens a checkout session, and records a
// PENDING subscription keyed by the session token.
func Initialize(ctx context.Context, db *gorm.DB, gw *Gateway, reg *plans.Registry, userID uint, planType, callbackURL string) (*CheckoutSession, error) {
	plan, ok := reg.Get(planType)
	if !ok {
		return nil, httpapi.BadRequest("unknown plan type")
	}

	session, err := gw.CreateCheckout(ctx, userID, plan.Type, plan.Price, callbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkout session: %w", err)
	}

	sub := models.Subscription{
		UserID:           userID,
		PlanType:         plan.Type,
		Status:           models.SubscriptionStatusPending,
		Price:            plan.Price,
		GatewayReference: session.Token,
	}
	if err := db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}

	return session, nil
}

// HandleCallback resolves a PENDING subscription by its checkout token. On
// success the paid period starts at the later of now and the end of the
// user's furthest ACTIVE subscription, so back-to-back renewals never lose
// covered time.
func HandleCallback(ctx context.Context, db *gorm.DB, reg *plans.Registry, gatewayToken string, paid bool, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.WithContext(ctx).
		Where("gateway_reference = ? AND status = ?", gatewayToken, models.SubscriptionStatusPending).
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("no pending subscription for this token")
		}
		return nil, err
	}

	if !paid {
		if err := db.WithContext(ctx).Model(&sub).Update("status", models.SubscriptionStatusCancelled).Error; err != nil {
			return nil, err
		}
		sub.Status = models.SubscriptionStatusCancelled
		return &sub, nil
	}

	plan, ok := reg.Get(sub.PlanType)
	if !ok {
		return nil, fmt.Errorf("pending subscription references unknown plan %q", sub.PlanType)
	}

	start := now
	if latest, err := latestActive(ctx, db, sub.UserID); err != nil {
		return nil, err
	} else if latest != nil && latest.EndDate.After(start) {
		start = latest.EndDate
	}
	end := start.AddDate(0, plan.Months, 0)

	updates := map[string]interface{}{
		"status":     models.SubscriptionStatusActive,
		"start_date": start,
		"end_date":   end,
	}
	if err := db.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
		return nil, err
	}

	sub.Status = models.SubscriptionStatusActive
	sub.StartDate = start
	sub.EndDate = end
	return &sub, nil
}

// Status returns the user's authoritative subscription: the ACTIVE row with
// the furthest end date that has not yet passed, or nil.
func Status(ctx context.Context, db *gorm.DB, userID uint, now time.Time) (*models.Subscription, error) {
	sub, err := latestActive(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || !sub.EndDate.After(now) {
		return nil, nil
	}
	return sub, nil
}

// HasActive reports whether the user holds an unexpired ACTIVE subscription.
func HasActive(ctx context.Context, db *gorm.DB, userID uint, now time.Time) (bool, error) {
	sub, err := Status(ctx, db, userID, now)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// ExpireSweep demotes every ACTIVE subscription whose end date has passed.
func ExpireSweep(ctx context.Context, db *gorm.DB, now time.Time) error {
	res := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND end_date < ?", models.SubscriptionStatusActive, now).
		Update("status", models.SubscriptionStatusExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		slog.Info("Subscription sweep: expired subscriptions", "count", res.RowsAffected)
	}
	return nil
}

func latestActive(ctx context.Context, db *gorm.DB, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Order("end_date DESC").
		First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
