// Package stats serves the dashboard counters.
package stats

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/models"
)

// Register wires the stats route onto an authenticated router group.
func Register(r gin.IRouter, db *gorm.DB) {
	r.GET("/stats", handler(db))
}

func handler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.MustUserID(c)
		ctx := c.Request.Context()

		var properties, pendingReceived, pendingSent, upcomingReminders int64

		if err := db.WithContext(ctx).Model(&models.Property{}).
			Where("realtor_id = ? OR owner_id = ?", userID, userID).
			Count(&properties).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		if err := db.WithContext(ctx).Model(&models.Assignment{}).
			Where("to_user_id = ? AND status = ?", userID, models.AssignmentStatusPending).
			Count(&pendingReceived).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		if err := db.WithContext(ctx).Model(&models.Assignment{}).
			Where("from_user_id = ? AND status = ?", userID, models.AssignmentStatusPending).
			Count(&pendingSent).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		now := time.Now()
		if err := db.WithContext(ctx).Model(&models.Reminder{}).
			Where("user_id = ? AND is_done = ? AND remind_at BETWEEN ? AND ?",
				userID, false, now, now.AddDate(0, 0, 30)).
			Count(&upcomingReminders).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{
			"properties":        properties,
			"pendingReceived":   pendingReceived,
			"pendingSent":       pendingSent,
			"upcomingReminders": upcomingReminders,
		})
	}
}
