// Package notifications serves the mail-log history and the synchronous
// contact endpoint.
package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/models"
)

var contactSchema = httpapi.MustCompileSchema(`{
	"type": "object",
	"required": ["subject", "message"],
	"properties": {
		"subject": {"type": "string", "minLength": 1},
		"message": {"type": "string", "minLength": 1}
	}
}`)

// Register wires the notification routes onto an authenticated router group.
func Register(r gin.IRouter, db *gorm.DB, sender mail.Sender, supportMail string) {
	r.GET("/notifications", historyHandler(db))
	r.POST("/contact", httpapi.ValidateBody(contactSchema), contactHandler(db, sender, supportMail))
}

func historyHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.MustUserID(c)

		var list []models.Notification
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(50).
			Find(&list).Error
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"notifications": list})
	}
}

// contactHandler is the one mail path whose failure reaches the caller: the
// message is sent synchronously and a 500 is returned when SMTP fails. The
// attempt is logged to the audit trail either way.
func contactHandler(db *gorm.DB, sender mail.Sender, supportMail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Subject string `json:"subject"`
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		userID := auth.MustUserID(c)
		sendErr := sender.Send(supportMail, req.Subject, req.Message)

		entry := models.Notification{
			To:      supportMail,
			Subject: req.Subject,
			Type:    models.MailTypeOther,
			Status:  models.MailStatusSent,
			UserID:  &userID,
		}
		if sendErr != nil {
			entry.Status = models.MailStatusFailed
			entry.ErrorMessage = sendErr.Error()
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		if sendErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to send contact mail"})
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"message": "contact mail sent"})
	}
}
