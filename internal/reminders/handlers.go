package reminders

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/httpapi"
)

var createSchema = httpapi.MustCompileSchema(`{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string", "minLength": 1},
		"type": {"type": "string", "enum": ["manual", "monthlyPayment", "contractEnd"]},
		"propertyId": {"type": "integer", "minimum": 1},
		"remindAt": {"type": "string"},
		"dayOfMonth": {"type": "integer"},
		"monthsBeforeEnd": {"type": "integer"}
	}
}`)

// Register wires the reminder routes onto an authenticated router group.
func Register(r gin.IRouter, db *gorm.DB) {
	r.POST("/reminders", httpapi.ValidateBody(createSchema), createHandler(db))
	r.GET("/reminders/:id", listHandler(db)) // :id is the user id
	r.PUT("/reminders/:id/complete", completeHandler(db))
	r.DELETE("/reminders/:id", deleteHandler(db))
}

func createHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Type            string  `json:"type"`
			Message         string  `json:"message"`
			PropertyID      *uint   `json:"propertyId"`
			RemindAt        *string `json:"remindAt"`
			DayOfMonth      *int    `json:"dayOfMonth"`
			MonthsBeforeEnd *int    `json:"monthsBeforeEnd"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		in := CreateInput{
			UserID:          auth.MustUserID(c),
			PropertyID:      req.PropertyID,
			Type:            req.Type,
			Message:         req.Message,
			DayOfMonth:      req.DayOfMonth,
			MonthsBeforeEnd: req.MonthsBeforeEnd,
		}
		if req.RemindAt != nil {
			parsed, err := time.Parse(time.RFC3339, *req.RemindAt)
			if err != nil {
				httpapi.Fail(c, http.StatusBadRequest, "remindAt must be an RFC3339 timestamp")
				return
			}
			in.RemindAt = &parsed
		}

		reminder, err := Create(c.Request.Context(), db, in, time.Now())
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusCreated, gin.H{"reminder": reminder})
	}
}

func listHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		requested, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid user id")
			return
		}
		// Reminders are private: the path user must be the caller.
		if uint(requested) != auth.MustUserID(c) {
			httpapi.Fail(c, http.StatusForbidden, "cannot list another user's reminders")
			return
		}

		list, err := ListForUser(c.Request.Context(), db, uint(requested))
		if err != nil {
			httpapi.Error(c, err)
			return
		}
		httpapi.Success(c, http.StatusOK, gin.H{"reminders": list})
	}
}

func completeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid reminder id")
			return
		}

		if err := Complete(c.Request.Context(), db, uint(id), auth.MustUserID(c)); err != nil {
			httpapi.Error(c, err)
			return
		}
		httpapi.Success(c, http.StatusOK, gin.H{"message": "reminder completed"})
	}
}

func deleteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid reminder id")
			return
		}

		if err := Remove(c.Request.Context(), db, uint(id), auth.MustUserID(c)); err != nil {
			httpapi.Error(c, err)
			return
		}
		httpapi.Success(c, http.StatusOK, gin.H{"message": "reminder deleted"})
	}
}
