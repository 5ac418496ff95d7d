package assignments

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/models"
)

var createSchema = httpapi.MustCompileSchema(`{
	"type": "object",
	"required": ["propertyId", "targetMail", "role"],
	"properties": {
		"propertyId": {"type": "integer", "minimum": 1},
		"targetMail": {"type": "string", "format": "email"},
		"role": {"type": "string", "enum": ["owner", "realtor"]}
	}
}`)

// ValidateCreate checks the invite request body against its schema.
func ValidateCreate() gin.HandlerFunc { return httpapi.ValidateBody(createSchema) }

type createRequest struct {
	PropertyID uint   `json:"propertyId"`
	TargetMail string `json:"targetMail"`
	Role       string `json:"role"`
}

// CreateHandler handles POST /api/assignments
func CreateHandler(db *gorm.DB, pub *mail.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		assignment, err := Create(c.Request.Context(), db, pub, CreateInput{
			PropertyID: req.PropertyID,
			FromUserID: auth.MustUserID(c),
			TargetMail: req.TargetMail,
			Role:       req.Role,
		})
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusCreated, gin.H{"assignment": assignment})
	}
}

// AcceptHandler handles PUT /api/assignments/:id/accept
func AcceptHandler(db *gorm.DB, pub *mail.Publisher) gin.HandlerFunc {
	return decisionHandler(db, pub, Accept)
}

// RejectHandler handles PUT /api/assignments/:id/reject
func RejectHandler(db *gorm.DB, pub *mail.Publisher) gin.HandlerFunc {
	return decisionHandler(db, pub, Reject)
}

func decisionHandler(db *gorm.DB, pub *mail.Publisher, decide decisionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid assignment id")
			return
		}

		assignment, err := decide(c.Request.Context(), db, pub, uint(id), auth.MustUserID(c))
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"assignment": assignment})
	}
}

type decisionFunc func(ctx context.Context, db *gorm.DB, pub *mail.Publisher, assignmentID, callerID uint) (*models.Assignment, error)

// ListPendingHandler handles GET /api/assignments/pending
func ListPendingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := ListPending(c.Request.Context(), db, auth.MustUserID(c))
		if err != nil {
			httpapi.Error(c, err)
			return
		}
		httpapi.Success(c, http.StatusOK, gin.H{"assignments": list})
	}
}

// ListSentHandler handles GET /api/assignments/sent
func ListSentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := ListSent(c.Request.Context(), db, auth.MustUserID(c))
		if err != nil {
			httpapi.Error(c, err)
			return
		}
		httpapi.Success(c, http.StatusOK, gin.H{"assignments": list})
	}
}
