package extract

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/payments"
)

var extractSchema = httpapi.MustCompileSchema(`{
	"type": "object",
	"required": ["contractText"],
	"properties": {
		"contractText": {"type": "string", "minLength": 1}
	}
}`)

// Register wires the extraction route onto an authenticated router group.
func Register(r gin.IRouter, db *gorm.DB, client *Client) {
	r.POST("/ai/extract-property", httpapi.ValidateBody(extractSchema), handler(db, client))
}

func handler(db *gorm.DB, client *Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := payments.HasActive(c.Request.Context(), db, auth.MustUserID(c), time.Now())
		if err != nil {
			httpapi.Error(c, err)
			return
		}
		if !active {
			httpapi.Fail(c, http.StatusForbidden, "contract extraction requires an active subscription")
			return
		}

		var req struct {
			ContractText string `json:"contractText"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := client.ExtractProperty(c.Request.Context(), req.ContractText)
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"property": result})
	}
}
