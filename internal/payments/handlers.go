package payments

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/config"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/plans"
)

var (
	subscribeSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["planType"],
		"properties": {
			"planType": {"type": "string", "minLength": 1}
		}
	}`)
	callbackSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["token", "status"],
		"properties": {
			"token": {"type": "string", "minLength": 1},
			"status": {"type": "string", "enum": ["success", "failure"]}
		}
	}`)
)

// Register wires the payment routes. Subscribe and status require auth; the
// callback is gateway-initiated and authenticated by the shared callback key.
func Register(authed, public gin.IRouter, db *gorm.DB, gw *Gateway, reg *plans.Registry, cfg *config.Config) {
	authed.POST("/payment/subscribe", httpapi.ValidateBody(subscribeSchema), subscribeHandler(db, gw, reg, cfg))
	authed.GET("/payment/status", statusHandler(db))
	public.GET("/payment/plans", plansHandler(reg))
	public.POST("/payment/callback", httpapi.ValidateBody(callbackSchema), callbackHandler(db, reg, cfg))
}

func subscribeHandler(db *gorm.DB, gw *Gateway, reg *plans.Registry, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PlanType string `json:"planType"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		session, err := Initialize(c.Request.Context(), db, gw, reg,
			auth.MustUserID(c), req.PlanType, cfg.BaseURL+"/api/payment/callback")
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusCreated, gin.H{
			"token":          session.Token,
			"paymentPageUrl": session.PaymentPageURL,
		})
	}
}

func statusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := Status(c.Request.Context(), db, auth.MustUserID(c), time.Now())
		if err != nil {
			httpapi.Error(c, err)
			return
		}
		if sub == nil {
			httpapi.Success(c, http.StatusOK, gin.H{"active": false})
			return
		}
		httpapi.Success(c, http.StatusOK, gin.H{"active": true, "subscription": sub})
	}
}

func plansHandler(reg *plans.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		httpapi.Success(c, http.StatusOK, gin.H{"plans": reg.List()})
	}
}

func callbackHandler(db *gorm.DB, reg *plans.Registry, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.PaymentCallbackKey != "" && c.GetHeader("X-Callback-Key") != cfg.PaymentCallbackKey {
			httpapi.Fail(c, http.StatusUnauthorized, "invalid callback key")
			return
		}

		var req struct {
			Token  string `json:"token"`
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		sub, err := HandleCallback(c.Request.Context(), db, reg, req.Token, req.Status == "success", time.Now())
		if err != nil {
			httpapi.Error(c, err)
			return
		}

		httpapi.Success(c, http.StatusOK, gin.H{"subscription": sub})
	}
}
