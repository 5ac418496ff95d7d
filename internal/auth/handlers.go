package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/config"
	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/models"
	"github.com/ekaramel/rentdesk/internal/token"
)

const refreshCookie = "refresh_token"

var (
	signupSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["name", "surname", "mail", "password", "role"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"surname": {"type": "string", "minLength": 1},
			"mail": {"type": "string", "format": "email"},
			"password": {"type": "string", "minLength": 8},
			"role": {"type": "string", "enum": ["realtor", "owner"]}
		}
	}`)
	loginSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["mail", "password"],
		"properties": {
			"mail": {"type": "string", "format": "email"},
			"password": {"type": "string", "minLength": 1}
		}
	}`)
	mailOnlySchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["mail"],
		"properties": {
			"mail": {"type": "string", "format": "email"}
		}
	}`)
	resetSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"required": ["password"],
		"properties": {
			"password": {"type": "string", "minLength": 8}
		}
	}`)
	profileSchema = httpapi.MustCompileSchema(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"surname": {"type": "string", "minLength": 1}
		}
	}`)
)

// API bundles the collaborators the auth endpoints need.
type API struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Refresh *token.RefreshStore
	Mail    *mail.Publisher
}

// Register wires the auth routes onto the router.
func (a *API) Register(r gin.IRouter) {
	r.POST("/signup", httpapi.ValidateBody(signupSchema), a.Signup)
	r.POST("/login", httpapi.ValidateBody(loginSchema), a.Login)
	r.POST("/refresh", a.RefreshToken)
	r.POST("/logout", a.Logout)
	r.GET("/verify/:token", a.Verify)
	r.POST("/verify/resend", httpapi.ValidateBody(mailOnlySchema), a.ResendVerify)
	r.POST("/forgot-password", httpapi.ValidateBody(mailOnlySchema), a.ForgotPassword)
	r.POST("/reset-password/:token", httpapi.ValidateBody(resetSchema), a.ResetPassword)
	r.PUT("/me", RequireAuth(a.Cfg.JWTSecret), httpapi.ValidateBody(profileSchema), a.UpdateProfile)
}

// Signup creates an unverified user and mails a verification link.
func (a *API) Signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Surname  string `json:"surname"`
		Mail     string `json:"mail"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Mail = strings.ToLower(strings.TrimSpace(req.Mail))

	var existing models.User
	if err := a.DB.Where("mail = ?", req.Mail).First(&existing).Error; err == nil {
		httpapi.Fail(c, http.StatusBadRequest, "mail already registered")
		return
	}

	hash, err := token.HashPassword(req.Password)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	user := models.User{
		Name:         req.Name,
		Surname:      req.Surname,
		Mail:         req.Mail,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := a.DB.Create(&user).Error; err != nil {
		httpapi.Error(c, err)
		return
	}

	if err := a.issueVerifyMail(c, &user); err != nil {
		httpapi.Error(c, err)
		return
	}

	httpapi.Success(c, http.StatusCreated, gin.H{
		"message": "account created, check your mail to verify your address",
	})
}

// Verify handles the verification link from the signup mail.
func (a *API) Verify(c *gin.Context) {
	hashed := token.HashToken(c.Param("token"))

	var user models.User
	err := a.DB.Where("verify_token_hash = ? AND verify_expires_at > ?", hashed, time.Now()).First(&user).Error
	if err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid or expired verification link")
		return
	}

	updates := map[string]interface{}{
		"is_verified":       true,
		"verify_token_hash": "",
		"verify_expires_at": nil,
	}
	if err := a.DB.Model(&user).Updates(updates).Error; err != nil {
		httpapi.Error(c, err)
		return
	}

	httpapi.Success(c, http.StatusOK, gin.H{"message": "mail address verified, you can log in now"})
}

// ResendVerify issues a fresh verification mail for an unverified account.
// Responds success either way so the endpoint cannot be used to probe mails.
func (a *API) ResendVerify(c *gin.Context) {
	var req struct {
		Mail string `json:"mail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	err := a.DB.Where("mail = ? AND is_verified = ?", strings.ToLower(strings.TrimSpace(req.Mail)), false).First(&user).Error
	if err == nil {
		if err := a.issueVerifyMail(c, &user); err != nil {
			httpapi.Error(c, err)
			return
		}
	}

	httpapi.Success(c, http.StatusOK, gin.H{"message": "if the account exists, a verification mail was sent"})
}

// Login checks credentials and returns an access token plus a refresh cookie.
func (a *API) Login(c *gin.Context) {
	var req struct {
		Mail     string `json:"mail"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	err := a.DB.Where("mail = ?", strings.ToLower(strings.TrimSpace(req.Mail))).First(&user).Error
	if err != nil || !token.CheckPassword(user.PasswordHash, req.Password) {
		httpapi.Fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsVerified {
		httpapi.Fail(c, http.StatusForbidden, "mail address not verified, request a new verification mail")
		return
	}

	access, err := token.IssueAccessToken(a.Cfg.JWTSecret, user.ID, user.Role, a.Cfg.AccessTokenTTL)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	refresh, err := a.Refresh.Create(c.Request.Context(), user.ID)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	now := time.Now()
	a.DB.Model(&user).Update("last_login_at", now)

	a.setRefreshCookie(c, refresh)
	httpapi.Success(c, http.StatusOK, gin.H{
		"accessToken": access,
		"user": gin.H{
			"id":      user.ID,
			"name":    user.Name,
			"surname": user.Surname,
			"mail":    user.Mail,
			"role":    user.Role,
		},
	})
}

// RefreshToken rotates the refresh cookie and issues a new access token.
func (a *API) RefreshToken(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		httpapi.Fail(c, http.StatusUnauthorized, "missing refresh token")
		return
	}

	userID, next, err := a.Refresh.Rotate(c.Request.Context(), raw)
	if err != nil {
		a.clearRefreshCookie(c)
		httpapi.Fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		a.clearRefreshCookie(c)
		httpapi.Fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	access, err := token.IssueAccessToken(a.Cfg.JWTSecret, user.ID, user.Role, a.Cfg.AccessTokenTTL)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	a.setRefreshCookie(c, next)
	httpapi.Success(c, http.StatusOK, gin.H{"accessToken": access})
}

// Logout revokes the refresh token and clears the cookie.
func (a *API) Logout(c *gin.Context) {
	if raw, err := c.Cookie(refreshCookie); err == nil && raw != "" {
		_ = a.Refresh.Delete(c.Request.Context(), raw)
	}
	a.clearRefreshCookie(c)
	httpapi.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// ForgotPassword mails a reset link. Responds success regardless of whether
// the account exists.
func (a *API) ForgotPassword(c *gin.Context) {
	var req struct {
		Mail string `json:"mail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	err := a.DB.Where("mail = ?", strings.ToLower(strings.TrimSpace(req.Mail))).First(&user).Error
	if err == nil {
		raw, tokenErr := token.NewRandomToken()
		if tokenErr != nil {
			httpapi.Error(c, tokenErr)
			return
		}
		expires := time.Now().Add(1 * time.Hour)
		updates := map[string]interface{}{
			"reset_token_hash": token.HashToken(raw),
			"reset_expires_at": expires,
		}
		if err := a.DB.Model(&user).Updates(updates).Error; err != nil {
			httpapi.Error(c, err)
			return
		}

		a.Mail.PublishBestEffort(c.Request.Context(), mail.Event{
			Type:    models.MailTypeReset,
			To:      user.Mail,
			Subject: "Reset your password",
			Body: fmt.Sprintf("Use the link below within one hour to choose a new password:\n\n%s/reset-password/%s",
				a.Cfg.BaseURL, raw),
			UserID: &user.ID,
		})
	}

	httpapi.Success(c, http.StatusOK, gin.H{"message": "if the account exists, a reset mail was sent"})
}

// ResetPassword sets a new password via a valid reset token.
func (a *API) ResetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	hashed := token.HashToken(c.Param("token"))
	var user models.User
	err := a.DB.Where("reset_token_hash = ? AND reset_expires_at > ?", hashed, time.Now()).First(&user).Error
	if err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid or expired reset link")
		return
	}

	passwordHash, err := token.HashPassword(req.Password)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	updates := map[string]interface{}{
		"password_hash":    passwordHash,
		"reset_token_hash": "",
		"reset_expires_at": nil,
	}
	if err := a.DB.Model(&user).Updates(updates).Error; err != nil {
		httpapi.Error(c, err)
		return
	}

	httpapi.Success(c, http.StatusOK, gin.H{"message": "password updated, log in with your new password"})
}

// UpdateProfile edits the caller's name fields.
func (a *API) UpdateProfile(c *gin.Context) {
	var req struct {
		Name    *string `json:"name"`
		Surname *string `json:"surname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Surname != nil {
		updates["surname"] = *req.Surname
	}
	if len(updates) == 0 {
		httpapi.Fail(c, http.StatusBadRequest, "nothing to update")
		return
	}

	if err := a.DB.Model(&models.User{}).Where("id = ?", MustUserID(c)).Updates(updates).Error; err != nil {
		httpapi.Error(c, err)
		return
	}

	httpapi.Success(c, http.StatusOK, gin.H{"message": "profile updated"})
}

func (a *API) issueVerifyMail(c *gin.Context, user *models.User) error {
	raw, err := token.NewRandomToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(24 * time.Hour)
	updates := map[string]interface{}{
		"verify_token_hash": token.HashToken(raw),
		"verify_expires_at": expires,
	}
	if err := a.DB.Model(user).Updates(updates).Error; err != nil {
		return err
	}

	a.Mail.PublishBestEffort(c.Request.Context(), mail.Event{
		Type:    models.MailTypeVerify,
		To:      user.Mail,
		Subject: "Verify your mail address",
		Body: fmt.Sprintf("Welcome! Confirm your mail address within 24 hours:\n\n%s/api/verify/%s",
			a.Cfg.BaseURL, raw),
		UserID: &user.ID,
	})
	return nil
}

func (a *API) setRefreshCookie(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, value, int(a.Cfg.RefreshTokenTTL.Seconds()), "/api", "", a.Cfg.Env == "production", true)
}

func (a *API) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, "", -1, "/api", "", a.Cfg.Env == "production", true)
}
