package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaramel/rentdesk/internal/models"
	"github.com/ekaramel/rentdesk/internal/token"
)

const testSecret = "middleware-test-secret"

func newAuthedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	authed := r.Group("/", RequireAuth(testSecret))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": MustUserID(c), "role": MustRole(c)})
	})
	authed.POST("/listings", RequireRole(models.RoleRealtor), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func doGet(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newAuthedRouter()

	w := doGet(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(r, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := token.IssueAccessToken(testSecret, 1, models.RoleOwner, -time.Minute)
	require.NoError(t, err)
	w = doGet(r, "/me", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	valid, err := token.IssueAccessToken(testSecret, 1, models.RoleOwner, time.Minute)
	require.NoError(t, err)
	w = doGet(r, "/me", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":1`)
	assert.Contains(t, w.Body.String(), `"role":"owner"`)
}

func TestRequireRole(t *testing.T) {
	r := newAuthedRouter()

	asOwner, err := token.IssueAccessToken(testSecret, 2, models.RoleOwner, time.Minute)
	require.NoError(t, err)
	asRealtor, err := token.IssueAccessToken(testSecret, 3, models.RoleRealtor, time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/listings", nil)
	req.Header.Set("Authorization", "Bearer "+asOwner)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/listings", nil)
	req.Header.Set("Authorization", "Bearer "+asRealtor)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}
