package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"mail": {"type": "string", "minLength": 3},
		"price": {"type": "integer", "minimum": 0}
	},
	"required": ["mail"],
	"additionalProperties": false
}`

func newValidatedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	schema := MustCompileSchema(testSchema)
	r := gin.New()
	r.POST("/things", ValidateBody(schema), func(c *gin.Context) {
		// the middleware must leave the body readable for binding
		raw, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		require.NotEmpty(t, raw)
		Success(c, http.StatusOK, gin.H{"echo": string(raw)})
	})
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestValidateBodyAcceptsValidPayload(t *testing.T) {
	r := newValidatedRouter(t)

	w := postJSON(r, `{"mail":"a@b.c","price":100}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}

func TestValidateBodyRejectsBadPayloads(t *testing.T) {
	r := newValidatedRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing required field", `{"price":100}`},
		{"wrong type", `{"mail":"a@b.c","price":"free"}`},
		{"unknown field", `{"mail":"a@b.c","extra":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(r, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"fail"`)
		})
	}
}

func TestMustCompileSchemaPanicsOnBadSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustCompileSchema(`{"type": 42}`)
	})
}
