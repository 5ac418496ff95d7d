// Package httpapi carries the pieces every handler package shares: the JSON
// response envelope, the API error type, and declarative request validation.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is a client-visible failure with an HTTP status. Anything else
// that escapes a handler is reported as a 500 without leaking its message.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func BadRequest(msg string) *APIError   { return &APIError{Code: http.StatusBadRequest, Message: msg} }
func Unauthorized(msg string) *APIError { return &APIError{Code: http.StatusUnauthorized, Message: msg} }
func Forbidden(msg string) *APIError    { return &APIError{Code: http.StatusForbidden, Message: msg} }
func NotFound(msg string) *APIError     { return &APIError{Code: http.StatusNotFound, Message: msg} }

// Success writes the {status:"success", ...payload} envelope.
func Success(c *gin.Context, code int, payload gin.H) {
	body := gin.H{"status": "success"}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(code, body)
}

// Fail writes a {status:"fail", message} envelope for 4xx conditions.
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "fail", "message": message})
}

// Error maps an error onto the envelope: APIError values keep their status
// and message, everything else becomes an opaque 500.
func Error(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		Fail(c, apiErr.Code, apiErr.Message)
		return
	}

	slog.Error("Unhandled request error", "path", c.FullPath(), "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal server error"})
}
