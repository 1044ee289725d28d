// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDKey    = "userID"
	requestIDKey = "requestID"

	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
)

// RequestContext is what a handler knows about the caller.
type RequestContext struct {
	UserID    int64
	RequestID string
	ClientIP  string
}

// Authenticated reports whether the request passed the auth gate.
func (rc RequestContext) Authenticated() bool {
	return rc.UserID > 0
}

// FromContext collects the request context set by RequestID and AuthMiddleware.
func FromContext(c *gin.Context) RequestContext {
	rc := RequestContext{
		RequestID: c.GetString(requestIDKey),
		ClientIP:  c.ClientIP(),
	}
	if v, ok := c.Get(userIDKey); ok {
		rc.UserID, _ = v.(int64)
	}
	return rc
}

// UserID returns the authenticated caller, or 0 on public routes.
func UserID(c *gin.Context) int64 {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}

// SetUserID marks the request as authenticated. Used by handlers that
// optionally authenticate (product detail) and by tests.
func SetUserID(c *gin.Context, userID int64) {
	c.Set(userIDKey, userID)
}

// RequestID assigns every request an id, reusing a well-formed incoming
// X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
