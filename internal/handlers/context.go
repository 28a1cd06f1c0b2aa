package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/aruzhans/oppora/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user ID set by the auth middleware,
// or an empty string when the request is anonymous.
func currentUserID(c *gin.Context) string {
	v, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

// currentSessionID returns the session ID set by the auth middleware.
func currentSessionID(c *gin.Context) string {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
