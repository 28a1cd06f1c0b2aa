package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/aruzhans/oppora/internal/auth"
)

// OptionalAuth resolves the caller's identity when a valid bearer token is
// present and stays silent otherwise. Privacy-filtered public endpoints use it
// so the same route serves friends, strangers and anonymous visitors.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			token := strings.TrimSpace(authz[7:])
			if claims, err := jwt.ValidateAccessToken(token); err == nil && !isPendingTwoFactor(claims) {
				c.Set(CtxClaimsKey, claims)
				c.Set(CtxUserIDKey, claims.UserID)
				if claims.SessionID != "" {
					c.Set(CtxSessionIDKey, claims.SessionID)
				}
			}
		}

		c.Next()
	}
}

func isPendingTwoFactor(claims *iauth.Claims) bool {
	pending, _ := claims.Metadata[iauth.MetadataTwoFactorPending].(bool)
	return pending
}
