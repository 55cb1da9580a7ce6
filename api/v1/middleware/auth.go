package middleware

import (
	"context"
	"strings"

	"go_library/internal/apperr"
	"go_library/internal/auth"
	"go_library/internal/httpx"
	"go_library/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	claimsKey    = "claims"
)

// Authenticator resolves a bearer token into the calling principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (session.Principal, *auth.Claims, error)
}

// AuthRequired is a middleware that validates the bearer token and stores the principal
func AuthRequired(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httpx.FailErr(c, httpx.ErrUnauthorized("missing authorization header"))
			c.Abort()
			return
		}

		// Check Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httpx.FailErr(c, httpx.ErrUnauthorized("invalid authorization header format"))
			c.Abort()
			return
		}

		principal, claims, err := authn.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			switch {
			case auth.IsExpired(err):
				httpx.FailErr(c, httpx.ErrTokenExpired("token expired"))
			case apperr.IsKind(err, apperr.KindUnauthorized):
				// malformed, revoked, or its user is gone
				httpx.FailErr(c, httpx.ErrInvalidToken(httpx.FromError(err).Message))
			default:
				httpx.Error(c, err)
			}
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Set(claimsKey, claims)
		httpx.SetLogger(c, httpx.Logger(c).WithField("uid", principal.ID))

		c.Next()
	}
}

// Principal returns the caller stored by AuthRequired
func Principal(c *gin.Context) session.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(session.Principal); ok {
			return p
		}
	}
	return session.Principal{}
}

// Claims returns the token claims stored by AuthRequired
func Claims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
