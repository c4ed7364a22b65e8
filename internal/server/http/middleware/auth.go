package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
)

const (
	// IdentityContextKey is a gin context key for the authenticated caller.
	IdentityContextKey = "identity"
	authCookieName     = "cryptostore_token"
)

// TokenParser verifies auth tokens.
type TokenParser interface {
	ParseToken(token string) (pkgAuth.Identity, error)
}

// AuthRequired ensures user is authenticated before accessing handler.
func AuthRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		identity, err := parser.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(IdentityContextKey, identity)
		c.Next()
	}
}

// AdminOnly rejects callers without the admin role. Must run after AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !identity.IsAdmin() {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthRequired.
func CurrentIdentity(c *gin.Context) (pkgAuth.Identity, bool) {
	val, ok := c.Get(IdentityContextKey)
	if !ok {
		return pkgAuth.Identity{}, false
	}
	identity, ok := val.(pkgAuth.Identity)
	return identity, ok
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}

// SetAuthCookie writes auth token cookie to response.
func SetAuthCookie(c *gin.Context, token string) {
	c.SetCookie(authCookieName, token, 0, "/", "", false, true)
	c.Header("Authorization", "Bearer "+token)
}
