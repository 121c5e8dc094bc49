package middleware

import (
	"context"
	"net/http"
	"strings"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// Authenticator resolves a raw bearer token to its verified claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*utils.Claims, error)
}

// AuthRequired rejects requests without a valid bearer token and stores the
// caller's id under "user_id".
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return authenticate(auth, false)
}

// SocketAuthRequired also accepts ?token= since browsers cannot set headers
// on a websocket upgrade.
func SocketAuthRequired(auth Authenticator) gin.HandlerFunc {
	return authenticate(auth, true)
}

func authenticate(auth Authenticator, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, msg := bearerToken(c, allowQuery)
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			status, msg := apperrors.Public(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); allowQuery && token != "" {
			return token, ""
		}
		return "", "Authorization header required"
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
		return "", "Bearer token required"
	}
	return tokenString, ""
}

// CurrentUserID returns the id stored by AuthRequired.
func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(UserIDKey)
}

func CurrentClaims(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok {
			return claims
		}
	}
	return nil
}
