package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bizlink/backend/internal/infrastructure/logger"
)

// Actor middleware keys and defaults
const (
	ActorKey      = "actor"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// DefaultActor is stamped on records when no identity is present
	DefaultActor = logger.DefaultActor
)

// Actor resolves the acting user for audit stamping. Identity comes from
// a bearer token's subject when one is presented, falling back to the
// X-User-ID header, and finally to a fixed system actor. The request is
// never rejected here; this subsystem audits, it does not authorize.
func Actor(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFromToken(c, jwtSecret)
		if actor == "" {
			actor = c.GetHeader("X-User-ID")
		}
		if actor == "" {
			actor = DefaultActor
		}

		c.Set(ActorKey, actor)
		ctx, _ := logger.WithActor(c.Request.Context(), logger.FromContext(c.Request.Context()), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// actorFromToken extracts the subject claim from a bearer token. An
// absent or unverifiable token yields no actor rather than an error.
func actorFromToken(c *gin.Context, secret string) string {
	if secret == "" {
		return ""
	}
	authHeader := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return ""
	}
	tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
	if tokenString == "" {
		return ""
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.Subject
}

// GetActor retrieves the resolved actor from gin context
func GetActor(c *gin.Context) string {
	if actor, exists := c.Get(ActorKey); exists {
		if a, ok := actor.(string); ok {
			return a
		}
	}
	return DefaultActor
}
