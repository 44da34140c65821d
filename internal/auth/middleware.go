package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/authz"
	"slotbooking/backend/pkg/jwt"
)

const (
	ContextUserID = "userID"
	ContextActor  = "actor"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// ActorResolver loads the current role of an authenticated user.
type ActorResolver interface {
	Actor(ctx context.Context, userID uint) (authz.Actor, error)
}

// AuthMiddleware requires a valid bearer token and stores the actor in the
// gin context. The role comes from the store, not from the token.
func AuthMiddleware(tokens TokenParser, actors ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or malformed"})
			return
		}

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}

		actor, err := actors.Actor(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}

		c.Set(ContextUserID, actor.ID)
		c.Set(ContextActor, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (authz.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return authz.Actor{}, false
	}
	actor, ok := v.(authz.Actor)
	return actor, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
