package identity

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/role"
)

const actorKey = "tracewell.actor"

// Middleware resolves the bearer token into a role.Actor stored on the gin
// context. Requests without a valid token are rejected with 401.
func Middleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		actor, err := a.Verify(token)
		if errors.Is(err, role.ErrUnknownRole) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor resolved by Middleware, or the zero Actor.
func ActorFrom(c *gin.Context) role.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return role.Actor{}
	}
	actor, _ := v.(role.Actor)
	return actor
}
