package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/opsready/training-service/internal/config"
	"github.com/opsready/training-service/internal/models"
)

const actorContextKey = "actor"

// Authenticator verifies Casdoor-issued JWTs and places the resulting Actor
// on the request context. This service never authenticates users itself.
type Authenticator struct {
	client *casdoorsdk.Client
	logger *slog.Logger
}

func NewAuthenticator(cfg config.CasdoorConfig, logger *slog.Logger) *Authenticator {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &Authenticator{client: client, logger: logger}
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated Actor for handlers to read.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "missing bearer token",
			})
			return
		}

		claims, err := a.client.ParseJwtToken(token)
		if err != nil {
			a.logger.Warn("Rejected invalid token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "invalid or expired token",
			})
			return
		}

		actor := actorFromClaims(claims)
		c.Set(actorContextKey, actor)
		c.Set("user_id", actor.ID)
		c.Next()
	}
}

// ActorFromContext returns the authenticated Actor placed by Middleware.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

func actorFromClaims(claims *casdoorsdk.Claims) models.Actor {
	return models.Actor{
		ID:             claims.User.Id,
		OrganizationID: claims.User.Owner,
		Role:           roleFromUser(&claims.User),
	}
}

// roleFromUser maps Casdoor role assignments onto this service's roles. An
// unrecognized or missing role degrades to employee, never to more access.
func roleFromUser(user *casdoorsdk.User) models.UserRole {
	for _, role := range user.Roles {
		switch models.UserRole(strings.ToLower(role.Name)) {
		case models.RoleSuperadmin:
			return models.RoleSuperadmin
		case models.RoleAdmin:
			return models.RoleAdmin
		case models.RoleManager:
			return models.RoleManager
		}
	}
	if user.IsAdmin {
		return models.RoleAdmin
	}
	return models.RoleEmployee
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
