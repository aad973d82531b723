package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campus360/incidencias-service/internal/domain"
	apperrors "github.com/campus360/incidencias-service/pkg/util/errorutil"
)

const actorKey = "auth_actor"

// Middleware validates bearer tokens and installs the decoded actor.
type Middleware struct {
	tokens *TokenVerifier
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenVerifier) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.Parse(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	actor, err := claims.Actor()
	if err != nil {
		return apperrors.NewUnauthenticated(err.Error())
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
