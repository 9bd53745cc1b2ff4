package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/naira-pay/naira_pay/internal/apikeys"
	"github.com/naira-pay/naira_pay/internal/auth"
	"github.com/naira-pay/naira_pay/internal/identity"
)

const (
	apiKeyHeader = "X-API-Key"

	// PrincipalLocal is the fiber.Ctx local carrying the resolved Principal.
	PrincipalLocal = "principal"
)

// PrincipalKind distinguishes how a caller authenticated.
type PrincipalKind string

const (
	PrincipalJWT    PrincipalKind = "jwt"
	PrincipalAPIKey PrincipalKind = "api_key"
)

// Principal is the authenticated caller for the current request.
type Principal struct {
	Kind        PrincipalKind
	UserID      string
	Permissions []string
}

// Allows reports whether the principal may perform the operation. Session
// tokens carry every permission; API keys only what they were issued with.
func (p Principal) Allows(permission string) bool {
	if p.Kind == PrincipalJWT {
		return true
	}
	for _, granted := range p.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

// Authenticate resolves the caller from either a bearer access token or an
// X-API-Key header and stores the Principal in the request locals. Bearer
// tokens are checked against the user's current token version so logout
// invalidates outstanding tokens.
func Authenticate(jwtSecret []byte, users identity.Repository, keys *apikeys.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Get(apiKeyHeader); raw != "" {
			key, err := keys.Verify(c.UserContext(), raw)
			if err != nil {
				return fiber.NewError(http.StatusUnauthorized, "invalid api key")
			}
			principal := Principal{Kind: PrincipalAPIKey, UserID: key.UserID, Permissions: key.Permissions}
			c.Locals(PrincipalLocal, principal)
			c.Locals("user_id", key.UserID)
			return c.Next()
		}

		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing credentials")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, jwtSecret)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		verFloat, _ := claims["ver"].(float64)
		ver := int(verFloat)

		user, err := users.FindByID(c.UserContext(), sub)
		if err != nil || user.TokenVersion != ver {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		principal := Principal{Kind: PrincipalJWT, UserID: sub}
		c.Locals(PrincipalLocal, principal)
		c.Locals("user_id", sub)
		c.Locals("token_version", ver)
		return c.Next()
	}
}

// RequireSession restricts a route to interactively authenticated callers.
// API keys cannot mint or revoke other keys.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(PrincipalLocal).(Principal)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing credentials")
		}
		if principal.Kind != PrincipalJWT {
			return fiber.NewError(http.StatusForbidden, "session authentication required")
		}
		return c.Next()
	}
}

// RequirePermission rejects API key callers whose key lacks the permission.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(PrincipalLocal).(Principal)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing credentials")
		}
		if !principal.Allows(permission) {
			return fiber.NewError(http.StatusForbidden, "api key lacks permission: "+permission)
		}
		return c.Next()
	}
}
