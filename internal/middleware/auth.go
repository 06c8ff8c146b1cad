package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"seodesk/internal/models"
)

// SessionUserKey is the session key holding the OIDC subject.
const SessionUserKey = "user_sub"

// UserStore loads users by OIDC subject.
type UserStore interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	users UserStore
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserStore) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// loadUser returns the signed-in user, or nil. A session whose user no
// longer exists is destroyed.
func (m *AuthMiddleware) loadUser(c fiber.Ctx) *models.User {
	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}

	sub, _ := sess.Get(SessionUserKey).(string)
	if sub == "" {
		return nil
	}

	user, err := m.users.GetUserBySub(c.Context(), sub)
	if err != nil {
		_ = sess.Destroy()
		return nil
	}
	return user
}

// RequireAuth ensures the user is authenticated, redirecting to /login if not.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user := m.loadUser(c)
	if user == nil {
		if sess := session.FromContext(c); sess != nil {
			sess.Set("redirect_after_login", c.OriginalURL())
		}
		return c.Redirect().To("/login")
	}

	c.Locals("user", user)
	return c.Next()
}

// RequireAPIAuth ensures the user is authenticated, answering 401 JSON if not.
func (m *AuthMiddleware) RequireAPIAuth(c fiber.Ctx) error {
	user := m.loadUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": "error",
			"error":  "Unauthorized",
		})
	}

	c.Locals("user", user)
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	if user := m.loadUser(c); user != nil {
		c.Locals("user", user)
	}
	return c.Next()
}

// CurrentUser returns the user set by one of the auth handlers, or nil.
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// CronAuth requires "Authorization: Bearer <secret>". An empty secret
// rejects every request.
func CronAuth(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "error",
				"error":  "Unauthorized",
			})
		}
		return c.Next()
	}
}
