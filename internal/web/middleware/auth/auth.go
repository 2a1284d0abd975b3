package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stoatbridge/stoatbridge/internal/web/handler"
	"github.com/stoatbridge/stoatbridge/internal/web/session"
)

// public paths that never need a session.
var publicPaths = []string{
	handler.APIPrefix + "/login",
	"/checkalive",
}

// Middleware is a Fiber middleware that checks for user authentication on
// API routes. Unauthenticated requests get a 401 JSON response.
func Middleware(c *fiber.Ctx) error {
	originalURL := strings.ToLower(c.OriginalURL())

	if !strings.HasPrefix(originalURL, handler.APIPrefix) {
		return c.Next()
	}

	for _, p := range publicPaths {
		if strings.HasPrefix(originalURL, p) {
			return c.Next()
		}
	}

	sessionID := c.Cookies(handler.SessionCookie)
	if sessionID == "" {
		return handler.Fail(c, fiber.StatusUnauthorized, "not authenticated")
	}

	sessData := new(session.Data)
	if err := sessData.Read(sessionID); err != nil || sessData.User.ID == 0 {
		return handler.Fail(c, fiber.StatusUnauthorized, "not authenticated")
	}

	c.Locals("CurrentUser", sessData.User)

	return c.Next()
}
