package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stoatbridge/stoatbridge/internal/web/session"
)

// ErrNoSession is returned when a request carries no usable session.
var ErrNoSession = errors.New("not authenticated")

// Fail writes a JSON error response.
func Fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// FailErr writes a JSON error response from an error.
func FailErr(c *fiber.Ctx, status int, err error) error {
	return Fail(c, status, err.Error())
}

// SessionFromCtx loads the session data of the request. The returned id is
// needed to write changed data back.
func SessionFromCtx(c *fiber.Ctx) (*session.Data, string, error) {
	sessionID := c.Cookies(SessionCookie)
	if sessionID == "" {
		return nil, "", ErrNoSession
	}

	data := new(session.Data)
	if err := data.Read(sessionID); err != nil {
		return nil, "", ErrNoSession
	}

	if data.User.ID == 0 {
		return nil, "", ErrNoSession
	}

	return data, sessionID, nil
}
