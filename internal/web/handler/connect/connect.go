// Package connect provides the HTTP handlers linking a session to the
// target platform: logging in to Stoat and listing the servers the account
// owns.
package connect

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/connection"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/setting"
	"github.com/stoatbridge/stoatbridge/internal/stoat"
	"github.com/stoatbridge/stoatbridge/internal/web/handler"
)

const (
	// Path is the path to the Stoat login endpoint.
	Path = handler.APIPrefix + "/connect/stoat"

	// ServersPath is the path listing owned target servers.
	ServersPath = handler.APIPrefix + "/connect/servers"
)

// Service is the connect handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the connect handler.
var Handler = Service{}

type connectRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Ticket   string `json:"ticket"`
	TOTPCode string `json:"totpCode"`
}

// Init initializes the connect handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Post(Path, s.Post)
	app.Get(ServersPath, s.Servers)

	return nil
}

// stoatBaseURL resolves the API root: per-installation setting first, then
// the config file, then the public endpoint.
func (s *Service) stoatBaseURL() string {
	stored := &connection.Settings{}
	if err := stored.Load(s.db); err == nil && stored.StoatBaseURL != "" {
		return stored.StoatBaseURL
	} else if err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
		log.Warn().Err(err).Msg("could not load connection settings")
	}

	return s.cfg.Stoat.BaseURL
}

// Post logs the session in to the target platform. Accounts with a second
// factor get a challenge back and call again with ticket and code.
func (s *Service) Post(c *fiber.Ctx) error {
	data, sessionID, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	var req connectRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid login data")
	}

	login := stoat.LoginRequest{
		Email:        req.Email,
		Password:     req.Password,
		FriendlyName: s.cfg.Title,
		Ticket:       req.Ticket,
		TOTPCode:     req.TOTPCode,
	}

	sess, challenge, err := stoat.Login(c.UserContext(), s.stoatBaseURL(), login)

	switch {
	case errors.Is(err, stoat.ErrMFARequired):
		return c.JSON(fiber.Map{
			"mfaRequired":    true,
			"ticket":         challenge.Ticket,
			"allowedMethods": challenge.AllowedMethods,
		})
	case errors.Is(err, stoat.ErrLoginFailed):
		return handler.Fail(c, fiber.StatusUnauthorized, "invalid email or password")
	case err != nil:
		log.Error().Err(err).Msg("stoat login failed")

		return handler.Fail(c, fiber.StatusBadGateway, "target platform unreachable")
	}

	data.StoatToken = sess.Token
	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"connected": true, "userId": sess.UserID})
}

// Servers lists the target servers the connected account owns.
func (s *Service) Servers(c *fiber.Ctx) error {
	data, _, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	if data.StoatToken == "" {
		return handler.Fail(c, fiber.StatusConflict, "not connected to the target platform")
	}

	client, err := stoat.NewClient(s.stoatBaseURL(), data.StoatToken)
	if err != nil {
		return handler.FailErr(c, fiber.StatusInternalServerError, err)
	}

	servers, err := client.ListServers(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("listing target servers failed")

		return handler.Fail(c, fiber.StatusBadGateway, "could not list target servers")
	}

	return c.JSON(fiber.Map{"servers": servers})
}
