package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/auth"
	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/web/handler"
	"github.com/stoatbridge/stoatbridge/internal/web/session"
)

const (
	// Path is the path to the login endpoint.
	Path = handler.APIPrefix + "/login"

	// MePath is the path returning the authenticated user.
	MePath = handler.APIPrefix + "/me"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	provider *auth.LocalProvider
}

// Handler is the login handler.
var Handler = Service{}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.cfg = cfg
	s.provider = auth.NewLocalProvider(db)

	app.Post(Path, s.Post)
	app.Get(MePath, s.Me)

	return nil
}

// Post handles the login request and establishes a session.
func (s *Service) Post(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.FailErr(c, fiber.StatusBadRequest, ErrInvalidFormData)
	}

	if err := handler.Validate.Struct(req); err != nil {
		return handler.FailErr(c, fiber.StatusBadRequest, ErrInvalidFormData)
	}

	user, err := s.provider.Authenticate(req.Username, req.Password)
	if err != nil {
		// one generic answer for all credential failures
		if errors.Is(err, auth.ErrUserNotFound) ||
			errors.Is(err, auth.ErrInvalidPassword) ||
			errors.Is(err, auth.ErrUserAccountDisabled) {
			return handler.FailErr(c, fiber.StatusUnauthorized, ErrInvalidCredentials)
		}

		log.Error().Err(err).Msg("login failed")

		return handler.FailErr(c, fiber.StatusInternalServerError, ErrInternalServerError)
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return handler.FailErr(c, fiber.StatusInternalServerError, ErrInternalServerError)
	}

	userSession := &session.Data{User: *user}
	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return handler.FailErr(c, fiber.StatusInternalServerError, ErrInternalServerError)
	}

	cookieSettings := &fiber.Cookie{
		Name:     handler.SessionCookie,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.JSON(userResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

// Me returns the authenticated user of the current session.
func (s *Service) Me(c *fiber.Ctx) error {
	data, _, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	return c.JSON(userResponse{ID: data.User.ID, Username: data.User.Username, Email: data.User.Email})
}
