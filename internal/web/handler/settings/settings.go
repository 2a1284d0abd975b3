// Package settings exposes the stored platform connection settings.
package settings

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/connection"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/setting"
	"github.com/stoatbridge/stoatbridge/internal/web/handler"
)

// Path is the path to the connection settings endpoint.
const Path = handler.APIPrefix + "/settings/connection"

// Service is the settings handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the settings handler.
var Handler = Service{}

// Init initializes the settings handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Get(Path, s.Get)
	app.Put(Path, s.Put)

	return nil
}

// Get returns the stored connection settings. The bot token is redacted to
// its length so the UI can tell whether one is set.
func (s *Service) Get(c *fiber.Ctx) error {
	if _, _, err := handler.SessionFromCtx(c); err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	stored := &connection.Settings{}

	err := stored.Load(s.db)

	switch {
	case errors.Is(err, setting.ErrSettingNotFound):
		return c.JSON(fiber.Map{"configured": false})
	case err != nil:
		log.Error().Err(err).Msg("could not load connection settings")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{
		"configured":     true,
		"botTokenSet":    stored.DiscordBotToken != "",
		"discordBaseUrl": stored.DiscordBaseURL,
		"stoatBaseUrl":   stored.StoatBaseURL,
	})
}

// Put replaces the stored connection settings.
func (s *Service) Put(c *fiber.Ctx) error {
	if _, _, err := handler.SessionFromCtx(c); err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	stored := &connection.Settings{}
	if err := c.BodyParser(stored); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid settings data")
	}

	if err := handler.Validate.Struct(stored); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid settings data")
	}

	if err := stored.Save(s.db); err != nil {
		log.Error().Err(err).Msg("could not save connection settings")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"ok": true})
}
