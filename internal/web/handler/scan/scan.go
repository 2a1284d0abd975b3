// Package scan provides the HTTP handlers that read a source guild and seed
// the migration plan for the session.
package scan

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/connection"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/setting"
	"github.com/stoatbridge/stoatbridge/internal/discord"
	"github.com/stoatbridge/stoatbridge/internal/mapping"
	"github.com/stoatbridge/stoatbridge/internal/web/handler"
)

// Path is the path to the scan endpoint.
const Path = handler.APIPrefix + "/scan"

// Service is the scan handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the scan handler.
var Handler = Service{}

type scanRequest struct {
	GuildID string `json:"guildId" validate:"required"`
}

// Init initializes the scan handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Post(Path, s.Post)
	app.Get(Path, s.Get)

	return nil
}

// credentials resolves the source platform bot token and API root. Stored
// settings win over the config file.
func (s *Service) credentials() (token, baseURL string) {
	token = s.cfg.Discord.BotToken
	baseURL = s.cfg.Discord.BaseURL

	stored := &connection.Settings{}
	if err := stored.Load(s.db); err == nil {
		if stored.DiscordBotToken != "" {
			token = stored.DiscordBotToken
		}

		if stored.DiscordBaseURL != "" {
			baseURL = stored.DiscordBaseURL
		}
	} else if !errors.Is(err, setting.ErrSettingNotFound) {
		log.Warn().Err(err).Msg("could not load connection settings")
	}

	return token, baseURL
}

// Post scans the given guild and replaces the session's scan and plan.
func (s *Service) Post(c *fiber.Ctx) error {
	data, sessionID, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid scan request")
	}

	if err := handler.Validate.Struct(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid scan request")
	}

	if !discord.ValidGuildID(req.GuildID) {
		return handler.FailErr(c, fiber.StatusBadRequest, discord.ErrInvalidGuildID)
	}

	token, baseURL := s.credentials()

	client, err := discord.NewClient(baseURL, token)
	if errors.Is(err, discord.ErrBotTokenMissing) {
		return handler.Fail(c, fiber.StatusConflict, "no bot token configured")
	} else if err != nil {
		return handler.FailErr(c, fiber.StatusInternalServerError, err)
	}

	result, err := client.ScanGuild(c.UserContext(), req.GuildID)
	if err != nil {
		log.Error().Err(err).Str("guild", req.GuildID).Msg("guild scan failed")

		apiErr := &discord.APIError{}
		if errors.As(err, &apiErr) {
			return handler.Fail(c, fiber.StatusBadGateway, apiErr.Error())
		}

		return handler.Fail(c, fiber.StatusBadGateway, "could not reach the source platform")
	}

	plan, err := mapping.BuildDefault(result)
	if err != nil {
		log.Error().Err(err).Str("guild", req.GuildID).Msg("building default plan failed")

		return handler.Fail(c, fiber.StatusUnprocessableEntity, "scan data could not be converted")
	}

	data.GuildID = req.GuildID
	data.Scan = result
	data.Mapping = plan

	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(summary(data.GuildID, result))
}

// Get returns a summary of the current scan.
func (s *Service) Get(c *fiber.Ctx) error {
	data, _, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	if data.Scan == nil {
		return handler.Fail(c, fiber.StatusNotFound, "no scan in this session")
	}

	return c.JSON(summary(data.GuildID, data.Scan))
}

func summary(guildID string, scan *discord.Scan) fiber.Map {
	return fiber.Map{
		"guildId":   guildID,
		"guildName": scan.Guild.Name,
		"iconUrl":   scan.Guild.IconURL(),
		"bannerUrl": scan.Guild.BannerURL(),
		"summary":   scan.Summary,
	}
}
