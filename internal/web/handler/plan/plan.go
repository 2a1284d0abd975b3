// Package plan provides the HTTP handlers for viewing and editing the
// session's migration plan.
package plan

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/mapping"
	"github.com/stoatbridge/stoatbridge/internal/permset"
	"github.com/stoatbridge/stoatbridge/internal/web/handler"
)

const (
	// Path is the path to the plan endpoint.
	Path = handler.APIPrefix + "/mapping"

	// ChannelPath edits a single channel of the plan.
	ChannelPath = Path + "/channels/:id"

	// RolePath edits a single role of the plan.
	RolePath = Path + "/roles/:id"

	// OverridePath edits a single channel/role override of the plan.
	OverridePath = Path + "/overrides"

	// CustomChannelPath adds a custom channel to the plan.
	CustomChannelPath = Path + "/custom/channels"

	// CustomRolePath adds a custom role to the plan.
	CustomRolePath = Path + "/custom/roles"

	// CustomCategoryPath adds a custom category to the plan.
	CustomCategoryPath = Path + "/custom/categories"
)

// Service is the plan handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the plan handler.
var Handler = Service{}

// Init initializes the plan handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.cfg = cfg

	app.Get(Path, s.Get)
	app.Put(Path, s.Put)
	app.Patch(ChannelPath, s.PatchChannel)
	app.Patch(RolePath, s.PatchRole)
	app.Post(OverridePath+"/cycle", s.CycleOverride)
	app.Delete(OverridePath, s.DeleteOverride)
	app.Post(CustomChannelPath, s.AddCustomChannel)
	app.Post(CustomRolePath, s.AddCustomRole)
	app.Post(CustomCategoryPath, s.AddCustomCategory)

	return nil
}

// withPlan runs fn against the session's plan and persists the session when
// fn succeeds. Mutation errors map to 400, unknown targets to 404.
func (s *Service) withPlan(c *fiber.Ctx, fn func(*mapping.Config) error) error {
	data, sessionID, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	if data.Mapping == nil {
		return handler.Fail(c, fiber.StatusNotFound, "no plan in this session")
	}

	if err := fn(data.Mapping); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, mapping.ErrChannelNotFound) || errors.Is(err, mapping.ErrRoleNotFound) {
			status = fiber.StatusNotFound
		}

		return handler.FailErr(c, status, err)
	}

	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(data.Mapping)
}

// Get returns the full plan.
func (s *Service) Get(c *fiber.Ctx) error {
	data, _, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	if data.Mapping == nil {
		return handler.Fail(c, fiber.StatusNotFound, "no plan in this session")
	}

	return c.JSON(data.Mapping)
}

// Put replaces the full plan. The UI round-trips the document it got from
// Get, so no per-field validation happens here.
func (s *Service) Put(c *fiber.Ctx) error {
	data, sessionID, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	replacement := &mapping.Config{}
	if err := c.BodyParser(replacement); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid plan document")
	}

	data.Mapping = replacement

	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(data.Mapping)
}

type channelPatch struct {
	Included *bool   `json:"included"`
	Name     *string `json:"name"`
}

// PatchChannel toggles inclusion or renames a single channel.
func (s *Service) PatchChannel(c *fiber.Ctx) error {
	var patch channelPatch
	if err := c.BodyParser(&patch); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid channel patch")
	}

	id := c.Params("id")

	return s.withPlan(c, func(plan *mapping.Config) error {
		if patch.Included != nil {
			if err := plan.SetChannelIncluded(id, *patch.Included); err != nil {
				return err
			}
		}

		if patch.Name != nil {
			if err := plan.RenameChannel(id, *patch.Name); err != nil {
				return err
			}
		}

		return nil
	})
}

type rolePatch struct {
	Included    *bool         `json:"included"`
	Permissions *permset.Pair `json:"permissions"`
}

// PatchRole toggles inclusion or sets the target permissions of a role.
func (s *Service) PatchRole(c *fiber.Ctx) error {
	var patch rolePatch
	if err := c.BodyParser(&patch); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid role patch")
	}

	id := c.Params("id")

	return s.withPlan(c, func(plan *mapping.Config) error {
		if patch.Included != nil {
			if err := plan.SetRoleIncluded(id, *patch.Included); err != nil {
				return err
			}
		}

		if patch.Permissions != nil {
			if err := plan.SetRolePermissions(id, *patch.Permissions); err != nil {
				return err
			}
		}

		return nil
	})
}

type overrideRequest struct {
	ChannelID  string `json:"channelId" validate:"required"`
	RoleID     string `json:"roleId" validate:"required"`
	Capability string `json:"capability"`
}

// CycleOverride advances one capability of a channel/role override through
// inherit, allow and deny.
func (s *Service) CycleOverride(c *fiber.Ctx) error {
	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid override request")
	}

	if err := handler.Validate.Struct(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid override request")
	}

	return s.withPlan(c, func(plan *mapping.Config) error {
		return plan.CycleOverride(req.ChannelID, req.RoleID, req.Capability)
	})
}

// DeleteOverride removes a channel/role override entirely.
func (s *Service) DeleteOverride(c *fiber.Ctx) error {
	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid override request")
	}

	if err := handler.Validate.Struct(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid override request")
	}

	return s.withPlan(c, func(plan *mapping.Config) error {
		return plan.RemoveOverride(req.ChannelID, req.RoleID)
	})
}

// AddCustomChannel appends a user-defined channel to the plan.
func (s *Service) AddCustomChannel(c *fiber.Ctx) error {
	var custom mapping.CustomChannel
	if err := c.BodyParser(&custom); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid custom channel")
	}

	return s.withPlan(c, func(plan *mapping.Config) error {
		return plan.AddCustomChannel(custom)
	})
}

// AddCustomRole appends a user-defined role to the plan.
func (s *Service) AddCustomRole(c *fiber.Ctx) error {
	var custom mapping.CustomRole
	if err := c.BodyParser(&custom); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid custom role")
	}

	return s.withPlan(c, func(plan *mapping.Config) error {
		return plan.AddCustomRole(custom)
	})
}

// AddCustomCategory appends a user-defined category to the plan.
func (s *Service) AddCustomCategory(c *fiber.Ctx) error {
	var custom mapping.CustomCategory
	if err := c.BodyParser(&custom); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid custom category")
	}

	return s.withPlan(c, func(plan *mapping.Config) error {
		return plan.AddCustomCategory(custom)
	})
}
