// Package transferapi provides the HTTP handlers that start, watch and abort
// migration runs, and expose the run history.
package transferapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/connection"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/setting"
	"github.com/stoatbridge/stoatbridge/internal/db/controller/transferrun"
	"github.com/stoatbridge/stoatbridge/internal/stoat"
	"github.com/stoatbridge/stoatbridge/internal/transfer"
	"github.com/stoatbridge/stoatbridge/internal/web/handler"
)

const (
	// Path is the base path of the transfer endpoints.
	Path = handler.APIPrefix + "/transfer"

	// StartPath starts a run.
	StartPath = Path + "/start"

	// StatusPath reports the current run's progress.
	StatusPath = Path + "/status"

	// AbortPath cancels the current run.
	AbortPath = Path + "/abort"

	// HistoryPath lists past runs.
	HistoryPath = Path + "/history"

	// RunPath fetches one past run with its full report.
	RunPath = Path + "/runs/:id"
)

// Service is the transfer handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	runs manager
}

// Handler is the transfer handler.
var Handler = Service{}

type startRequest struct {
	Mode     string `json:"mode"`
	ServerID string `json:"serverId"`
}

// Init initializes the transfer handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Post(StartPath, s.Start)
	app.Get(StatusPath, s.Status)
	app.Post(AbortPath, s.Abort)
	app.Get(HistoryPath, s.History)
	app.Get(RunPath, s.Run)

	return nil
}

func (s *Service) stoatBaseURL() string {
	stored := &connection.Settings{}
	if err := stored.Load(s.db); err == nil && stored.StoatBaseURL != "" {
		return stored.StoatBaseURL
	} else if err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
		log.Warn().Err(err).Msg("could not load connection settings")
	}

	return s.cfg.Stoat.BaseURL
}

func (s *Service) delays() transfer.Delays {
	d := s.cfg.Stoat.Delays

	return transfer.Delays{
		Role:       time.Duration(d.RoleMs) * time.Millisecond,
		Category:   time.Duration(d.CategoryMs) * time.Millisecond,
		Channel:    time.Duration(d.ChannelMs) * time.Millisecond,
		Permission: time.Duration(d.PermissionMs) * time.Millisecond,
		Asset:      time.Duration(d.AssetMs) * time.Millisecond,
		Move:       time.Duration(d.MoveMs) * time.Millisecond,
	}
}

// Start launches a migration run in the background. Only one run may be
// active per installation.
func (s *Service) Start(c *fiber.Ctx) error {
	data, _, err := handler.SessionFromCtx(c)
	if err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	if data.Mapping == nil {
		return handler.Fail(c, fiber.StatusConflict, "no plan in this session, scan a guild first")
	}

	if data.StoatToken == "" {
		return handler.Fail(c, fiber.StatusConflict, "not connected to the target platform")
	}

	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid transfer request")
	}

	client, err := stoat.NewClient(s.stoatBaseURL(), data.StoatToken)
	if err != nil {
		return handler.FailErr(c, fiber.StatusInternalServerError, err)
	}

	opts := transfer.Options{
		Mode:     transfer.Mode(req.Mode),
		ServerID: req.ServerID,
		Delays:   s.delays(),
		Observer: s.runs.observe,
	}

	runner, err := transfer.NewRunner(client, data.Mapping, opts)
	if err != nil {
		return handler.FailErr(c, fiber.StatusBadRequest, err)
	}

	run, err := transferrun.Start(s.db, data.User.ID, data.GuildID, data.Mapping.ServerName, req.Mode)
	if err != nil {
		log.Error().Err(err).Msg("could not record transfer run")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := s.runs.begin(run.ID, cancel); err != nil {
		cancel()

		if ferr := transferrun.Finish(s.db, run.ID, nil, err); ferr != nil {
			log.Error().Err(ferr).Msg("could not finalize rejected transfer run")
		}

		return handler.FailErr(c, fiber.StatusConflict, err)
	}

	go func() {
		defer cancel()
		defer s.runs.finish()

		report, runErr := runner.Run(ctx)
		if runErr != nil {
			log.Error().Err(runErr).Uint64("run", run.ID).Msg("transfer run failed")
		}

		if err := transferrun.Finish(s.db, run.ID, report, runErr); err != nil {
			log.Error().Err(err).Uint64("run", run.ID).Msg("could not finalize transfer run")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"runId": run.ID})
}

// Status reports the step progress of the current (or most recent) run.
func (s *Service) Status(c *fiber.Ctx) error {
	if _, _, err := handler.SessionFromCtx(c); err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	runID, active, steps := s.runs.snapshot()
	if runID == 0 {
		return handler.Fail(c, fiber.StatusNotFound, "no run has been started")
	}

	return c.JSON(fiber.Map{
		"runId":  runID,
		"active": active,
		"steps":  steps,
	})
}

// Abort cancels the current run. The runner stops at the next item boundary.
func (s *Service) Abort(c *fiber.Ctx) error {
	if _, _, err := handler.SessionFromCtx(c); err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	if !s.runs.abort() {
		return handler.Fail(c, fiber.StatusConflict, "no active run")
	}

	return c.JSON(fiber.Map{"aborting": true})
}

// History lists past runs, most recent first.
func (s *Service) History(c *fiber.Ctx) error {
	if _, _, err := handler.SessionFromCtx(c); err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	limit := c.QueryInt("limit")

	runs, err := transferrun.History(s.db, limit)
	if err != nil {
		log.Error().Err(err).Msg("could not list transfer runs")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"runs": runs})
}

// Run fetches one past run with its decoded report.
func (s *Service) Run(c *fiber.Ctx) error {
	if _, _, err := handler.SessionFromCtx(c); err != nil {
		return handler.FailErr(c, fiber.StatusUnauthorized, err)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, "invalid run id")
	}

	run, err := transferrun.Get(s.db, id)

	switch {
	case errors.Is(err, transferrun.ErrRunNotFound):
		return handler.Fail(c, fiber.StatusNotFound, "run not found")
	case err != nil:
		log.Error().Err(err).Msg("could not load transfer run")

		return handler.Fail(c, fiber.StatusInternalServerError, "internal server error")
	}

	report, err := transferrun.Report(run)
	if err != nil {
		log.Error().Err(err).Uint64("run", run.ID).Msg("could not decode run report")
	}

	return c.JSON(fiber.Map{"run": run, "report": report})
}
