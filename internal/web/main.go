// Package web runs the HTTP API of the migration wizard. All endpoints
// speak JSON; the UI is served separately.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	fiberlogger "github.com/stoatbridge/stoatbridge/internal/logger/adapter/fiber"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/connect"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/login"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/logout"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/plan"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/scan"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/settings"
	"github.com/stoatbridge/stoatbridge/internal/web/handler/transferapi"
	authmw "github.com/stoatbridge/stoatbridge/internal/web/middleware/auth"
)

// CheckAlivePath is the load balancer health check endpoint.
const CheckAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// access logging (skips checkalive noise)
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	// session auth for everything under /api
	app.Use(authmw.Middleware)

	service := &Service{
		cfg: cfg,
		App: app,
		db:  db,
	}

	service.alive.Store(true)

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	// init handlers (they register their own routes)
	initHandler := func(name string, err error) {
		if err != nil {
			log.Fatal().Err(err).Str("handler", name).Msg("failed to init handler")
		}
	}

	initHandler("login", login.Handler.Init(app, cfg, db))
	initHandler("connect", connect.Handler.Init(app, cfg, db))
	initHandler("settings", settings.Handler.Init(app, cfg, db))
	initHandler("scan", scan.Handler.Init(app, cfg, db))
	initHandler("plan", plan.Handler.Init(app, cfg, db))
	initHandler("transfer", transferapi.Handler.Init(app, cfg, db))
	logout.Handler.Init(app, cfg)

	return service
}
