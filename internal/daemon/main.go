// Package daemon wires configuration, database, sessions and the web
// service together into the running application.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/db/dsn"
	"github.com/stoatbridge/stoatbridge/internal/db/models"
	gormlogger "github.com/stoatbridge/stoatbridge/internal/logger/adapter/gorm"
	"github.com/stoatbridge/stoatbridge/internal/web"
	"github.com/stoatbridge/stoatbridge/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until it stops.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// openDB opens the configured database. Only sqlite needs no external
// server; mysql is for multi-node deployments.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: gormlogger.New()}

	if cfg.DB.Driver == config.DBDriverMySQL {
		return gorm.Open(gormmysql.Open(dsn.Create(cfg)), gormConfig)
	}

	return gorm.Open(sqlite.Open(cfg.DB.Path), gormConfig)
}

// sessionStorage returns the session backend matching the database driver.
// sqlite deployments are single-node and use fiber's in-memory storage.
func sessionStorage(cfg *config.Config) fiber.Storage {
	if cfg.DB.Driver != config.DBDriverMySQL {
		return nil
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Setting{},
		&models.TransferRun{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(db)

	session.Init(sessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db),
	}
}
