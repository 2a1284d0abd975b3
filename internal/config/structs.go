package config

import (
	"time"

	"github.com/stoatbridge/stoatbridge/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Discord   Discord
	Stoat     Stoat
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath           bool    // use clean path middleware to allow multi slash requests
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Argon2Salt          string  // salt for argon2 hashing
	Session             Session // session settings
}

// Discord holds the source platform settings. A bot token stored through
// the settings API wins over the config file value.
type Discord struct {
	BotToken string
	BaseURL  string // API base, defaults to the public endpoint
}

// Stoat holds the target platform settings.
type Stoat struct {
	BaseURL string // API base, defaults to the public endpoint
	Delays  TransferDelays
}

// TransferDelays overrides the pacing between remote calls during a
// transfer, in milliseconds. Zero values keep the built-in pacing.
type TransferDelays struct {
	RoleMs       int
	CategoryMs   int
	ChannelMs    int
	PermissionMs int
	AssetMs      int
	MoveMs       int
}
