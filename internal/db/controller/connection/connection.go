// Package connection persists the remote platform settings of an
// installation as a settings blob.
package connection

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/db/controller/setting"
)

const (
	// SettingKeyConnection is the key used to store platform connection settings in the database.
	SettingKeyConnection = "platform_connection"
)

type (
	// Settings represents the stored platform connection configuration.
	// The Stoat session token is deliberately absent: it lives in the web
	// session only and dies with it.
	Settings struct {
		DiscordBotToken string `form:"discord_bot_token" json:"discordBotToken" validate:"required,min=50"`
		DiscordBaseURL  string `form:"discord_base_url"  json:"discordBaseUrl"  validate:"omitempty,url"`
		StoatBaseURL    string `form:"stoat_base_url"    json:"stoatBaseUrl"    validate:"omitempty,url"`
	}
)

// Load loads the platform connection settings from the database.
func (p *Settings) Load(db *gorm.DB) error {
	// Retrieve the setting from the database
	s, err := setting.Get(db, SettingKeyConnection)
	if err != nil {
		return err
	}

	// Unmarshal the JSON blob into the struct
	return json.Unmarshal(s.Value, p)
}

// Save saves the platform connection settings to the database.
func (p *Settings) Save(db *gorm.DB) error {
	// Marshal the struct to JSON
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	// Save or update the setting in the database
	_, err = setting.Set(db, SettingKeyConnection, data)

	return err
}
