package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/db/models"
)

// seed creates the initial admin account when the user table is empty.
func seed(db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)

	if count == 0 {
		db.Create(
			&models.User{
				Username: "admin",
				Email:    "admin@localhost",
				Password: models.HashPassword("changeme"),
				Active:   true,
			},
		)

		log.Warn().Msg("created default admin user with password 'changeme', change it after first login")
	}
}
