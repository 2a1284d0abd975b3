package connection

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/db/controller/setting"
	"github.com/stoatbridge/stoatbridge/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestSaveAndLoad(t *testing.T) {
	db := setupTestDB(t)

	saved := &Settings{
		DiscordBotToken: "a-rather-long-discord-bot-token-for-testing-purposes-only",
		StoatBaseURL:    "https://api.stoat.example",
	}

	require.NoError(t, saved.Save(db))

	loaded := &Settings{}
	require.NoError(t, loaded.Load(db))
	assert.Equal(t, saved.DiscordBotToken, loaded.DiscordBotToken)
	assert.Equal(t, saved.StoatBaseURL, loaded.StoatBaseURL)
	assert.Empty(t, loaded.DiscordBaseURL)
}

func TestSaveOverwrites(t *testing.T) {
	db := setupTestDB(t)

	first := &Settings{DiscordBotToken: "first-token-first-token-first-token-first-token-first"}
	require.NoError(t, first.Save(db))

	second := &Settings{DiscordBotToken: "second-token-second-token-second-token-second-token-x"}
	require.NoError(t, second.Save(db))

	loaded := &Settings{}
	require.NoError(t, loaded.Load(db))
	assert.Equal(t, second.DiscordBotToken, loaded.DiscordBotToken)
}

func TestLoadMissing(t *testing.T) {
	db := setupTestDB(t)

	loaded := &Settings{}
	assert.ErrorIs(t, loaded.Load(db), setting.ErrSettingNotFound)
}
