// Package session holds the per-login working state of a migration: who is
// logged in, the scan snapshot and the mapping being edited. Everything
// lives in the session storage backend and dies with the session.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/stoatbridge/stoatbridge/internal/db/models"
	"github.com/stoatbridge/stoatbridge/internal/discord"
	"github.com/stoatbridge/stoatbridge/internal/mapping"
)

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
type Data struct {
	User models.User

	// StoatToken is the target platform session token. It is never
	// persisted outside the session storage.
	StoatToken string

	// GuildID is the source guild of the current scan.
	GuildID string

	// Scan is the immutable snapshot of the source guild.
	Scan *discord.Scan

	// Mapping is the migration plan being edited.
	Mapping *mapping.Config
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Init initializes the session store with the provided storage backend.
// A nil storage selects fiber's built-in in-memory storage, which is fine
// for single-node sqlite deployments.
func Init(storage fiber.Storage) {
	if storage == nil {
		Store = session.New()

		return
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
