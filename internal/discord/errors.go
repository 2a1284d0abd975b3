package discord

import (
	"errors"
	"fmt"
)

var (
	// ErrBotTokenMissing is returned when no bot token was configured.
	ErrBotTokenMissing = errors.New("discord bot token is not configured")

	// ErrInvalidGuildID is returned for guild ids that are not Discord snowflakes.
	ErrInvalidGuildID = errors.New("guild id must be a 17-20 digit snowflake")
)

// APIError carries the HTTP status of a failed Discord API request.
type APIError struct {
	Status int
	Path   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("discord api request %s failed with status %d", e.Path, e.Status)
}
