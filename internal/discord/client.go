package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public Discord REST API.
	DefaultBaseURL = "https://discord.com/api/v10"

	defaultTimeout = 30 * time.Second
)

var snowflakePattern = regexp.MustCompile(`^\d{17,20}$`)

// ValidGuildID reports whether id looks like a Discord snowflake.
func ValidGuildID(id string) bool {
	return snowflakePattern.MatchString(id)
}

// Client is a bot-token Discord REST client, scoped to the read-only calls
// a scan needs.
type Client struct {
	baseURL  string
	botToken string
	http     *http.Client
}

// NewClient creates a scan client. An empty baseURL selects the public API.
func NewClient(baseURL, botToken string) (*Client, error) {
	if botToken == "" {
		return nil, ErrBotTokenMissing
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:  baseURL,
		botToken: botToken,
		http:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build discord request")
	}

	req.Header.Set("Authorization", "Bot "+c.botToken)

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "discord request failed")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		log.Error().Int("status", res.StatusCode).Str("path", path).Msg("discord api error")
		return &APIError{Status: res.StatusCode, Path: path}
	}

	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "failed to decode discord response")
}

// rawGuild is the wire shape of GET /guilds/{id}.
type rawGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Banner      string `json:"banner"`
	Splash      string `json:"splash"`
	MemberCount int    `json:"approximate_member_count"`
}

// rawChannel is the wire shape of one entry of GET /guilds/{id}/channels.
type rawChannel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       int         `json:"type"`
	Position   int         `json:"position"`
	ParentID   string      `json:"parent_id"`
	Topic      string      `json:"topic"`
	NSFW       bool        `json:"nsfw"`
	Overwrites []Overwrite `json:"permission_overwrites"`
}

type rawRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions string `json:"permissions"`
	Managed     bool   `json:"managed"`
	Hoist       bool   `json:"hoist"`
	Mentionable bool   `json:"mentionable"`
}

type rawEmoji struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Animated bool   `json:"animated"`
}

type rawSticker struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FormatType  int    `json:"format_type"`
}

// ScanGuild fetches guild metadata, channels, roles, emojis and stickers and
// assembles them into a Scan. Emoji and sticker failures degrade to empty
// lists; the structural calls are required.
func (c *Client) ScanGuild(ctx context.Context, guildID string) (*Scan, error) {
	if !ValidGuildID(guildID) {
		return nil, ErrInvalidGuildID
	}

	var guild rawGuild
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s?with_counts=true", guildID), &guild); err != nil {
		return nil, err
	}

	var channels []rawChannel
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/channels", guildID), &channels); err != nil {
		return nil, err
	}

	var roles []rawRole
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/roles", guildID), &roles); err != nil {
		return nil, err
	}

	var emojis []rawEmoji
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/emojis", guildID), &emojis); err != nil {
		log.Warn().Err(err).Msg("emoji scan failed, continuing without emojis")
		emojis = nil
	}

	var stickers []rawSticker
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/stickers", guildID), &stickers); err != nil {
		log.Warn().Err(err).Msg("sticker scan failed, continuing without stickers")
		stickers = nil
	}

	scan := assembleScan(guild, channels, roles, emojis, stickers)

	log.Info().
		Str("guild", guild.Name).
		Int("channels", scan.Summary.TotalChannels).
		Int("roles", scan.Summary.TotalRoles).
		Msg("guild scan complete")

	return scan, nil
}
