package stoat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stoatbridge/stoatbridge/internal/permset"
	"github.com/stoatbridge/stoatbridge/internal/transfer"
)

// clearDelay spaces out the delete calls of a server wipe.
const clearDelay = 500 * time.Millisecond

// serverCategory is one entry of a server's categories array.
type serverCategory struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Channels []string `json:"channels"`
}

// serverState is the subset of a server object the client mutates.
type serverState struct {
	ID         string                     `json:"_id"`
	Channels   []string                   `json:"channels"`
	Categories []serverCategory           `json:"categories"`
	Roles      map[string]json.RawMessage `json:"roles"`
}

func (c *Client) fetchServer(ctx context.Context, serverID string) (*serverState, error) {
	var srv serverState
	if err := c.do(ctx, http.MethodGet, "/servers/"+serverID, nil, &srv); err != nil {
		return nil, err
	}

	return &srv, nil
}

// CreateServer creates a fresh server and returns its id.
func (c *Client) CreateServer(ctx context.Context, name, description string) (string, error) {
	body := map[string]interface{}{"name": name}
	if description != "" {
		body["description"] = description
	}

	// Older API versions return the server object directly, newer ones
	// wrap it next to the initial channel list.
	var resp struct {
		ID     string `json:"_id"`
		Server struct {
			ID string `json:"_id"`
		} `json:"server"`
	}

	if err := c.do(ctx, http.MethodPost, "/servers/create", body, &resp); err != nil {
		return "", err
	}

	if resp.Server.ID != "" {
		return resp.Server.ID, nil
	}

	return resp.ID, nil
}

// SetServerIcon replaces the server icon with the asset at the given URL.
func (c *Client) SetServerIcon(ctx context.Context, serverID, assetURL string) error {
	id, err := c.uploadAsset(ctx, "icons", assetURL)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodPatch, "/servers/"+serverID, map[string]string{"icon": id}, nil)
}

// SetServerBanner replaces the server banner with the asset at the given URL.
func (c *Client) SetServerBanner(ctx context.Context, serverID, assetURL string) error {
	id, err := c.uploadAsset(ctx, "banners", assetURL)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodPatch, "/servers/"+serverID, map[string]string{"banner": id}, nil)
}

// CreateRole creates a role and returns its id.
func (c *Client) CreateRole(ctx context.Context, serverID, name string, rank int) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}

	body := map[string]interface{}{"name": name, "rank": rank}
	if err := c.do(ctx, http.MethodPost, "/servers/"+serverID+"/roles", body, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// EditRole patches the optional fields of a role.
func (c *Client) EditRole(ctx context.Context, serverID, roleID string, edit transfer.RoleEdit) error {
	body := map[string]interface{}{}

	if edit.Colour != nil {
		body["colour"] = *edit.Colour
	}

	if edit.Hoist != nil {
		body["hoist"] = *edit.Hoist
	}

	if edit.Rank != nil {
		body["rank"] = *edit.Rank
	}

	if len(body) == 0 {
		return nil
	}

	return c.do(ctx, http.MethodPatch, "/servers/"+serverID+"/roles/"+roleID, body, nil)
}

type permissionsBody struct {
	Permissions struct {
		Allow uint32 `json:"allow"`
		Deny  uint32 `json:"deny"`
	} `json:"permissions"`
}

func pairBody(perms permset.Pair) permissionsBody {
	var body permissionsBody

	body.Permissions.Allow = perms.Allow
	body.Permissions.Deny = perms.Deny

	return body
}

// SetRolePermissions replaces a role's server-level permission pair.
func (c *Client) SetRolePermissions(ctx context.Context, serverID, roleID string, perms permset.Pair) error {
	return c.do(ctx, http.MethodPut, "/servers/"+serverID+"/permissions/"+roleID, pairBody(perms), nil)
}

// SetDefaultPermissions replaces the default role's server-level
// permissions. The default role carries a plain allow bitset, not a pair.
func (c *Client) SetDefaultPermissions(ctx context.Context, serverID string, perms permset.Pair) error {
	body := map[string]uint32{"permissions": perms.Allow}

	return c.do(ctx, http.MethodPut, "/servers/"+serverID+"/permissions/default", body, nil)
}

// CreateCategory appends a category to the server's layout and returns the
// generated id. The API has no category endpoint; categories only exist
// inside the server object.
func (c *Client) CreateCategory(ctx context.Context, serverID, name string) (string, error) {
	srv, err := c.fetchServer(ctx, serverID)
	if err != nil {
		return "", err
	}

	id := newULID()
	categories := append(srv.Categories, serverCategory{ID: id, Title: name, Channels: []string{}})

	body := map[string]interface{}{"categories": categories}
	if err := c.do(ctx, http.MethodPatch, "/servers/"+serverID, body, nil); err != nil {
		return "", err
	}

	return id, nil
}

// CreateChannel creates a channel and returns its id.
func (c *Client) CreateChannel(ctx context.Context, serverID string, spec transfer.ChannelSpec) (string, error) {
	body := map[string]interface{}{
		"type": spec.Kind,
		"name": spec.Name,
	}

	if spec.Description != "" {
		body["description"] = spec.Description
	}

	if spec.NSFW {
		body["nsfw"] = true
	}

	var resp struct {
		ID string `json:"_id"`
	}

	if err := c.do(ctx, http.MethodPost, "/servers/"+serverID+"/channels", body, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// MoveChannelToCategory places a channel into a category, removing it from
// any category it was in.
func (c *Client) MoveChannelToCategory(ctx context.Context, serverID, categoryID, channelID string) error {
	srv, err := c.fetchServer(ctx, serverID)
	if err != nil {
		return err
	}

	found := false

	for i := range srv.Categories {
		cat := &srv.Categories[i]

		kept := cat.Channels[:0]

		for _, ch := range cat.Channels {
			if ch != channelID {
				kept = append(kept, ch)
			}
		}

		cat.Channels = kept

		if cat.ID == categoryID {
			cat.Channels = append(cat.Channels, channelID)
			found = true
		}
	}

	if !found {
		return fmt.Errorf("stoat: category %s not present on server %s", categoryID, serverID)
	}

	body := map[string]interface{}{"categories": srv.Categories}

	return c.do(ctx, http.MethodPatch, "/servers/"+serverID, body, nil)
}

// SetChannelPermissions replaces a role's permission pair on one channel.
// The role id "default" addresses the implicit everyone role.
func (c *Client) SetChannelPermissions(ctx context.Context, channelID, roleID string, perms permset.Pair) error {
	return c.do(ctx, http.MethodPut, "/channels/"+channelID+"/permissions/"+roleID, pairBody(perms), nil)
}

var (
	emojiSpaceRe = regexp.MustCompile(`[-\s]+`)
	emojiCharRe  = regexp.MustCompile(`[^a-z0-9_]`)
)

// slugifyEmojiName converts an arbitrary emoji name to the restricted
// charset the platform accepts.
func slugifyEmojiName(name string) string {
	s := emojiSpaceRe.ReplaceAllString(strings.ToLower(name), "_")
	s = emojiCharRe.ReplaceAllString(s, "")

	if len(s) > 32 {
		s = s[:32]
	}

	if s == "" {
		s = "emoji"
	}

	return s
}

// CreateEmoji uploads the asset at the given URL and registers it as a
// server emoji.
func (c *Client) CreateEmoji(ctx context.Context, serverID, name, assetURL string) error {
	id, err := c.uploadAsset(ctx, "emojis", assetURL)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"name": slugifyEmojiName(name),
		"parent": map[string]string{
			"type": "Server",
			"id":   serverID,
		},
	}

	return c.do(ctx, http.MethodPut, "/custom/emoji/"+id, body, nil)
}

// ClearServer deletes every channel and role of a server and empties its
// category layout. The default role cannot be deleted and is left alone.
func (c *Client) ClearServer(ctx context.Context, serverID string) (transfer.ClearSummary, error) {
	var summary transfer.ClearSummary

	srv, err := c.fetchServer(ctx, serverID)
	if err != nil {
		return summary, err
	}

	for _, channelID := range srv.Channels {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		if err := c.do(ctx, http.MethodDelete, "/channels/"+channelID, nil, nil); err != nil {
			log.Warn().Err(err).Str("channel", channelID).Msg("channel delete failed during wipe")
		} else {
			summary.ChannelsDeleted++
		}

		c.sleep(ctx, clearDelay)
	}

	for roleID := range srv.Roles {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		if roleID == transfer.DefaultRoleID {
			continue
		}

		if err := c.do(ctx, http.MethodDelete, "/servers/"+serverID+"/roles/"+roleID, nil, nil); err != nil {
			log.Warn().Err(err).Str("role", roleID).Msg("role delete failed during wipe")
		} else {
			summary.RolesDeleted++
		}

		c.sleep(ctx, clearDelay)
	}

	body := map[string]interface{}{"categories": []serverCategory{}}
	if err := c.do(ctx, http.MethodPatch, "/servers/"+serverID, body, nil); err != nil {
		return summary, err
	}

	return summary, nil
}
