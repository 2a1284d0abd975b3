// Package discord fetches a guild's structure through the Discord REST API
// and assembles it into the scan snapshot the mapping layer consumes.
package discord

// Guild is the subset of guild metadata the scan keeps.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Splash      string `json:"splash,omitempty"`
	MemberCount int    `json:"member_count"`
}

// Overwrite is a raw permission overwrite as Discord returns it. Allow and
// Deny are decimal strings because the bitsets exceed 53 bits.
type Overwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"` // 0 = role, 1 = member
	Allow string `json:"allow"`
	Deny  string `json:"deny"`
}

// Channel type names derived from Discord's numeric channel types.
const (
	TypeText         = "text"
	TypeVoice        = "voice"
	TypeAnnouncement = "announcement"
	TypeStage        = "stage"
	TypeForum        = "forum"
)

// Channel is one scanned guild channel.
type Channel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       int         `json:"type"`
	TypeName   string      `json:"typeName"`
	Position   int         `json:"position"`
	Topic      string      `json:"topic,omitempty"`
	NSFW       bool        `json:"nsfw"`
	Overwrites []Overwrite `json:"permission_overwrites"`
}

// Category groups scanned channels. A nil-equivalent ID ("" here) marks the
// synthetic bucket for channels without a parent category; it never exists
// on Discord's side and is never created remotely.
type Category struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Channels []Channel `json:"channels"`
}

// Synthetic reports whether the category is the uncategorized bucket.
func (c Category) Synthetic() bool {
	return c.ID == ""
}

// Role is one scanned guild role. Permissions is a decimal string bitset.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions string `json:"permissions"`
	Managed     bool   `json:"managed"`
	Hoist       bool   `json:"hoist"`
	Mentionable bool   `json:"mentionable"`
	IsDefault   bool   `json:"isDefault"`
}

// Emoji is one scanned custom emoji with its CDN asset URL.
type Emoji struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Animated bool   `json:"animated"`
	URL      string `json:"url"`
}

// Sticker is one scanned sticker. URL is empty for Lottie stickers, which
// have no raster asset to migrate.
type Sticker struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FormatType  int    `json:"format_type"`
	URL         string `json:"url,omitempty"`
}

// Summary carries the counts shown after a scan.
type Summary struct {
	TotalChannels   int `json:"totalChannels"`
	TotalCategories int `json:"totalCategories"`
	TotalRoles      int `json:"totalRoles"`
	TotalEmojis     int `json:"totalEmojis"`
	TotalStickers   int `json:"totalStickers"`
}

// Scan is the complete snapshot of a guild's structure.
type Scan struct {
	Guild      Guild      `json:"guild"`
	Categories []Category `json:"categories"`
	Roles      []Role     `json:"roles"`
	Emojis     []Emoji    `json:"emojis"`
	Stickers   []Sticker  `json:"stickers"`
	Summary    Summary    `json:"summary"`
}

// DefaultRole returns the guild's @everyone role, or nil if the scan lacks
// one (which indicates a malformed snapshot).
func (s *Scan) DefaultRole() *Role {
	for i := range s.Roles {
		if s.Roles[i].IsDefault {
			return &s.Roles[i]
		}
	}

	return nil
}
