// Package mapping holds the user-editable migration plan: which categories,
// channels, roles and emojis get recreated on the target server, under what
// names, with which permissions.
//
// A Config is built once from a scan snapshot, mutated through the API layer
// while the user refines it, and then read (never written) by the transfer
// runner.
package mapping

import (
	"github.com/stoatbridge/stoatbridge/internal/discord"
	"github.com/stoatbridge/stoatbridge/internal/permset"
)

// ChannelKind is the transfer-relevant channel classification.
type ChannelKind string

const (
	KindText         ChannelKind = "text"
	KindVoice        ChannelKind = "voice"
	KindAnnouncement ChannelKind = "announcement"
	KindUnsupported  ChannelKind = "unsupported"
)

// Transferable reports whether channels of this kind can exist on the target
// platform. Unsupported kinds are always excluded from transfer.
func (k ChannelKind) Transferable() bool {
	switch k {
	case KindText, KindVoice, KindAnnouncement:
		return true
	default:
		return false
	}
}

// kindOf classifies a scanned channel type name.
func kindOf(typeName string) ChannelKind {
	switch typeName {
	case discord.TypeText:
		return KindText
	case discord.TypeVoice:
		return KindVoice
	case discord.TypeAnnouncement:
		return KindAnnouncement
	default:
		return KindUnsupported
	}
}

// Override is a per-role tri-state permission override on one channel.
type Override struct {
	RoleID   string            `json:"roleDiscordId"`
	RoleName string            `json:"roleName"`
	CanView  permset.TriState  `json:"canView"`
	CanSend  permset.TriState  `json:"canSend"`
}

// Neutral reports whether the override carries no explicit state at all.
func (o Override) Neutral() bool {
	return o.CanView == permset.Inherit && o.CanSend == permset.Inherit
}

// Channel is one channel of the migration plan.
type Channel struct {
	SourceID  string      `json:"discordId"`
	Name      string      `json:"name"`
	Included  bool        `json:"included"`
	Kind      ChannelKind `json:"kind"`
	Topic     string      `json:"topic,omitempty"`
	NSFW      bool        `json:"nsfw"`
	IsPrivate bool        `json:"isPrivate"`
	Overrides []Override  `json:"permissionOverrides,omitempty"`
}

// Private reports whether the channel should be treated as private during
// transfer: either flagged directly or carrying a view-deny override.
func (c *Channel) Private() bool {
	if c.IsPrivate {
		return true
	}

	for _, o := range c.Overrides {
		if o.CanView == permset.Deny {
			return true
		}
	}

	return false
}

// PublicReadOnly reports whether the channel is public but some role is
// denied sending while still able to view (the announcement pattern).
func (c *Channel) PublicReadOnly() bool {
	if c.Private() {
		return false
	}

	for _, o := range c.Overrides {
		if o.CanSend == permset.Deny && o.CanView != permset.Deny {
			return true
		}
	}

	return false
}

// Category groups channels of the plan. A nil SourceID marks the synthetic
// uncategorized bucket, which is never created remotely.
type Category struct {
	SourceID string    `json:"discordId,omitempty"`
	Name     string    `json:"name"`
	Included bool      `json:"included"`
	Channels []Channel `json:"channels"`
}

// Synthetic reports whether the category is the uncategorized bucket.
func (c *Category) Synthetic() bool {
	return c.SourceID == ""
}

// Role is one role of the plan, carrying the translated target permissions.
type Role struct {
	SourceID    string        `json:"discordId"`
	Name        string        `json:"name"`
	Included    bool          `json:"included"`
	Color       int           `json:"color"`
	Managed     bool          `json:"managed"`
	IsDefault   bool          `json:"isDefault"`
	Position    int           `json:"position"`
	Hoist       bool          `json:"hoist"`
	Permissions string        `json:"permissions"` // raw source bitset, decimal string
	Target      *permset.Pair `json:"stoatPermissions,omitempty"`
}

// Emoji is one emoji of the plan.
type Emoji struct {
	SourceID string `json:"discordId"`
	Name     string `json:"name"`
	Included bool   `json:"included"`
	URL      string `json:"url"`
	Animated bool   `json:"animated"`
}

// CustomChannel is a purely additive channel with no source counterpart.
// Custom entities have no inclusion toggle: adding one means creating it.
type CustomChannel struct {
	Name       string      `json:"name"`
	Kind       ChannelKind `json:"type"`
	CategoryID string      `json:"categoryDiscordId,omitempty"`
	IsPrivate  bool        `json:"isPrivate"`
	Overrides  []Override  `json:"permissionOverrides,omitempty"`
}

// CustomRole is a purely additive role.
type CustomRole struct {
	Name   string        `json:"name"`
	Color  string        `json:"color,omitempty"` // hex, e.g. "#ff0000"
	Target *permset.Pair `json:"stoatPermissions,omitempty"`
}

// CustomCategory is a purely additive category.
type CustomCategory struct {
	Name string `json:"name"`
}

// Config is the root aggregate of the migration plan.
type Config struct {
	ServerName        string           `json:"serverName"`
	ServerDescription string           `json:"serverDescription"`
	IncludeIcon       bool             `json:"includeIcon"`
	IncludeBanner     bool             `json:"includeBanner"`
	SourceIconURL     string           `json:"sourceIconUrl,omitempty"`
	SourceBannerURL   string           `json:"sourceBannerUrl,omitempty"`
	CustomIconURL     string           `json:"customIconUrl,omitempty"`
	CustomBannerURL   string           `json:"customBannerUrl,omitempty"`
	Categories        []Category       `json:"categories"`
	Roles             []Role           `json:"roles"`
	Emojis            []Emoji          `json:"emojis"`
	CustomChannels    []CustomChannel  `json:"customChannels"`
	CustomRoles       []CustomRole     `json:"customRoles"`
	CustomCategories  []CustomCategory `json:"customCategories"`
}

// DefaultRole returns the plan's default role, or nil.
func (c *Config) DefaultRole() *Role {
	for i := range c.Roles {
		if c.Roles[i].IsDefault {
			return &c.Roles[i]
		}
	}

	return nil
}

// FindChannel returns the channel with the given source id, or nil.
func (c *Config) FindChannel(sourceID string) *Channel {
	for i := range c.Categories {
		for j := range c.Categories[i].Channels {
			if c.Categories[i].Channels[j].SourceID == sourceID {
				return &c.Categories[i].Channels[j]
			}
		}
	}

	return nil
}

// FindRole returns the role with the given source id, or nil.
func (c *Config) FindRole(sourceID string) *Role {
	for i := range c.Roles {
		if c.Roles[i].SourceID == sourceID {
			return &c.Roles[i]
		}
	}

	return nil
}
