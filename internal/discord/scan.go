package discord

import (
	"fmt"
	"sort"
)

const (
	channelTypeCategory     = 4
	uncategorizedName       = "Uncategorized"
	everyoneRoleName        = "@everyone"
	emojiCDNPattern         = "https://cdn.discordapp.com/emojis/%s.%s?size=128"
	stickerCDNPattern       = "https://media.discordapp.net/stickers/%s.%s?size=320"
	stickerFormatLottie     = 3
	stickerFormatGIF        = 4
)

// channelTypeName maps Discord's numeric channel type onto the scan's name.
func channelTypeName(t int) string {
	switch t {
	case 2:
		return TypeVoice
	case 5:
		return TypeAnnouncement
	case 13:
		return TypeStage
	case 15:
		return TypeForum
	default:
		return TypeText
	}
}

func convertChannel(ch rawChannel) Channel {
	return Channel{
		ID:         ch.ID,
		Name:       ch.Name,
		Type:       ch.Type,
		TypeName:   channelTypeName(ch.Type),
		Position:   ch.Position,
		Topic:      ch.Topic,
		NSFW:       ch.NSFW,
		Overwrites: ch.Overwrites,
	}
}

// assembleScan organizes the raw API payloads into the snapshot shape:
// categories sorted by position with their channels nested, a synthetic
// uncategorized bucket first when needed, roles sorted top-down.
func assembleScan(guild rawGuild, channels []rawChannel, roles []rawRole, emojis []rawEmoji, stickers []rawSticker) *Scan {
	var (
		categoryChannels []rawChannel
		plainChannels    []rawChannel
	)

	for _, ch := range channels {
		if ch.Type == channelTypeCategory {
			categoryChannels = append(categoryChannels, ch)
		} else {
			plainChannels = append(plainChannels, ch)
		}
	}

	sort.SliceStable(categoryChannels, func(i, j int) bool {
		return categoryChannels[i].Position < categoryChannels[j].Position
	})
	sort.SliceStable(plainChannels, func(i, j int) bool {
		return plainChannels[i].Position < plainChannels[j].Position
	})

	var categories []Category

	var uncategorized []Channel
	for _, ch := range plainChannels {
		if ch.ParentID == "" {
			uncategorized = append(uncategorized, convertChannel(ch))
		}
	}

	if len(uncategorized) > 0 {
		categories = append(categories, Category{
			Name:     uncategorizedName,
			Position: -1,
			Channels: uncategorized,
		})
	}

	for _, cat := range categoryChannels {
		organized := Category{
			ID:       cat.ID,
			Name:     cat.Name,
			Position: cat.Position,
		}

		for _, ch := range plainChannels {
			if ch.ParentID == cat.ID {
				organized.Channels = append(organized.Channels, convertChannel(ch))
			}
		}

		categories = append(categories, organized)
	}

	sortedRoles := make([]Role, 0, len(roles))

	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Position > roles[j].Position
	})

	for _, r := range roles {
		sortedRoles = append(sortedRoles, Role{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Position:    r.Position,
			Permissions: r.Permissions,
			Managed:     r.Managed,
			Hoist:       r.Hoist,
			Mentionable: r.Mentionable,
			IsDefault:   r.Name == everyoneRoleName,
		})
	}

	mappedEmojis := make([]Emoji, 0, len(emojis))
	for _, e := range emojis {
		ext := "png"
		if e.Animated {
			ext = "gif"
		}

		mappedEmojis = append(mappedEmojis, Emoji{
			ID:       e.ID,
			Name:     e.Name,
			Animated: e.Animated,
			URL:      fmt.Sprintf(emojiCDNPattern, e.ID, ext),
		})
	}

	mappedStickers := make([]Sticker, 0, len(stickers))
	for _, s := range stickers {
		mapped := Sticker{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			FormatType:  s.FormatType,
		}

		// Lottie stickers have no raster asset.
		if s.FormatType != stickerFormatLottie {
			ext := "png"
			if s.FormatType == stickerFormatGIF {
				ext = "gif"
			}

			mapped.URL = fmt.Sprintf(stickerCDNPattern, s.ID, ext)
		}

		mappedStickers = append(mappedStickers, mapped)
	}

	return &Scan{
		Guild: Guild{
			ID:          guild.ID,
			Name:        guild.Name,
			Icon:        guild.Icon,
			Banner:      guild.Banner,
			Splash:      guild.Splash,
			MemberCount: guild.MemberCount,
		},
		Categories: categories,
		Roles:      sortedRoles,
		Emojis:     mappedEmojis,
		Stickers:   mappedStickers,
		Summary: Summary{
			TotalChannels:   len(plainChannels),
			TotalCategories: len(categoryChannels),
			TotalRoles:      len(sortedRoles),
			TotalEmojis:     len(mappedEmojis),
			TotalStickers:   len(mappedStickers),
		},
	}
}

// IconURL returns the CDN URL for the guild icon, or "" if it has none.
func (g Guild) IconURL() string {
	if g.Icon == "" {
		return ""
	}

	return fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.png?size=512", g.ID, g.Icon)
}

// BannerURL returns the CDN URL for the guild banner, or "" if it has none.
func (g Guild) BannerURL() string {
	if g.Banner == "" {
		return ""
	}

	return fmt.Sprintf("https://cdn.discordapp.com/banners/%s/%s.png?size=1024", g.ID, g.Banner)
}
