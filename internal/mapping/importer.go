package mapping

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/stoatbridge/stoatbridge/internal/discord"
	"github.com/stoatbridge/stoatbridge/internal/permset"
)

var (
	// ErrNilScan is returned when BuildDefault is called without a snapshot.
	ErrNilScan = errors.New("scan snapshot is nil")

	// ErrScanMissingGuild is returned for snapshots without guild metadata.
	ErrScanMissingGuild = errors.New("scan snapshot is missing guild metadata")

	// ErrScanMissingRoles is returned for snapshots without a role list.
	ErrScanMissingRoles = errors.New("scan snapshot is missing the role list")
)

// parseBits parses a Discord decimal permission bitset string. Empty strings
// mean zero; anything non-numeric is a malformed snapshot.
func parseBits(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed permission bitset %q", s)
	}

	return v, nil
}

// BuildDefault projects a scan snapshot into the initial migration plan the
// user then edits. The projection is deterministic: importing the same scan
// twice yields structurally identical plans.
func BuildDefault(scan *discord.Scan) (*Config, error) {
	if scan == nil {
		return nil, ErrNilScan
	}

	if scan.Guild.ID == "" || scan.Guild.Name == "" {
		return nil, ErrScanMissingGuild
	}

	if len(scan.Roles) == 0 {
		return nil, ErrScanMissingRoles
	}

	cfg := &Config{
		ServerName:       scan.Guild.Name,
		IncludeIcon:      scan.Guild.Icon != "",
		IncludeBanner:    scan.Guild.Banner != "",
		SourceIconURL:    scan.Guild.IconURL(),
		SourceBannerURL:  scan.Guild.BannerURL(),
		Categories:       make([]Category, 0, len(scan.Categories)),
		Roles:            make([]Role, 0, len(scan.Roles)),
		Emojis:           make([]Emoji, 0, len(scan.Emojis)),
		CustomChannels:   []CustomChannel{},
		CustomRoles:      []CustomRole{},
		CustomCategories: []CustomCategory{},
	}

	for _, cat := range scan.Categories {
		mapped := Category{
			SourceID: cat.ID,
			Name:     cat.Name,
			Included: true,
			Channels: make([]Channel, 0, len(cat.Channels)),
		}

		for _, ch := range cat.Channels {
			converted, err := convertChannel(ch, scan.Roles)
			if err != nil {
				return nil, errors.Wrapf(err, "channel %q", ch.Name)
			}

			mapped.Channels = append(mapped.Channels, converted)
		}

		cfg.Categories = append(cfg.Categories, mapped)
	}

	for _, r := range scan.Roles {
		bits, err := parseBits(r.Permissions)
		if err != nil {
			return nil, errors.Wrapf(err, "role %q", r.Name)
		}

		seed := permset.TranslateRolePermissions(bits)

		included := !r.Managed
		if r.IsDefault {
			// The default role always transfers; it maps onto the target's
			// implicit base role, not a created role object.
			included = true
		}

		cfg.Roles = append(cfg.Roles, Role{
			SourceID:    r.ID,
			Name:        r.Name,
			Included:    included,
			Color:       r.Color,
			Managed:     r.Managed,
			IsDefault:   r.IsDefault,
			Position:    r.Position,
			Hoist:       r.Hoist,
			Permissions: r.Permissions,
			Target:      &seed,
		})
	}

	for _, e := range scan.Emojis {
		cfg.Emojis = append(cfg.Emojis, Emoji{
			SourceID: e.ID,
			Name:     e.Name,
			Included: true,
			URL:      e.URL,
			Animated: e.Animated,
		})
	}

	return cfg, nil
}

// convertChannel projects one scanned channel: default inclusion by kind,
// privacy inference from the @everyone overwrite, override derivation.
func convertChannel(ch discord.Channel, roles []discord.Role) (Channel, error) {
	kind := kindOf(ch.TypeName)

	isPrivate, err := inferPrivate(ch.Overwrites, roles)
	if err != nil {
		return Channel{}, err
	}

	overrides, err := convertOverwrites(ch.Overwrites, roles)
	if err != nil {
		return Channel{}, err
	}

	return Channel{
		SourceID:  ch.ID,
		Name:      ch.Name,
		Included:  kind.Transferable(),
		Kind:      kind,
		Topic:     ch.Topic,
		NSFW:      ch.NSFW,
		IsPrivate: isPrivate,
		Overrides: overrides,
	}, nil
}

// findEveryoneOverwrite locates the @everyone role overwrite: a role-typed
// entry whose id matches the default role, or, if the scan has none flagged,
// an id matching no known role (the @everyone id equals the guild id, which
// is never a listed role id).
func findEveryoneOverwrite(overwrites []discord.Overwrite, roles []discord.Role) *discord.Overwrite {
	var defaultID string

	known := make(map[string]bool, len(roles))

	for _, r := range roles {
		known[r.ID] = true

		if r.IsDefault {
			defaultID = r.ID
		}
	}

	for i, ow := range overwrites {
		if ow.Type != 0 {
			continue
		}

		if defaultID != "" {
			if ow.ID == defaultID {
				return &overwrites[i]
			}
		} else if !known[ow.ID] {
			return &overwrites[i]
		}
	}

	return nil
}

// inferPrivate reports whether the channel's @everyone overwrite denies view.
func inferPrivate(overwrites []discord.Overwrite, roles []discord.Role) (bool, error) {
	everyone := findEveryoneOverwrite(overwrites, roles)
	if everyone == nil {
		return false, nil
	}

	deny, err := parseBits(everyone.Deny)
	if err != nil {
		return false, err
	}

	return deny&permset.DiscordViewChannel != 0, nil
}

// triState derives one capability's tri-state from an overwrite's masks:
// deny wins, then allow, otherwise inherited.
func triState(allow, deny, bit uint64) permset.TriState {
	switch {
	case deny&bit != 0:
		return permset.Deny
	case allow&bit != 0:
		return permset.Allow
	default:
		return permset.Inherit
	}
}

// convertOverwrites derives tri-state per-role overrides from the raw
// overwrite list.
//
// Administrator roles are left out on non-private channels (they can see
// everything anyway); once the channel denies @everyone view, access must be
// explicit for every role, so they flow through the normal rules. The
// default role gets an entry whenever it has any raw overwrite at all, even
// a fully inherited one, since its presence marks an authored channel
// policy. Every other role needs an explicit raw entry; absence means
// Inherit and is not stored.
func convertOverwrites(overwrites []discord.Overwrite, roles []discord.Role) ([]Override, error) {
	if len(overwrites) == 0 {
		return nil, nil
	}

	everyone := findEveryoneOverwrite(overwrites, roles)

	var everyoneAllow, everyoneDeny uint64

	if everyone != nil {
		var err error

		if everyoneAllow, err = parseBits(everyone.Allow); err != nil {
			return nil, err
		}

		if everyoneDeny, err = parseBits(everyone.Deny); err != nil {
			return nil, err
		}
	}

	baseDenyView := everyoneDeny&permset.DiscordViewChannel != 0

	byRole := make(map[string]*discord.Overwrite, len(overwrites))

	for i, ow := range overwrites {
		if ow.Type != 0 {
			continue // member overwrites do not carry across
		}

		if everyone != nil && ow.ID == everyone.ID {
			continue
		}

		byRole[ow.ID] = &overwrites[i]
	}

	var result []Override

	for _, role := range roles {
		if role.IsDefault {
			if everyone != nil {
				result = append(result, Override{
					RoleID:   role.ID,
					RoleName: role.Name,
					CanView:  triState(everyoneAllow, everyoneDeny, permset.DiscordViewChannel),
					CanSend:  triState(everyoneAllow, everyoneDeny, permset.DiscordSendMessages),
				})
			}

			continue
		}

		bits, err := parseBits(role.Permissions)
		if err != nil {
			return nil, errors.Wrapf(err, "role %q", role.Name)
		}

		if bits&permset.DiscordAdministrator != 0 && !baseDenyView {
			continue
		}

		specific := byRole[role.ID]
		if specific == nil {
			continue
		}

		allow, err := parseBits(specific.Allow)
		if err != nil {
			return nil, err
		}

		deny, err := parseBits(specific.Deny)
		if err != nil {
			return nil, err
		}

		result = append(result, Override{
			RoleID:   role.ID,
			RoleName: role.Name,
			CanView:  triState(allow, deny, permset.DiscordViewChannel),
			CanSend:  triState(allow, deny, permset.DiscordSendMessages),
		})
	}

	return result, nil
}
