package permset

// Pair is a Stoat allow/deny permission bitset pair. A bit set in both masks
// is ambiguous; the remote platform resolves it, with deny expected to win.
type Pair struct {
	Allow uint32 `json:"allow"`
	Deny  uint32 `json:"deny"`
}

// Union returns the pair with both masks OR-ed with those of other.
func (p Pair) Union(other Pair) Pair {
	return Pair{Allow: p.Allow | other.Allow, Deny: p.Deny | other.Deny}
}

// IsZero reports whether neither mask carries any bit.
func (p Pair) IsZero() bool {
	return p.Allow == 0 && p.Deny == 0
}

// TranslateRolePermissions maps a Discord role permission bitset onto a Stoat
// allow mask. Administrator expands to every known Stoat bit: the two models
// are not isomorphic and a partial translation would silently under-grant.
// Bits without a table entry are dropped. Role translation never produces
// deny bits; deny is reserved for per-channel overrides.
func TranslateRolePermissions(discordPerms uint64) Pair {
	if discordPerms&DiscordAdministrator != 0 {
		return Pair{Allow: AllKnownBits}
	}

	var allow uint32

	for _, m := range translationTable {
		if discordPerms&m.Discord != 0 {
			allow |= m.Stoat
		}
	}

	return Pair{Allow: allow}
}

// TranslateOverwrite maps a Discord channel overwrite's allow and deny masks
// independently through the translation table. Channel overwrites carry no
// administrator bit, so no special case applies.
func TranslateOverwrite(discordAllow, discordDeny uint64) Pair {
	var allow, deny uint32

	for _, m := range translationTable {
		if discordAllow&m.Discord != 0 {
			allow |= m.Stoat
		}

		if discordDeny&m.Discord != 0 {
			deny |= m.Stoat
		}
	}

	return Pair{Allow: allow, Deny: deny}
}

// EncodeOverride converts a (view, send) tri-state pair into a Stoat
// permission pair for a channel override.
//
// View gates send: denying view denies send as well, since sending is
// meaningless in an invisible channel, and an explicit send state is only
// encoded while view is not denied. Inherit leaves bits unset in both masks.
func EncodeOverride(view, send TriState) Pair {
	var p Pair

	switch view {
	case Deny:
		p.Deny |= StoatViewChannel | StoatSendMessage
		return p
	case Allow:
		p.Allow |= StoatViewChannel
	case Inherit:
	}

	switch send {
	case Allow:
		p.Allow |= StoatSendMessage
	case Deny:
		p.Deny |= StoatSendMessage
	case Inherit:
	}

	return p
}
