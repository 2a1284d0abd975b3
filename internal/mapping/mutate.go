package mapping

import (
	"github.com/pkg/errors"

	"github.com/stoatbridge/stoatbridge/internal/permset"
)

var (
	// ErrChannelNotFound is returned when a mutation targets an unknown channel.
	ErrChannelNotFound = errors.New("channel not found in mapping")

	// ErrRoleNotFound is returned when a mutation targets an unknown role.
	ErrRoleNotFound = errors.New("role not found in mapping")

	// ErrUnsupportedChannel is returned when an unsupported channel is included.
	ErrUnsupportedChannel = errors.New("unsupported channels cannot be transferred")

	// ErrNameEmpty is returned when a rename would leave an empty name.
	ErrNameEmpty = errors.New("name cannot be empty")
)

// SetChannelIncluded toggles a channel's inclusion. Unsupported channels
// stay excluded.
func (c *Config) SetChannelIncluded(sourceID string, included bool) error {
	ch := c.FindChannel(sourceID)
	if ch == nil {
		return errors.Wrap(ErrChannelNotFound, sourceID)
	}

	if included && !ch.Kind.Transferable() {
		return ErrUnsupportedChannel
	}

	ch.Included = included

	return nil
}

// RenameChannel sets a channel's target name.
func (c *Config) RenameChannel(sourceID, name string) error {
	if name == "" {
		return ErrNameEmpty
	}

	ch := c.FindChannel(sourceID)
	if ch == nil {
		return errors.Wrap(ErrChannelNotFound, sourceID)
	}

	ch.Name = name

	return nil
}

// SetRoleIncluded toggles a role's inclusion. Managed roles cannot be
// included; the default role cannot be excluded.
func (c *Config) SetRoleIncluded(sourceID string, included bool) error {
	r := c.FindRole(sourceID)
	if r == nil {
		return errors.Wrap(ErrRoleNotFound, sourceID)
	}

	if included && r.Managed {
		return errors.Wrap(ErrRoleNotFound, "managed roles are not transferable")
	}

	if !included && r.IsDefault {
		return errors.Wrap(ErrRoleNotFound, "the default role always transfers")
	}

	r.Included = included

	return nil
}

// SetRolePermissions replaces a role's translated target permission pair.
func (c *Config) SetRolePermissions(sourceID string, target permset.Pair) error {
	r := c.FindRole(sourceID)
	if r == nil {
		return errors.Wrap(ErrRoleNotFound, sourceID)
	}

	r.Target = &target

	return nil
}

// CycleOverride advances one capability of a channel's per-role override
// through Inherit -> Allow -> Deny. Missing overrides start from a neutral
// entry; denying view forces send denied, clearing view clears send, per the
// view-gates-send rule.
func (c *Config) CycleOverride(channelID, roleID string, capability string) error {
	ch := c.FindChannel(channelID)
	if ch == nil {
		return errors.Wrap(ErrChannelNotFound, channelID)
	}

	role := c.FindRole(roleID)
	if role == nil {
		return errors.Wrap(ErrRoleNotFound, roleID)
	}

	idx := -1

	for i := range ch.Overrides {
		if ch.Overrides[i].RoleID == roleID {
			idx = i
			break
		}
	}

	if idx < 0 {
		ch.Overrides = append(ch.Overrides, Override{RoleID: roleID, RoleName: role.Name})
		idx = len(ch.Overrides) - 1
	}

	o := &ch.Overrides[idx]

	if capability == "send" {
		o.CanSend = o.CanSend.Cycle()
		return nil
	}

	o.CanView = o.CanView.Cycle()

	switch o.CanView {
	case permset.Deny:
		o.CanSend = permset.Deny
	case permset.Inherit:
		o.CanSend = permset.Inherit
	case permset.Allow:
	}

	return nil
}

// RemoveOverride drops a channel's per-role override entirely.
func (c *Config) RemoveOverride(channelID, roleID string) error {
	ch := c.FindChannel(channelID)
	if ch == nil {
		return errors.Wrap(ErrChannelNotFound, channelID)
	}

	for i := range ch.Overrides {
		if ch.Overrides[i].RoleID == roleID {
			ch.Overrides = append(ch.Overrides[:i], ch.Overrides[i+1:]...)
			return nil
		}
	}

	return nil
}

// AddCustomChannel appends an additive channel to the plan.
func (c *Config) AddCustomChannel(custom CustomChannel) error {
	if custom.Name == "" {
		return ErrNameEmpty
	}

	if custom.Kind != KindText && custom.Kind != KindVoice {
		return ErrUnsupportedChannel
	}

	c.CustomChannels = append(c.CustomChannels, custom)

	return nil
}

// AddCustomRole appends an additive role to the plan.
func (c *Config) AddCustomRole(custom CustomRole) error {
	if custom.Name == "" {
		return ErrNameEmpty
	}

	c.CustomRoles = append(c.CustomRoles, custom)

	return nil
}

// AddCustomCategory appends an additive category to the plan.
func (c *Config) AddCustomCategory(custom CustomCategory) error {
	if custom.Name == "" {
		return ErrNameEmpty
	}

	c.CustomCategories = append(c.CustomCategories, custom)

	return nil
}
