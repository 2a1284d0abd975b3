package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoatbridge/stoatbridge/internal/permset"
)

func buildTestConfig(t *testing.T) *Config {
	t.Helper()

	cfg, err := BuildDefault(testScan())
	require.NoError(t, err)

	return cfg
}

func TestSetChannelIncluded(t *testing.T) {
	cfg := buildTestConfig(t)

	require.NoError(t, cfg.SetChannelIncluded("general", false))
	assert.False(t, cfg.FindChannel("general").Included)

	assert.ErrorIs(t, cfg.SetChannelIncluded("stage", true), ErrUnsupportedChannel)
	assert.ErrorIs(t, cfg.SetChannelIncluded("missing", true), ErrChannelNotFound)
}

func TestRenameChannel(t *testing.T) {
	cfg := buildTestConfig(t)

	require.NoError(t, cfg.RenameChannel("general", "lobby"))
	assert.Equal(t, "lobby", cfg.FindChannel("general").Name)

	assert.ErrorIs(t, cfg.RenameChannel("general", ""), ErrNameEmpty)
}

func TestSetRoleIncluded(t *testing.T) {
	cfg := buildTestConfig(t)

	require.NoError(t, cfg.SetRoleIncluded("mods", false))
	assert.False(t, cfg.FindRole("mods").Included)

	assert.Error(t, cfg.SetRoleIncluded("bot", true), "managed roles stay excluded")
	assert.Error(t, cfg.SetRoleIncluded("everyone", false), "default role stays included")
}

func TestSetRolePermissions(t *testing.T) {
	cfg := buildTestConfig(t)

	want := permset.Pair{Allow: permset.StoatViewChannel}
	require.NoError(t, cfg.SetRolePermissions("mods", want))
	assert.Equal(t, want, *cfg.FindRole("mods").Target)
}

func TestCycleOverride_ViewGatesSend(t *testing.T) {
	cfg := buildTestConfig(t)

	// No override yet: first cycle creates one at Allow.
	require.NoError(t, cfg.CycleOverride("general", "mods", "view"))

	ch := cfg.FindChannel("general")
	require.Len(t, ch.Overrides, 1)
	assert.Equal(t, permset.Allow, ch.Overrides[0].CanView)

	// Allow -> Deny forces send denied.
	require.NoError(t, cfg.CycleOverride("general", "mods", "send"))
	require.NoError(t, cfg.CycleOverride("general", "mods", "view"))
	assert.Equal(t, permset.Deny, ch.Overrides[0].CanView)
	assert.Equal(t, permset.Deny, ch.Overrides[0].CanSend)

	// Deny -> Inherit clears send as well.
	require.NoError(t, cfg.CycleOverride("general", "mods", "view"))
	assert.True(t, ch.Overrides[0].Neutral())
}

func TestRemoveOverride(t *testing.T) {
	cfg := buildTestConfig(t)

	staff := cfg.FindChannel("staff")
	before := len(staff.Overrides)
	require.NotZero(t, before)

	require.NoError(t, cfg.RemoveOverride("staff", "mods"))
	assert.Len(t, cfg.FindChannel("staff").Overrides, before-1)

	// Removing a missing override is a no-op.
	require.NoError(t, cfg.RemoveOverride("staff", "mods"))
}

func TestAddCustomEntities(t *testing.T) {
	cfg := buildTestConfig(t)

	require.NoError(t, cfg.AddCustomChannel(CustomChannel{Name: "suggestions", Kind: KindText}))
	assert.ErrorIs(t, cfg.AddCustomChannel(CustomChannel{Name: "bad", Kind: KindAnnouncement}), ErrUnsupportedChannel)
	assert.ErrorIs(t, cfg.AddCustomChannel(CustomChannel{Kind: KindText}), ErrNameEmpty)

	require.NoError(t, cfg.AddCustomRole(CustomRole{Name: "VIP", Color: "#ffcc00"}))
	assert.ErrorIs(t, cfg.AddCustomRole(CustomRole{}), ErrNameEmpty)

	require.NoError(t, cfg.AddCustomCategory(CustomCategory{Name: "Archive"}))
	assert.ErrorIs(t, cfg.AddCustomCategory(CustomCategory{}), ErrNameEmpty)
}
