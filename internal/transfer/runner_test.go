package transfer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoatbridge/stoatbridge/internal/mapping"
	"github.com/stoatbridge/stoatbridge/internal/permset"
)

type permCall struct {
	Channel string
	Role    string
	Perms   permset.Pair
}

// fakeGateway records every call and fails on demand. Failures are keyed by
// method name, or by "method:item" to hit a single item.
type fakeGateway struct {
	calls []string
	perms []permCall
	fail  map[string]error
	seq   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{fail: map[string]error{}}
}

func (f *fakeGateway) failFor(keys ...string) error {
	for _, k := range keys {
		if err, ok := f.fail[k]; ok {
			return err
		}
	}

	return nil
}

func (f *fakeGateway) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeGateway) count(prefix string) int {
	n := 0

	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}

	return n
}

func (f *fakeGateway) nextID(prefix string) string {
	f.seq++

	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeGateway) CreateServer(_ context.Context, name, _ string) (string, error) {
	f.record("CreateServer:%s", name)

	if err := f.failFor("CreateServer"); err != nil {
		return "", err
	}

	return "srv1", nil
}

func (f *fakeGateway) SetServerIcon(_ context.Context, _, url string) error {
	f.record("SetServerIcon:%s", url)

	return f.failFor("SetServerIcon")
}

func (f *fakeGateway) SetServerBanner(_ context.Context, _, url string) error {
	f.record("SetServerBanner:%s", url)

	return f.failFor("SetServerBanner")
}

func (f *fakeGateway) CreateRole(_ context.Context, _, name string, rank int) (string, error) {
	f.record("CreateRole:%s:%d", name, rank)

	if err := f.failFor("CreateRole:"+name, "CreateRole"); err != nil {
		return "", err
	}

	return f.nextID("role"), nil
}

func (f *fakeGateway) EditRole(_ context.Context, _, roleID string, _ RoleEdit) error {
	f.record("EditRole:%s", roleID)

	return f.failFor("EditRole")
}

func (f *fakeGateway) SetRolePermissions(_ context.Context, _, roleID string, _ permset.Pair) error {
	f.record("SetRolePermissions:%s", roleID)

	return f.failFor("SetRolePermissions")
}

func (f *fakeGateway) SetDefaultPermissions(_ context.Context, _ string, _ permset.Pair) error {
	f.record("SetDefaultPermissions")

	return f.failFor("SetDefaultPermissions")
}

func (f *fakeGateway) CreateCategory(_ context.Context, _, name string) (string, error) {
	f.record("CreateCategory:%s", name)

	if err := f.failFor("CreateCategory:"+name, "CreateCategory"); err != nil {
		return "", err
	}

	return f.nextID("cat"), nil
}

func (f *fakeGateway) CreateChannel(_ context.Context, _ string, spec ChannelSpec) (string, error) {
	f.record("CreateChannel:%s:%s", spec.Name, spec.Kind)

	if err := f.failFor("CreateChannel:"+spec.Name, "CreateChannel"); err != nil {
		return "", err
	}

	return f.nextID("chan"), nil
}

func (f *fakeGateway) MoveChannelToCategory(_ context.Context, _, categoryID, channelID string) error {
	f.record("MoveChannelToCategory:%s:%s", categoryID, channelID)

	return f.failFor("MoveChannelToCategory")
}

func (f *fakeGateway) SetChannelPermissions(_ context.Context, channelID, roleID string, perms permset.Pair) error {
	f.record("SetChannelPermissions:%s:%s", channelID, roleID)

	if err := f.failFor("SetChannelPermissions"); err != nil {
		return err
	}

	f.perms = append(f.perms, permCall{Channel: channelID, Role: roleID, Perms: perms})

	return nil
}

func (f *fakeGateway) CreateEmoji(_ context.Context, _, name, _ string) error {
	f.record("CreateEmoji:%s", name)

	return f.failFor("CreateEmoji:"+name, "CreateEmoji")
}

func (f *fakeGateway) ClearServer(_ context.Context, _ string) (ClearSummary, error) {
	f.record("ClearServer")

	if err := f.failFor("ClearServer"); err != nil {
		return ClearSummary{}, err
	}

	return ClearSummary{ChannelsDeleted: 4, RolesDeleted: 2}, nil
}

func (f *fakeGateway) ListServers(_ context.Context) ([]ServerRef, error) {
	return []ServerRef{{ID: "srv1", Name: "Existing"}}, nil
}

func fastDelays() Delays {
	return Delays{
		Role:       time.Nanosecond,
		Category:   time.Nanosecond,
		Channel:    time.Nanosecond,
		Permission: time.Nanosecond,
		Asset:      time.Nanosecond,
		Move:       time.Nanosecond,
	}
}

func pair(allow, deny uint32) *permset.Pair {
	return &permset.Pair{Allow: allow, Deny: deny}
}

func testConfig() *mapping.Config {
	return &mapping.Config{
		ServerName:    "Acme Community",
		IncludeIcon:   true,
		SourceIconURL: "https://cdn.discordapp.com/icons/1/abc.png?size=512",
		Categories: []mapping.Category{
			{
				Name:     "Uncategorized",
				Included: true,
				Channels: []mapping.Channel{
					{SourceID: "ch-lobby", Name: "lobby", Included: true, Kind: mapping.KindText},
				},
			},
			{
				SourceID: "c-gen",
				Name:     "General",
				Included: true,
				Channels: []mapping.Channel{
					{
						SourceID: "ch-general",
						Name:     "general",
						Included: true,
						Kind:     mapping.KindText,
						Topic:    "talk here",
						Overrides: []mapping.Override{
							{RoleID: "r-mods", RoleName: "Moderators"},
						},
					},
					{
						SourceID: "ch-news",
						Name:     "news",
						Included: true,
						Kind:     mapping.KindAnnouncement,
						Overrides: []mapping.Override{
							{RoleID: "r-everyone", RoleName: "@everyone", CanSend: permset.Deny},
						},
					},
					{SourceID: "ch-stage", Name: "stage", Included: false, Kind: mapping.KindUnsupported},
				},
			},
			{
				SourceID: "c-staff",
				Name:     "Staff",
				Included: true,
				Channels: []mapping.Channel{
					{
						SourceID:  "ch-staff",
						Name:      "staff",
						Included:  true,
						Kind:      mapping.KindText,
						IsPrivate: true,
						Overrides: []mapping.Override{
							{RoleID: "r-everyone", RoleName: "@everyone", CanView: permset.Deny, CanSend: permset.Deny},
							{RoleID: "r-mods", RoleName: "Moderators", CanView: permset.Allow, CanSend: permset.Allow},
						},
					},
				},
			},
		},
		Roles: []mapping.Role{
			{SourceID: "r-admin", Name: "Admins", Included: true, Position: 5, Permissions: "8", Target: pair(permset.AllKnownBits, 0)},
			{
				SourceID:    "r-mods",
				Name:        "Moderators",
				Included:    true,
				Position:    4,
				Color:       0xff0000,
				Hoist:       true,
				Permissions: "3072",
				Target:      pair(permset.StoatViewChannel|permset.StoatSendMessage, 0),
			},
			{SourceID: "r-bot", Name: "helper-bot", Included: false, Managed: true, Permissions: "0"},
			{
				SourceID:    "r-everyone",
				Name:        "@everyone",
				Included:    true,
				IsDefault:   true,
				Permissions: "1024",
				Target:      pair(permset.DefaultChatterPermissions, 0),
			},
		},
		Emojis: []mapping.Emoji{
			{SourceID: "e1", Name: "stoat", Included: true, URL: "https://cdn.discordapp.com/emojis/e1.png?size=128"},
			{SourceID: "e2", Name: "blob", Included: false, URL: "https://cdn.discordapp.com/emojis/e2.png?size=128"},
		},
		CustomChannels: []mapping.CustomChannel{
			{Name: "welcome", Kind: mapping.KindText, CategoryID: "c-gen"},
		},
		CustomRoles: []mapping.CustomRole{
			{Name: "VIP", Color: "#00ff00", Target: pair(permset.DefaultChatterPermissions, 0)},
		},
		CustomCategories: []mapping.CustomCategory{
			{Name: "Archive"},
		},
	}
}

func run(t *testing.T, gw Gateway, cfg *mapping.Config, opts Options) *Report {
	t.Helper()

	opts.Delays = fastDelays()

	runner, err := NewRunner(gw, cfg, opts)
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	return report
}

func permsFor(perms []permCall, channel, role string) []permCall {
	var out []permCall

	for _, p := range perms {
		if p.Channel == channel && p.Role == role {
			out = append(out, p)
		}
	}

	return out
}

func TestNewRunnerValidation(t *testing.T) {
	gw := newFakeGateway()

	_, err := NewRunner(gw, nil, Options{})
	assert.ErrorIs(t, err, ErrNilMapping)

	_, err = NewRunner(gw, testConfig(), Options{Mode: ModeReplace})
	assert.ErrorIs(t, err, ErrMissingServerID)
}

func TestRunNewServer(t *testing.T) {
	gw := newFakeGateway()
	report := run(t, gw, testConfig(), Options{Mode: ModeNewServer})

	assert.Equal(t, "srv1", report.ServerID)
	assert.False(t, report.Aborted)

	assert.Equal(t, StatusSkipped, report.Stats[StepClear].Status)
	assert.Equal(t, 0, gw.count("ClearServer"))

	for _, step := range []Step{StepServer, StepBranding, StepRoles, StepCategories, StepChannels, StepPermissions, StepEmojis, StepCustom} {
		assert.Equal(t, StatusDone, report.Stats[step].Status, "step %s", step)
	}

	// Only non-default, non-managed roles get created remotely.
	assert.Equal(t, 2, gw.count("CreateRole:"))
	assert.Contains(t, report.RoleMap, "r-admin")
	assert.Contains(t, report.RoleMap, "r-mods")
	assert.NotContains(t, report.RoleMap, "r-everyone")
	assert.NotContains(t, report.RoleMap, "r-bot")
	assert.Equal(t, 1, gw.count("SetDefaultPermissions"))

	// The synthetic bucket is never created as a category.
	assert.Equal(t, 2, len(report.CategoryMap))
	assert.Equal(t, 0, gw.count("CreateCategory:Uncategorized"))

	// Unsupported channels stay behind, everything else lands in its
	// category; the bucket channel has no category to move into. The
	// fourth move is the custom welcome channel.
	assert.Equal(t, 4, len(report.ChannelMap))
	assert.NotContains(t, report.ChannelMap, "ch-stage")
	assert.Equal(t, 4, gw.count("MoveChannelToCategory:"))

	assert.Equal(t, 1, gw.count("SetServerIcon:"))
	assert.Equal(t, 1, gw.count("CreateEmoji:"))
	assert.Equal(t, 0, gw.count("CreateEmoji:blob"))

	// Custom channel, role and category.
	assert.Equal(t, 3, report.Stats[StepCustom].Success)
	assert.Equal(t, 1, gw.count("CreateChannel:welcome"))
	assert.Equal(t, 1, gw.count("CreateRole:VIP:0"))
	assert.Equal(t, 1, gw.count("CreateCategory:Archive"))
}

func TestRunPrivateChannelDefaultDeny(t *testing.T) {
	gw := newFakeGateway()
	report := run(t, gw, testConfig(), Options{})

	staffID := report.ChannelMap["ch-staff"]
	require.NotEmpty(t, staffID)

	defaults := permsFor(gw.perms, staffID, DefaultRoleID)
	require.Len(t, defaults, 1)
	assert.Equal(t, permset.Pair{Deny: permset.StoatViewChannel | permset.StoatSendMessage}, defaults[0].Perms)

	// The redundant view denial for the default role is never pushed per
	// role, only the moderator grant is.
	modID := report.RoleMap["r-mods"]
	grants := permsFor(gw.perms, staffID, modID)
	require.Len(t, grants, 1)
	assert.Equal(t, permset.Pair{Allow: permset.StoatViewChannel | permset.StoatSendMessage}, grants[0].Perms)
}

func TestRunPublicReadOnlyChannel(t *testing.T) {
	gw := newFakeGateway()
	report := run(t, gw, testConfig(), Options{})

	newsID := report.ChannelMap["ch-news"]
	require.NotEmpty(t, newsID)

	defaults := permsFor(gw.perms, newsID, DefaultRoleID)
	require.Len(t, defaults, 1)
	assert.Equal(t, permset.Pair{Allow: permset.StoatViewChannel, Deny: permset.StoatSendMessage}, defaults[0].Perms)
}

func TestRunNeutralOverrideSkipped(t *testing.T) {
	gw := newFakeGateway()
	report := run(t, gw, testConfig(), Options{})

	generalID := report.ChannelMap["ch-general"]
	require.NotEmpty(t, generalID)

	assert.Empty(t, permsFor(gw.perms, generalID, report.RoleMap["r-mods"]))
	assert.Empty(t, permsFor(gw.perms, generalID, DefaultRoleID))
	assert.NotZero(t, report.Stats[StepPermissions].Skipped)
}

func TestRunRoleFailureIsolation(t *testing.T) {
	gw := newFakeGateway()
	gw.fail["CreateRole:Admins"] = errors.New("boom")

	report := run(t, gw, testConfig(), Options{})

	st := report.Stats[StepRoles]
	assert.Equal(t, StatusDone, st.Status)
	assert.Equal(t, 1, st.Failed)
	require.Len(t, st.Errors, 1)
	assert.Contains(t, st.Errors[0], "Admins")

	assert.NotContains(t, report.RoleMap, "r-admin")
	assert.Contains(t, report.RoleMap, "r-mods")
}

func TestRunRoleMapSurvivesPatchFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.fail["EditRole"] = errors.New("boom")

	report := run(t, gw, testConfig(), Options{})

	// The admin role has no colour or hoist, so only the moderator patch
	// fails. Its id must still be mapped so later overrides resolve.
	modID := report.RoleMap["r-mods"]
	require.NotEmpty(t, modID)

	staffID := report.ChannelMap["ch-staff"]
	assert.Len(t, permsFor(gw.perms, staffID, modID), 1)
	assert.Equal(t, 1, report.Stats[StepRoles].Failed)
}

func TestRunFallbackRoleTranslation(t *testing.T) {
	cfg := testConfig()
	cfg.Roles[1].Target = nil // Moderators, raw bits 3072 = view|send

	gw := newFakeGateway()
	run(t, gw, cfg, Options{})

	// Admins and Moderators from the plan plus the custom VIP role.
	assert.Equal(t, 3, gw.count("SetRolePermissions:"))
}

func TestRunClearFatal(t *testing.T) {
	gw := newFakeGateway()
	gw.fail["ClearServer"] = errors.New("boom")

	runner, err := NewRunner(gw, testConfig(), Options{Mode: ModeReplace, ServerID: "srv9", Delays: fastDelays()})
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear")

	assert.Equal(t, StatusError, report.Stats[StepClear].Status)
	assert.Equal(t, StatusPending, report.Stats[StepServer].Status)
	assert.Equal(t, 0, gw.count("CreateRole:"))
}

func TestRunServerCreateFatal(t *testing.T) {
	gw := newFakeGateway()
	gw.fail["CreateServer"] = errors.New("boom")

	runner, err := NewRunner(gw, testConfig(), Options{Delays: fastDelays()})
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusError, report.Stats[StepServer].Status)
	assert.Equal(t, 0, gw.count("CreateRole:"))
}

func TestRunReplaceMode(t *testing.T) {
	gw := newFakeGateway()
	report := run(t, gw, testConfig(), Options{Mode: ModeReplace, ServerID: "srv9"})

	assert.Equal(t, "srv9", report.ServerID)
	assert.Equal(t, 1, gw.count("ClearServer"))
	require.NotNil(t, report.Clear)
	assert.Equal(t, 4, report.Clear.ChannelsDeleted)
	assert.Equal(t, 0, gw.count("CreateServer:"))
}

func TestRunMergeMode(t *testing.T) {
	gw := newFakeGateway()
	report := run(t, gw, testConfig(), Options{Mode: ModeMerge, ServerID: "srv9"})

	assert.Equal(t, "srv9", report.ServerID)
	assert.Equal(t, 0, gw.count("ClearServer"))
	assert.Equal(t, 0, gw.count("CreateServer:"))
}

func TestRunAbort(t *testing.T) {
	gw := newFakeGateway()
	ctx, cancel := context.WithCancel(context.Background())

	opts := Options{
		Delays: fastDelays(),
		Observer: func(step Step, status Status, _ StepStats) {
			if step == StepCategories && status == StatusRunning {
				cancel()
			}
		},
	}

	runner, err := NewRunner(gw, testConfig(), opts)
	require.NoError(t, err)

	report, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, StatusDone, report.Stats[StepRoles].Status)
	assert.Equal(t, StatusPending, report.Stats[StepChannels].Status)
	assert.Equal(t, 0, gw.count("CreateChannel:"))
}

func TestRunEmojiFailureMarksStep(t *testing.T) {
	cfg := testConfig()
	cfg.Emojis = append(cfg.Emojis, mapping.Emoji{SourceID: "e3", Name: "party", Included: true, URL: "https://cdn.discordapp.com/emojis/e3.gif?size=128"})

	gw := newFakeGateway()
	gw.fail["CreateEmoji:party"] = errors.New("boom")

	report := run(t, gw, cfg, Options{})

	st := report.Stats[StepEmojis]
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, 1, st.Success)
	assert.Equal(t, 1, st.Failed)
}

func TestRunNoEmojisSkipsStep(t *testing.T) {
	cfg := testConfig()
	cfg.Emojis = nil

	gw := newFakeGateway()
	report := run(t, gw, cfg, Options{})

	assert.Equal(t, StatusSkipped, report.Stats[StepEmojis].Status)
}

func TestRunObserverSeesTransitions(t *testing.T) {
	gw := newFakeGateway()

	var seen []Step

	opts := Options{
		Delays: fastDelays(),
		Observer: func(step Step, status Status, _ StepStats) {
			if status == StatusRunning {
				seen = append(seen, step)
			}
		},
	}

	runner, err := NewRunner(gw, testConfig(), opts)
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Steps, seen)
}
