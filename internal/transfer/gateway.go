package transfer

import (
	"context"

	"github.com/stoatbridge/stoatbridge/internal/permset"
)

// DefaultRoleID addresses the target server's implicit everyone role in
// channel permission calls.
const DefaultRoleID = "default"

// RoleEdit carries the optional fields of a role update. Nil fields are left
// untouched on the remote side.
type RoleEdit struct {
	Colour *string
	Hoist  *bool
	Rank   *int
}

// ChannelSpec describes a channel to create on the target server.
type ChannelSpec struct {
	Name        string
	Kind        string // "Text" or "Voice"
	Description string
	NSFW        bool
}

// ServerRef is a server the authenticated account owns on the target side.
type ServerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClearSummary reports what a destructive server wipe removed.
type ClearSummary struct {
	ChannelsDeleted int `json:"channelsDeleted"`
	RolesDeleted    int `json:"rolesDeleted"`
}

// Gateway is the remote surface a run drives. The production implementation
// lives in the stoat package; tests substitute a scripted fake.
type Gateway interface {
	CreateServer(ctx context.Context, name, description string) (string, error)
	SetServerIcon(ctx context.Context, serverID, assetURL string) error
	SetServerBanner(ctx context.Context, serverID, assetURL string) error

	CreateRole(ctx context.Context, serverID, name string, rank int) (string, error)
	EditRole(ctx context.Context, serverID, roleID string, edit RoleEdit) error
	SetRolePermissions(ctx context.Context, serverID, roleID string, perms permset.Pair) error
	SetDefaultPermissions(ctx context.Context, serverID string, perms permset.Pair) error

	CreateCategory(ctx context.Context, serverID, name string) (string, error)
	CreateChannel(ctx context.Context, serverID string, spec ChannelSpec) (string, error)
	MoveChannelToCategory(ctx context.Context, serverID, categoryID, channelID string) error
	SetChannelPermissions(ctx context.Context, channelID, roleID string, perms permset.Pair) error

	CreateEmoji(ctx context.Context, serverID, name, assetURL string) error

	ClearServer(ctx context.Context, serverID string) (ClearSummary, error)
	ListServers(ctx context.Context) ([]ServerRef, error)
}
