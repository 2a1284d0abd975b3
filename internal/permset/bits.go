package permset

// Discord permission bits (64-bit space). Only the bits the codec inspects
// directly are named; the rest live in the translation table.
const (
	DiscordAdministrator uint64 = 1 << 3
	DiscordViewChannel   uint64 = 1 << 10
	DiscordSendMessages  uint64 = 1 << 11
)

// Stoat permission bits (32-bit space).
const (
	StoatManageChannel     uint32 = 1 << 0
	StoatManageServer      uint32 = 1 << 1
	StoatManagePermissions uint32 = 1 << 2
	StoatManageRole        uint32 = 1 << 3
	StoatKickMembers       uint32 = 1 << 6
	StoatBanMembers        uint32 = 1 << 7
	StoatTimeoutMembers    uint32 = 1 << 8
	StoatChangeNickname    uint32 = 1 << 10
	StoatManageNicknames   uint32 = 1 << 11
	StoatViewChannel       uint32 = 1 << 20
	StoatReadHistory       uint32 = 1 << 21
	StoatSendMessage       uint32 = 1 << 22
	StoatManageMessages    uint32 = 1 << 23
	StoatManageWebhooks    uint32 = 1 << 24
	StoatInviteOthers      uint32 = 1 << 25
	StoatSendEmbeds        uint32 = 1 << 26
	StoatUploadFiles       uint32 = 1 << 27
	StoatReact             uint32 = 1 << 29
	StoatConnect           uint32 = 1 << 30
	StoatSpeak             uint32 = 1 << 31
)

// AllKnownBits is the union of every Stoat permission bit the codec knows
// about. An administrator on the source side is granted all of them.
const AllKnownBits = StoatManageChannel | StoatManageServer | StoatManagePermissions |
	StoatManageRole | StoatKickMembers | StoatBanMembers | StoatTimeoutMembers |
	StoatChangeNickname | StoatManageNicknames | StoatViewChannel | StoatReadHistory |
	StoatSendMessage | StoatManageMessages | StoatManageWebhooks | StoatInviteOthers |
	StoatSendEmbeds | StoatUploadFiles | StoatReact | StoatConnect | StoatSpeak

// DefaultChatterPermissions is the allow set seeded for a plain member role:
// view, send, read history, react, embeds, uploads, nickname, voice.
const DefaultChatterPermissions = StoatViewChannel | StoatSendMessage | StoatReadHistory |
	StoatReact | StoatSendEmbeds | StoatUploadFiles | StoatChangeNickname |
	StoatConnect | StoatSpeak

// bitMapping is one entry of the Discord-to-Stoat translation table.
type bitMapping struct {
	Discord uint64
	Stoat   uint32
}

// translationTable is the versioned bit mapping between the two permission
// models. Entries may map many-to-one and one-to-many (1<<28 grants both
// permission and role management on the target side). It is data, not
// control flow, so it can be revised as either platform evolves.
var translationTable = []bitMapping{
	{1 << 0, StoatInviteOthers},    // CREATE_INSTANT_INVITE
	{1 << 1, StoatKickMembers},     // KICK_MEMBERS
	{1 << 2, StoatBanMembers},      // BAN_MEMBERS
	{1 << 4, StoatManageChannel},   // MANAGE_CHANNELS
	{1 << 5, StoatManageServer},    // MANAGE_GUILD
	{1 << 6, StoatReact},           // ADD_REACTIONS
	{1 << 10, StoatViewChannel},    // VIEW_CHANNEL
	{1 << 11, StoatSendMessage},    // SEND_MESSAGES
	{1 << 13, StoatManageMessages}, // MANAGE_MESSAGES
	{1 << 14, StoatSendEmbeds},     // EMBED_LINKS
	{1 << 15, StoatUploadFiles},    // ATTACH_FILES
	{1 << 16, StoatReadHistory},    // READ_MESSAGE_HISTORY
	{1 << 20, StoatConnect},        // CONNECT
	{1 << 21, StoatSpeak},          // SPEAK
	{1 << 26, StoatChangeNickname}, // CHANGE_NICKNAME
	{1 << 27, StoatManageNicknames},
	{1 << 28, StoatManagePermissions}, // MANAGE_ROLES
	{1 << 28, StoatManageRole},
	{1 << 29, StoatManageWebhooks},
	{1 << 40, StoatTimeoutMembers}, // MODERATE_MEMBERS
}
