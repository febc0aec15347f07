package gateway

import (
	"context"
	"errors"
	"time"
)

// ErrPermissionDenied is returned by Platform methods when the chat platform
// rejects a mutating action. Callers treat it as a logged, non-fatal outcome
// and continue with their remaining work.
var ErrPermissionDenied = errors.New("permission denied by platform")

// Invite is the platform's view of an invite link.
type Invite struct {
	GuildID   int64      `json:"guild_id"`
	Code      string     `json:"code"`
	InviterID int64      `json:"inviter_id"`
	Uses      int        `json:"uses"`
	MaxUses   int        `json:"max_uses"`
	Temporary bool       `json:"temporary"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Channel is the platform's view of a guild channel. Only text-capable
// channels carry a slowmode value.
type Channel struct {
	ID              int64  `json:"id"`
	GuildID         int64  `json:"guild_id"`
	Name            string `json:"name"`
	Text            bool   `json:"text"`
	SlowmodeSeconds int    `json:"slowmode_seconds"`
}

// Role is the platform's view of a guild role.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Platform is the outbound boundary to the chat-platform gateway. Every call
// is a suspension point; mutating calls may fail with ErrPermissionDenied.
type Platform interface {
	GuildInvites(ctx context.Context, guildID int64) ([]Invite, error)
	DeleteInvite(ctx context.Context, guildID int64, code, reason string) error
	TextChannels(ctx context.Context, guildID int64) ([]Channel, error)
	EditChannelSlowmode(ctx context.Context, channelID int64, seconds int, reason string) error
	KickMember(ctx context.Context, guildID, memberID int64, reason string) error
	TimeoutMember(ctx context.Context, guildID, memberID int64, until time.Time, reason string) error
	GuildRoles(ctx context.Context, guildID int64) ([]Role, error)
	AddMemberRole(ctx context.Context, guildID, memberID, roleID int64, reason string) error
	SendChannelMessage(ctx context.Context, channelID int64, content string) error
}
