package gateway

import "time"

// Event is one discrete delivery from the gateway collaborator.
type Event interface {
	EventType() string
}

const (
	EventGuildAvailable = "guild_available"
	EventInviteCreated  = "invite_created"
	EventInviteDeleted  = "invite_deleted"
	EventMemberJoined   = "member_joined"
	EventMemberLeft     = "member_left"
	EventMessagePosted  = "message_posted"
)

// GuildAvailable is delivered when the gateway sees a guild for the first
// time or reconnects to it.
type GuildAvailable struct {
	GuildID   int64  `json:"guild_id" validate:"required,gt=0"`
	GuildName string `json:"guild_name"`
}

type InviteCreated struct {
	GuildID int64  `json:"guild_id" validate:"required,gt=0"`
	Invite  Invite `json:"invite"`
}

type InviteDeleted struct {
	GuildID int64  `json:"guild_id" validate:"required,gt=0"`
	Code    string `json:"code" validate:"required"`
}

type MemberJoined struct {
	GuildID          int64     `json:"guild_id" validate:"required,gt=0"`
	MemberID         int64     `json:"member_id" validate:"required,gt=0"`
	Username         string    `json:"username"`
	AccountCreatedAt time.Time `json:"account_created_at"`
}

type MemberLeft struct {
	GuildID  int64 `json:"guild_id" validate:"required,gt=0"`
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
}

type MessagePosted struct {
	GuildID     int64  `json:"guild_id" validate:"required,gt=0"`
	ChannelID   int64  `json:"channel_id"`
	MessageID   int64  `json:"message_id"`
	AuthorID    int64  `json:"author_id"`
	AuthorIsBot bool   `json:"author_is_bot"`
	Content     string `json:"content"`
}

func (GuildAvailable) EventType() string { return EventGuildAvailable }
func (InviteCreated) EventType() string  { return EventInviteCreated }
func (InviteDeleted) EventType() string  { return EventInviteDeleted }
func (MemberJoined) EventType() string   { return EventMemberJoined }
func (MemberLeft) EventType() string     { return EventMemberLeft }
func (MessagePosted) EventType() string  { return EventMessagePosted }
