package entity

import "time"

// SnapshotEntry is the best-known prior state of a single invite code.
type SnapshotEntry struct {
	Uses      int        `json:"uses" bson:"uses"`
	InviterID int64      `json:"inviter_id" bson:"inviter_id"`
	CreatedAt *time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	MaxUses   int        `json:"max_uses" bson:"max_uses"`
	Temporary bool       `json:"temporary" bson:"temporary"`
}

// InviteSnapshot maps invite code to its last observed state for a guild.
// Cache-resident; an absent snapshot is treated as an empty map.
type InviteSnapshot map[string]SnapshotEntry

// InviteRecord is the durable per (guild, code) invite row. Soft-deleted on
// the platform's invite-delete event so historical attribution keeps its
// inviter reference.
type InviteRecord struct {
	GuildID     int64      `json:"guild_id" bson:"guild_id"`
	InviteCode  string     `json:"invite_code" bson:"invite_code"`
	InviterID   int64      `json:"inviter_id" bson:"inviter_id"`
	Uses        int64      `json:"uses" bson:"uses"`
	MaxUses     int        `json:"max_uses" bson:"max_uses"`
	IsTemporary bool       `json:"is_temporary" bson:"is_temporary"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}
