package entity

import "time"

// JoinEvent is the append-only audit row written for every member join.
// Never mutated after insert.
type JoinEvent struct {
	GuildID    int64     `json:"guild_id" bson:"guild_id"`
	MemberID   int64     `json:"member_id" bson:"member_id"`
	InviteCode string    `json:"invite_code,omitempty" bson:"invite_code,omitempty"`
	InviterID  int64     `json:"inviter_id,omitempty" bson:"inviter_id,omitempty"`
	JoinedAt   time.Time `json:"joined_at" bson:"joined_at"`
	Confidence float64   `json:"attribution_confidence" bson:"attribution_confidence"`
	Reason     string    `json:"attribution_reason" bson:"attribution_reason"`
	IsFake     bool      `json:"is_fake" bson:"is_fake"`
	IsRejoin   bool      `json:"is_rejoin" bson:"is_rejoin"`
}

// LeaveEvent is the append-only audit row written for every member leave,
// carrying forward the member's most recent attributed inviter.
type LeaveEvent struct {
	GuildID   int64     `json:"guild_id" bson:"guild_id"`
	MemberID  int64     `json:"member_id" bson:"member_id"`
	InviterID int64     `json:"inviter_id,omitempty" bson:"inviter_id,omitempty"`
	LeftAt    time.Time `json:"left_at" bson:"left_at"`
}
