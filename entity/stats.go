package entity

import "time"

// UserInviteStats holds per (guild, user) aggregate invite counters.
// Counters are only ever incremented by event handlers; the invariant
// Total == Real + Fake holds because every join path bumps Total together
// with exactly one of Real/Fake. NetInvites is derived on read.
type UserInviteStats struct {
	GuildID    int64     `json:"guild_id" bson:"guild_id"`
	UserID     int64     `json:"user_id" bson:"user_id"`
	Total      int64     `json:"total_invites" bson:"total_invites"`
	Real       int64     `json:"real_invites" bson:"real_invites"`
	Fake       int64     `json:"fake_invites" bson:"fake_invites"`
	Leaves     int64     `json:"leaves" bson:"leaves"`
	Rejoins    int64     `json:"rejoins" bson:"rejoins"`
	Bonus      int64     `json:"bonus_invites" bson:"bonus_invites"`
	NetInvites int64     `json:"net_invites" bson:"net_invites,omitempty"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// Net recomputes real + bonus - fake - leaves from the counters.
func (s *UserInviteStats) Net() int64 {
	return s.Real + s.Bonus - s.Fake - s.Leaves
}

// BonusInvite is the immutable audit record of a manual credit or debit to a
// user's invite count. Always written alongside the matching counter update.
type BonusInvite struct {
	GuildID   int64     `json:"guild_id" bson:"guild_id"`
	UserID    int64     `json:"user_id" bson:"user_id"`
	Amount    int64     `json:"amount" bson:"amount"`
	Reason    string    `json:"reason" bson:"reason"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
