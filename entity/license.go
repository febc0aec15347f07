package entity

import "time"

// PremiumLicense is a durable license row. The raw key is never stored, only
// its SHA-256 hash. ActivatedGuildIDs grows append-only; there is no
// deactivation path in this engine.
type PremiumLicense struct {
	ID                string     `json:"id" bson:"id"`
	KeyHash           string     `json:"-" bson:"key_hash"`
	IsActive          bool       `json:"is_active" bson:"is_active"`
	MaxGuilds         int        `json:"max_guilds" bson:"max_guilds"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	ActivatedGuildIDs []int64    `json:"activated_guild_ids" bson:"activated_guild_ids"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// Expired reports whether the license has an expiry in the past.
func (l *PremiumLicense) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
