package entity

import "time"

// GuildSettings is the per-guild configuration row, one per guild.
// Created with defaults on first contact, updated by admin commands and by
// the premium license gate.
type GuildSettings struct {
	GuildID                 int64      `json:"guild_id" bson:"guild_id"`
	GuildName               string     `json:"guild_name" bson:"guild_name"`
	JoinBurstCount          int        `json:"join_burst_count" bson:"join_burst_count"`
	JoinBurstWindowSeconds  int        `json:"join_burst_window_seconds" bson:"join_burst_window_seconds"`
	MinAccountAgeHours      int        `json:"min_account_age_hours" bson:"min_account_age_hours"`
	AutoKickYoungAccounts   bool       `json:"auto_kick_young_accounts" bson:"auto_kick_young_accounts"`
	LinkSpamThreshold       int        `json:"link_spam_threshold" bson:"link_spam_threshold"`
	LinkSpamWindowSeconds   int        `json:"link_spam_window_seconds" bson:"link_spam_window_seconds"`
	LockdownEnabled         bool       `json:"lockdown_enabled" bson:"lockdown_enabled"`
	LockdownSlowmodeSeconds int        `json:"lockdown_slowmode_seconds" bson:"lockdown_slowmode_seconds"`
	QuarantineRoleName      string     `json:"quarantine_role_name" bson:"quarantine_role_name"`
	SecurityLogChannelID    int64      `json:"security_log_channel_id" bson:"security_log_channel_id"`
	IsPremium               bool       `json:"is_premium" bson:"is_premium"`
	PremiumUntil            *time.Time `json:"premium_until,omitempty" bson:"premium_until,omitempty"`
	PremiumLicenseID        string     `json:"premium_license_id,omitempty" bson:"premium_license_id,omitempty"`
	UpdatedAt               time.Time  `json:"updated_at" bson:"updated_at"`
}
