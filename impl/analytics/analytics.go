package analytics

import (
	"context"
	"log/slog"
	"time"

	"inviteguard/entity"
	"inviteguard/lib/sl"
)

// Overview is the per-guild headline aggregate.
type Overview struct {
	GuildID         int64 `json:"guild_id"`
	TotalJoins      int64 `json:"total_joins"`
	TotalLeaves     int64 `json:"total_leaves"`
	TotalIncidents  int64 `json:"total_incidents"`
	TotalFraudFlags int64 `json:"total_fraud_flags"`
	IsPremium       bool  `json:"is_premium"`
}

// SecuritySnapshot bundles a guild's settings with its recent incidents.
type SecuritySnapshot struct {
	Settings        *entity.GuildSettings `json:"settings"`
	RecentIncidents []*entity.Incident    `json:"recent_incidents"`
}

// Database defines the read operations the analytics service depends on.
// Implemented by internal/database.
type Database interface {
	GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error)
	CountJoins(ctx context.Context, guildID int64) (int64, error)
	CountLeaves(ctx context.Context, guildID int64) (int64, error)
	CountIncidents(ctx context.Context, guildID int64) (int64, error)
	CountFraudFlags(ctx context.Context, guildID int64) (int64, error)
	ListGuildInvites(ctx context.Context, guildID int64) ([]*entity.InviteRecord, error)
	RecentIncidents(ctx context.Context, guildID int64, limit int) ([]*entity.Incident, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]*entity.UserInviteStats, error)
	ListIncidents(ctx context.Context, limit int) ([]*entity.Incident, error)
	SecurityWindow(ctx context.Context, guildID int64, since time.Time) (*entity.WindowStats, error)
}

// PremiumGate guards the premium-only aggregates.
type PremiumGate interface {
	RequirePremium(ctx context.Context, guildID int64) error
}

// Service serves the read-only query surface. Every method is a pure read
// with a bounded result size.
type Service struct {
	db      Database
	premium PremiumGate
	log     *slog.Logger
}

func New(db Database, premium PremiumGate, log *slog.Logger) *Service {
	return &Service{
		db:      db,
		premium: premium,
		log:     log.With(sl.Module("analytics")),
	}
}

// GuildOverview returns headline counters for a guild, or nil for an
// unknown guild.
func (s *Service) GuildOverview(ctx context.Context, guildID int64) (*Overview, error) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, nil
	}

	overview := &Overview{
		GuildID:   guildID,
		IsPremium: settings.IsPremium,
	}
	if overview.TotalJoins, err = s.db.CountJoins(ctx, guildID); err != nil {
		return nil, err
	}
	if overview.TotalLeaves, err = s.db.CountLeaves(ctx, guildID); err != nil {
		return nil, err
	}
	if overview.TotalIncidents, err = s.db.CountIncidents(ctx, guildID); err != nil {
		return nil, err
	}
	if overview.TotalFraudFlags, err = s.db.CountFraudFlags(ctx, guildID); err != nil {
		return nil, err
	}
	return overview, nil
}

// GuildInvites lists the guild's invite rows, most used first.
func (s *Service) GuildInvites(ctx context.Context, guildID int64) ([]*entity.InviteRecord, error) {
	return s.db.ListGuildInvites(ctx, guildID)
}

// GuildSecurity returns the guild's settings plus its 100 most recent
// incidents.
func (s *Service) GuildSecurity(ctx context.Context, guildID int64) (*SecuritySnapshot, error) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	incidents, err := s.db.RecentIncidents(ctx, guildID, 100)
	if err != nil {
		return nil, err
	}
	return &SecuritySnapshot{
		Settings:        settings,
		RecentIncidents: incidents,
	}, nil
}

// Leaderboard lists top inviters across all guilds.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*entity.UserInviteStats, error) {
	if limit <= 0 {
		limit = 25
	}
	return s.db.GlobalLeaderboard(ctx, limit)
}

// Incidents lists recent incidents across all guilds.
func (s *Service) Incidents(ctx context.Context, limit int) ([]*entity.Incident, error) {
	if limit <= 0 {
		limit = 200
	}
	return s.db.ListIncidents(ctx, limit)
}

// SecurityAnalytics returns the 24-hour incident and fraud aggregates.
// Premium only.
func (s *Service) SecurityAnalytics(ctx context.Context, guildID int64) (*entity.WindowStats, error) {
	if err := s.premium.RequirePremium(ctx, guildID); err != nil {
		return nil, err
	}
	return s.db.SecurityWindow(ctx, guildID, time.Now().UTC().Add(-24*time.Hour))
}
