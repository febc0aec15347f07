package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"inviteguard/entity"
	"inviteguard/gateway"
	"inviteguard/lib/clock"
	"inviteguard/lib/sl"
)

// linkPattern matches URL-like or platform-invite-like message content.
var linkPattern = regexp.MustCompile(`(?i)https?://|discord\.gg/`)

// Database defines the storage operations the security service depends on.
// Implemented by internal/database.
type Database interface {
	GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error)
	SetLockdown(ctx context.Context, guildID int64, enabled bool) error
	SetLogChannel(ctx context.Context, guildID, channelID int64) error
	InsertIncident(ctx context.Context, incident *entity.Incident) error
	IncidentsSince(ctx context.Context, guildID int64, since time.Time) ([]*entity.Incident, error)
	HasFraudFlag(ctx context.Context, memberID int64, reason string) (bool, error)
	FraudScores(ctx context.Context, guildID int64, limit int) ([]*entity.FraudScore, error)
}

// Cache provides sliding-window counters and the lockdown slowmode backup.
type Cache interface {
	RecordAndCount(key string, window time.Duration) int
	SetSlowmodeBackup(guildID int64, backup map[int64]int)
	SlowmodeBackup(guildID int64) map[int64]int
}

// PremiumGate guards premium-only checks. Implemented by impl/premium.
type PremiumGate interface {
	RequirePremium(ctx context.Context, guildID int64) error
}

// Config carries the non-per-guild security knobs.
type Config struct {
	TimeoutMinutes        int
	DefaultQuarantineRole string
}

// Service runs abuse detection and drives the lockdown state machine.
type Service struct {
	db       Database
	cache    Cache
	platform gateway.Platform
	premium  PremiumGate
	conf     Config
	log      *slog.Logger
}

func New(db Database, cache Cache, platform gateway.Platform, premium PremiumGate, conf Config, log *slog.Logger) *Service {
	if conf.TimeoutMinutes <= 0 {
		conf.TimeoutMinutes = 30
	}
	return &Service{
		db:       db,
		cache:    cache,
		platform: platform,
		premium:  premium,
		conf:     conf,
		log:      log.With(sl.Module("security")),
	}
}

// GuildSettings returns the settings row, or nil when the guild has not been
// seen yet.
func (s *Service) GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error) {
	return s.db.GuildSettings(ctx, guildID)
}

// IsLockdown reports the lockdown flag; unknown guilds are unlocked.
func (s *Service) IsLockdown(ctx context.Context, guildID int64) (bool, error) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	return settings != nil && settings.LockdownEnabled, nil
}

// LogIncident appends one immutable incident row.
func (s *Service) LogIncident(ctx context.Context, guildID int64, incidentType string, severity entity.Severity, message string, actorID int64, metadata map[string]any) error {
	return s.db.InsertIncident(ctx, &entity.Incident{
		GuildID:   guildID,
		Type:      incidentType,
		Severity:  severity,
		ActorID:   actorID,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
}

// PostSecurityLog sends content to the guild's configured log channel.
// A missing channel or a send failure never fails the caller.
func (s *Service) PostSecurityLog(ctx context.Context, guildID int64, content string) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		s.log.With(sl.Guild(guildID)).Error("load settings for security log", sl.Err(err))
		return
	}
	if settings == nil || settings.SecurityLogChannelID == 0 {
		return
	}
	if err = s.platform.SendChannelMessage(ctx, settings.SecurityLogChannelID, content); err != nil {
		s.log.With(sl.Guild(guildID)).Warn("posting security log", sl.Err(err))
	}
}

// SetLogChannel points the guild's security log at a channel.
func (s *Service) SetLogChannel(ctx context.Context, guildID, channelID int64) error {
	return s.db.SetLogChannel(ctx, guildID, channelID)
}

// CheckJoinBurst records the join in the guild's window and reports whether
// the burst threshold is reached. Guilds without settings are skipped.
func (s *Service) CheckJoinBurst(ctx context.Context, guildID int64) (bool, error) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	if settings == nil {
		return false, nil
	}

	key := fmt.Sprintf("security:joins:%d", guildID)
	window := time.Duration(settings.JoinBurstWindowSeconds) * time.Second
	count := s.cache.RecordAndCount(key, window)

	return count >= settings.JoinBurstCount, nil
}

// EnforceAccountAge flags accounts younger than the guild's minimum and
// auto-kicks them when configured. Returns true only when the member was
// kicked; kick permission failures are logged, never escalated.
func (s *Service) EnforceAccountAge(ctx context.Context, guildID, memberID int64, accountCreatedAt time.Time) (bool, error) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	if settings == nil {
		return false, nil
	}

	ageHours := clock.AgeHours(accountCreatedAt, time.Now().UTC())
	if ageHours >= float64(settings.MinAccountAgeHours) {
		return false, nil
	}

	if err = s.LogIncident(ctx, guildID, "young_account_detected", entity.SeverityMedium,
		fmt.Sprintf("User %d account age %.1fh below threshold %dh", memberID, ageHours, settings.MinAccountAgeHours),
		memberID,
		map[string]any{"age_hours": ageHours, "required_hours": settings.MinAccountAgeHours},
	); err != nil {
		return false, err
	}

	if !settings.AutoKickYoungAccounts {
		return false, nil
	}

	if err = s.platform.KickMember(ctx, guildID, memberID, "Account too new during security policy enforcement"); err != nil {
		s.log.With(sl.Guild(guildID), sl.Member(memberID)).Warn("kicking young account", sl.Err(err))
		return false, nil
	}

	if err = s.LogIncident(ctx, guildID, "young_account_kicked", entity.SeverityHigh,
		fmt.Sprintf("Auto-kicked user %d for young account", memberID), memberID, nil,
	); err != nil {
		return true, err
	}
	s.PostSecurityLog(ctx, guildID, fmt.Sprintf("[SECURITY] Auto-kicked <@%d> for account age below threshold.", memberID))
	return true, nil
}

// ApplyQuarantineIfLockdown assigns the quarantine role to a joining member
// while the guild is locked. A missing role or a denied assignment is
// skipped silently apart from a log line.
func (s *Service) ApplyQuarantineIfLockdown(ctx context.Context, guildID, memberID int64) error {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return err
	}
	if settings == nil || !settings.LockdownEnabled {
		return nil
	}

	roleName := settings.QuarantineRoleName
	if roleName == "" {
		roleName = s.conf.DefaultQuarantineRole
	}

	roles, err := s.platform.GuildRoles(ctx, guildID)
	if err != nil {
		s.log.With(sl.Guild(guildID)).Warn("listing roles for quarantine", sl.Err(err))
		return nil
	}
	var roleID int64
	for _, role := range roles {
		if role.Name == roleName {
			roleID = role.ID
			break
		}
	}
	if roleID == 0 {
		return nil
	}

	if err = s.platform.AddMemberRole(ctx, guildID, memberID, roleID, "Lockdown quarantine"); err != nil {
		s.log.With(sl.Guild(guildID), sl.Member(memberID)).Warn("assigning quarantine role", sl.Err(err))
	}
	return nil
}

// HandleLinkSpam counts link-bearing messages per (guild, author) and times
// the author out once the threshold is reached. Bot authors and linkless
// messages are ignored; timeout permission failures are logged, not
// escalated.
func (s *Service) HandleLinkSpam(ctx context.Context, msg gateway.MessagePosted) error {
	if msg.AuthorIsBot || !linkPattern.MatchString(msg.Content) {
		return nil
	}

	settings, err := s.db.GuildSettings(ctx, msg.GuildID)
	if err != nil {
		return err
	}
	if settings == nil {
		return nil
	}

	key := fmt.Sprintf("security:links:%d:%d", msg.GuildID, msg.AuthorID)
	window := time.Duration(settings.LinkSpamWindowSeconds) * time.Second
	count := s.cache.RecordAndCount(key, window)
	if count < settings.LinkSpamThreshold {
		return nil
	}

	until := time.Now().UTC().Add(time.Duration(s.conf.TimeoutMinutes) * time.Minute)
	if err = s.platform.TimeoutMember(ctx, msg.GuildID, msg.AuthorID, until, "Repeated link spam detected"); err != nil {
		s.log.With(sl.Guild(msg.GuildID), sl.Member(msg.AuthorID)).Warn("timing out link spammer", sl.Err(err))
		return nil
	}

	if err = s.LogIncident(ctx, msg.GuildID, "link_spam_timeout", entity.SeverityHigh,
		fmt.Sprintf("Timed out user %d after repeated links", msg.AuthorID),
		msg.AuthorID,
		map[string]any{"message_id": msg.MessageID, "count": count},
	); err != nil {
		return err
	}
	s.PostSecurityLog(ctx, msg.GuildID, fmt.Sprintf("[SECURITY] Timed out <@%d> for repeated link spam.", msg.AuthorID))
	return nil
}

// CheckCrossServerBlacklist looks the member up in the global fraud-flag
// store. Runs unattended on every join, so a guild without premium gets a
// silent "no match" instead of an error.
func (s *Service) CheckCrossServerBlacklist(ctx context.Context, guildID, memberID int64) (bool, error) {
	if err := s.premium.RequirePremium(ctx, guildID); err != nil {
		if errors.Is(err, entity.ErrPremiumRequired) {
			return false, nil
		}
		return false, err
	}

	match, err := s.db.HasFraudFlag(ctx, memberID, "cross_server_blacklist")
	if err != nil {
		return false, err
	}
	if !match {
		return false, nil
	}

	if err = s.LogIncident(ctx, guildID, "cross_server_blacklist_hit", entity.SeverityCritical,
		fmt.Sprintf("Member %d matched cross-server blacklist", memberID), memberID, nil,
	); err != nil {
		return true, err
	}
	s.PostSecurityLog(ctx, guildID, fmt.Sprintf("[SECURITY] Blacklist match for <@%d>. Review recommended.", memberID))
	return true, nil
}

// RaidPrediction sums severity-weighted incidents of the trailing hour and
// buckets the total into a risk level. Premium only.
func (s *Service) RaidPrediction(ctx context.Context, guildID int64) (*entity.RaidForecast, error) {
	if err := s.premium.RequirePremium(ctx, guildID); err != nil {
		return nil, err
	}

	incidents, err := s.db.IncidentsSince(ctx, guildID, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		return nil, err
	}

	score := 0
	for _, incident := range incidents {
		score += incident.Severity.Weight()
	}

	risk := "low"
	switch {
	case score >= 20:
		risk = "high"
	case score >= 10:
		risk = "medium"
	}

	return &entity.RaidForecast{
		Risk:              risk,
		Score:             score,
		IncidentsLastHour: len(incidents),
	}, nil
}

// FraudScoring returns per-member average fraud scores for a guild.
// Premium only.
func (s *Service) FraudScoring(ctx context.Context, guildID int64) ([]*entity.FraudScore, error) {
	if err := s.premium.RequirePremium(ctx, guildID); err != nil {
		return nil, err
	}
	return s.db.FraudScores(ctx, guildID, 50)
}
