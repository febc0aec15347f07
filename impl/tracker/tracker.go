package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inviteguard/entity"
	"inviteguard/gateway"
	"inviteguard/lib/clock"
	"inviteguard/lib/locks"
	"inviteguard/lib/sl"
)

// Database defines the storage operations the tracker depends on.
// Implemented by internal/database.
type Database interface {
	EnsureGuild(ctx context.Context, settings *entity.GuildSettings) error
	GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error)
	UpsertInvite(ctx context.Context, inv *entity.InviteRecord) error
	MarkInviteDeleted(ctx context.Context, guildID int64, code string) error
	RecordInviteUse(ctx context.Context, guildID int64, code string, inviterID int64) error
	InsertJoin(ctx context.Context, evt *entity.JoinEvent) error
	InsertLeave(ctx context.Context, evt *entity.LeaveEvent) error
	LastAttributedInviter(ctx context.Context, guildID, memberID int64) (int64, error)
	HasPriorLeave(ctx context.Context, guildID, memberID int64) (bool, error)
	ApplyJoinStats(ctx context.Context, guildID, inviterID int64, fake, rejoin bool) error
	IncrementLeaves(ctx context.Context, guildID, inviterID int64) error
	InsertBonus(ctx context.Context, bonus *entity.BonusInvite) error
	IncrementBonus(ctx context.Context, guildID, userID, amount int64) error
	InsertFraudFlag(ctx context.Context, flag *entity.FraudFlag) error
	UserStats(ctx context.Context, guildID, userID int64) (*entity.UserInviteStats, error)
	GuildLeaderboard(ctx context.Context, guildID int64, limit int) ([]*entity.UserInviteStats, error)
}

// Cache holds the invite snapshots the resolver diffs against.
type Cache interface {
	Snapshot(guildID int64) entity.InviteSnapshot
	SetSnapshot(guildID int64, snap entity.InviteSnapshot)
}

// Platform is the slice of the gateway boundary the tracker reads from.
type Platform interface {
	GuildInvites(ctx context.Context, guildID int64) ([]gateway.Invite, error)
}

// Defaults seed new guild settings rows on first contact.
type Defaults struct {
	JoinBurstCount          int
	JoinBurstWindowSeconds  int
	MinAccountAgeHours      int
	AutoKickYoungAccounts   bool
	LinkSpamThreshold       int
	LinkSpamWindowSeconds   int
	LockdownSlowmodeSeconds int
	QuarantineRoleName      string
}

// Service attributes joins to invites and keeps the per-inviter counters.
type Service struct {
	db       Database
	cache    Cache
	platform Platform
	locks    *locks.Manager
	defaults Defaults
	log      *slog.Logger
}

func New(db Database, cache Cache, platform Platform, lockManager *locks.Manager, defaults Defaults, log *slog.Logger) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		platform: platform,
		locks:    lockManager,
		defaults: defaults,
		log:      log.With(sl.Module("tracker")),
	}
}

// EnsureGuild idempotently creates the guild settings row with defaults and
// refreshes the guild name. Every join/leave/incident write requires the row
// to exist first.
func (s *Service) EnsureGuild(ctx context.Context, guildID int64, name string) error {
	return s.db.EnsureGuild(ctx, &entity.GuildSettings{
		GuildID:                 guildID,
		GuildName:               name,
		JoinBurstCount:          s.defaults.JoinBurstCount,
		JoinBurstWindowSeconds:  s.defaults.JoinBurstWindowSeconds,
		MinAccountAgeHours:      s.defaults.MinAccountAgeHours,
		AutoKickYoungAccounts:   s.defaults.AutoKickYoungAccounts,
		LinkSpamThreshold:       s.defaults.LinkSpamThreshold,
		LinkSpamWindowSeconds:   s.defaults.LinkSpamWindowSeconds,
		LockdownSlowmodeSeconds: s.defaults.LockdownSlowmodeSeconds,
		QuarantineRoleName:      s.defaults.QuarantineRoleName,
		UpdatedAt:               time.Now().UTC(),
	})
}

// RebuildSnapshot replaces the cached snapshot with platform truth. A
// permission failure leaves the old snapshot in place; the next join then
// degrades to lower-confidence attribution instead of failing.
func (s *Service) RebuildSnapshot(ctx context.Context, guildID int64) error {
	invites, err := s.platform.GuildInvites(ctx, guildID)
	if err != nil {
		if errors.Is(err, gateway.ErrPermissionDenied) {
			s.log.With(sl.Guild(guildID)).Warn("missing permission to read invites", sl.Err(err))
			return nil
		}
		return fmt.Errorf("list invites: %w", err)
	}
	s.cache.SetSnapshot(guildID, snapshotFromInvites(invites))
	return nil
}

// OnInviteCreate records the invite both in the cached snapshot and as a
// durable row. Re-creating a previously deleted code clears its soft-delete
// marker.
func (s *Service) OnInviteCreate(ctx context.Context, guildID int64, inv gateway.Invite) error {
	snap := s.cache.Snapshot(guildID)
	snap[inv.Code] = snapshotEntry(inv)
	s.cache.SetSnapshot(guildID, snap)

	createdAt := time.Now().UTC()
	if inv.CreatedAt != nil {
		createdAt = *inv.CreatedAt
	}
	return s.db.UpsertInvite(ctx, &entity.InviteRecord{
		GuildID:     guildID,
		InviteCode:  inv.Code,
		InviterID:   inv.InviterID,
		Uses:        int64(inv.Uses),
		MaxUses:     inv.MaxUses,
		IsTemporary: inv.Temporary,
		CreatedAt:   createdAt,
	})
}

// OnInviteDelete drops the code from the snapshot and soft-deletes the
// durable row so historical attribution keeps its inviter reference.
func (s *Service) OnInviteDelete(ctx context.Context, guildID int64, code string) error {
	snap := s.cache.Snapshot(guildID)
	delete(snap, code)
	s.cache.SetSnapshot(guildID, snap)

	return s.db.MarkInviteDeleted(ctx, guildID, code)
}

// OnMemberJoin resolves which invite the member used, persists the join with
// its fake/rejoin classification, and bumps the inviter's counters. The
// whole read-diff-write sequence holds the guild lock so concurrent joins
// never diff against the same stale snapshot.
func (s *Service) OnMemberJoin(ctx context.Context, guildID, memberID int64, guildName string, accountCreatedAt time.Time) (entity.Attribution, error) {
	lock := s.locks.Get(guildID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	if err := s.EnsureGuild(ctx, guildID, guildName); err != nil {
		return entity.Attribution{}, fmt.Errorf("ensure guild: %w", err)
	}

	invites, err := s.platform.GuildInvites(ctx, guildID)
	if err != nil {
		return entity.Attribution{}, fmt.Errorf("list invites: %w", err)
	}
	current := snapshotFromInvites(invites)

	attribution := Resolve(s.cache.Snapshot(guildID), current)
	s.cache.SetSnapshot(guildID, current)

	minAge := s.defaults.MinAccountAgeHours
	if settings, err := s.db.GuildSettings(ctx, guildID); err != nil {
		return entity.Attribution{}, fmt.Errorf("guild settings: %w", err)
	} else if settings != nil {
		minAge = settings.MinAccountAgeHours
	}

	ageHours := clock.AgeHours(accountCreatedAt, now)
	isFake := ageHours < float64(minAge)

	isRejoin, err := s.db.HasPriorLeave(ctx, guildID, memberID)
	if err != nil {
		return entity.Attribution{}, fmt.Errorf("prior leave lookup: %w", err)
	}

	if err = s.db.InsertJoin(ctx, &entity.JoinEvent{
		GuildID:    guildID,
		MemberID:   memberID,
		InviteCode: attribution.InviteCode,
		InviterID:  attribution.InviterID,
		JoinedAt:   now,
		Confidence: attribution.Confidence,
		Reason:     attribution.Reason,
		IsFake:     isFake,
		IsRejoin:   isRejoin,
	}); err != nil {
		return entity.Attribution{}, fmt.Errorf("insert join: %w", err)
	}

	if attribution.InviterID != 0 {
		if err = s.db.ApplyJoinStats(ctx, guildID, attribution.InviterID, isFake, isRejoin); err != nil {
			return entity.Attribution{}, fmt.Errorf("apply join stats: %w", err)
		}
	}

	if attribution.InviteCode != "" {
		if err = s.db.RecordInviteUse(ctx, guildID, attribution.InviteCode, attribution.InviterID); err != nil {
			return entity.Attribution{}, fmt.Errorf("record invite use: %w", err)
		}
	}

	if isFake {
		score := clock.Round4(min(1.0, (float64(minAge)-ageHours)/max(1.0, float64(minAge))))
		if err = s.db.InsertFraudFlag(ctx, &entity.FraudFlag{
			GuildID:  guildID,
			MemberID: memberID,
			Reason:   "young_account",
			Score:    score,
			Metadata: map[string]any{
				"age_hours":          ageHours,
				"min_required_hours": minAge,
			},
			CreatedAt: now,
		}); err != nil {
			return entity.Attribution{}, fmt.Errorf("insert fraud flag: %w", err)
		}
	}

	return attribution, nil
}

// OnMemberLeave appends the leave event carrying the member's most recent
// attributed inviter and bumps that inviter's leave counter.
func (s *Service) OnMemberLeave(ctx context.Context, guildID, memberID int64) error {
	inviterID, err := s.db.LastAttributedInviter(ctx, guildID, memberID)
	if err != nil {
		return fmt.Errorf("last inviter lookup: %w", err)
	}

	if err = s.db.InsertLeave(ctx, &entity.LeaveEvent{
		GuildID:   guildID,
		MemberID:  memberID,
		InviterID: inviterID,
		LeftAt:    time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}

	if inviterID != 0 {
		if err = s.db.IncrementLeaves(ctx, guildID, inviterID); err != nil {
			return fmt.Errorf("increment leaves: %w", err)
		}
	}
	return nil
}

// AddBonusInvites credits or debits a user's bonus counter with an audit
// row. Amount 0 is a no-op.
func (s *Service) AddBonusInvites(ctx context.Context, guildID, userID, amount int64, reason string) error {
	if amount == 0 {
		return nil
	}
	if err := s.db.InsertBonus(ctx, &entity.BonusInvite{
		GuildID:   guildID,
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert bonus: %w", err)
	}
	return s.db.IncrementBonus(ctx, guildID, userID, amount)
}

// UserStats returns the counters for one user, or nil when no stats exist
// yet.
func (s *Service) UserStats(ctx context.Context, guildID, userID int64) (*entity.UserInviteStats, error) {
	stats, err := s.db.UserStats(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		stats.NetInvites = stats.Net()
	}
	return stats, nil
}

// Leaderboard lists a guild's top inviters by net invites.
func (s *Service) Leaderboard(ctx context.Context, guildID int64, limit int) ([]*entity.UserInviteStats, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.db.GuildLeaderboard(ctx, guildID, limit)
}

func snapshotEntry(inv gateway.Invite) entity.SnapshotEntry {
	return entity.SnapshotEntry{
		Uses:      inv.Uses,
		InviterID: inv.InviterID,
		CreatedAt: inv.CreatedAt,
		MaxUses:   inv.MaxUses,
		Temporary: inv.Temporary,
	}
}

func snapshotFromInvites(invites []gateway.Invite) entity.InviteSnapshot {
	snap := make(entity.InviteSnapshot, len(invites))
	for _, inv := range invites {
		snap[inv.Code] = snapshotEntry(inv)
	}
	return snap
}
