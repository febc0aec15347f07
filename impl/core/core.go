package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inviteguard/entity"
	"inviteguard/gateway"
	"inviteguard/impl/analytics"
	"inviteguard/impl/auth"
	"inviteguard/impl/premium"
	"inviteguard/impl/security"
	"inviteguard/impl/tracker"
	"inviteguard/internal/stripehandler"
	"inviteguard/lib/sl"

	"github.com/stripe/stripe-go/v76"
)

// Core ties the services together. It is the handler behind the gateway
// dispatcher and the backend of the HTTP query API.
type Core struct {
	tracker   *tracker.Service
	security  *security.Service
	premium   *premium.Service
	analytics *analytics.Service
	auth      *auth.Auth
	platform  gateway.Platform
	stripe    *stripehandler.Handler
	log       *slog.Logger
}

func New(
	trackerSvc *tracker.Service,
	securitySvc *security.Service,
	premiumSvc *premium.Service,
	analyticsSvc *analytics.Service,
	authSvc *auth.Auth,
	platform gateway.Platform,
	log *slog.Logger,
) *Core {
	return &Core{
		tracker:   trackerSvc,
		security:  securitySvc,
		premium:   premiumSvc,
		analytics: analyticsSvc,
		auth:      authSvc,
		platform:  platform,
		log:       log.With(sl.Module("core")),
	}
}

func (c *Core) SetStripeHandler(h *stripehandler.Handler) {
	c.stripe = h
}

func (c *Core) StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	if c.stripe == nil {
		return false
	}
	return c.stripe.VerifySignature(payload, header, tolerance)
}

func (c *Core) StripeEvent(ctx context.Context, evt *stripe.Event) {
	if c.stripe == nil {
		return
	}
	c.stripe.Event(ctx, evt)
}

// AuthenticateByToken resolves an API operator from a Bearer token.
func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.Operator, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.OperatorByToken(ctx, token)
}

// HandleGuildAvailable initializes the guild row and rebuilds its invite
// snapshot from platform truth.
func (c *Core) HandleGuildAvailable(ctx context.Context, evt gateway.GuildAvailable) error {
	if err := c.tracker.EnsureGuild(ctx, evt.GuildID, evt.GuildName); err != nil {
		return err
	}
	return c.tracker.RebuildSnapshot(ctx, evt.GuildID)
}

// HandleInviteCreated records the new invite. During lockdown the invite is
// additionally revoked best-effort, since lockdown blocks new entry points.
func (c *Core) HandleInviteCreated(ctx context.Context, evt gateway.InviteCreated) error {
	if err := c.tracker.OnInviteCreate(ctx, evt.GuildID, evt.Invite); err != nil {
		return err
	}

	locked, err := c.security.IsLockdown(ctx, evt.GuildID)
	if err != nil || !locked {
		return err
	}

	if err = c.platform.DeleteInvite(ctx, evt.GuildID, evt.Invite.Code, "Invite blocked during lockdown"); err != nil {
		c.log.With(sl.Guild(evt.GuildID)).Warn("deleting invite during lockdown", sl.Err(err))
		return nil
	}
	return c.security.LogIncident(ctx, evt.GuildID, "invite_blocked_lockdown", entity.SeverityHigh,
		fmt.Sprintf("Invite %s blocked during lockdown", evt.Invite.Code), evt.Invite.InviterID, nil)
}

func (c *Core) HandleInviteDeleted(ctx context.Context, evt gateway.InviteDeleted) error {
	return c.tracker.OnInviteDelete(ctx, evt.GuildID, evt.Code)
}

// HandleMemberJoined runs the full join pipeline: attribution, quarantine,
// burst check, account-age enforcement and blacklist lookup.
func (c *Core) HandleMemberJoined(ctx context.Context, evt gateway.MemberJoined) error {
	attribution, err := c.tracker.OnMemberJoin(ctx, evt.GuildID, evt.MemberID, evt.Username, evt.AccountCreatedAt)
	if err != nil {
		return err
	}

	if err = c.security.ApplyQuarantineIfLockdown(ctx, evt.GuildID, evt.MemberID); err != nil {
		return err
	}

	burst, err := c.security.CheckJoinBurst(ctx, evt.GuildID)
	if err != nil {
		return err
	}
	if burst {
		if err = c.security.LogIncident(ctx, evt.GuildID, "join_burst_detected", entity.SeverityCritical,
			fmt.Sprintf("Join burst threshold exceeded in guild %d", evt.GuildID), 0,
			map[string]any{"new_member": evt.MemberID},
		); err != nil {
			return err
		}
		c.security.PostSecurityLog(ctx, evt.GuildID, "[SECURITY] Join burst detected. Consider immediate lockdown.")
	}

	if _, err = c.security.EnforceAccountAge(ctx, evt.GuildID, evt.MemberID, evt.AccountCreatedAt); err != nil {
		return err
	}
	if _, err = c.security.CheckCrossServerBlacklist(ctx, evt.GuildID, evt.MemberID); err != nil {
		return err
	}

	if attribution.InviterID != 0 {
		c.security.PostSecurityLog(ctx, evt.GuildID, fmt.Sprintf(
			"[INVITE] <@%d> joined via `%s` from <@%d> (confidence %.2f).",
			evt.MemberID, attribution.InviteCode, attribution.InviterID, attribution.Confidence,
		))
	}
	return nil
}

func (c *Core) HandleMemberLeft(ctx context.Context, evt gateway.MemberLeft) error {
	return c.tracker.OnMemberLeave(ctx, evt.GuildID, evt.MemberID)
}

func (c *Core) HandleMessagePosted(ctx context.Context, evt gateway.MessagePosted) error {
	return c.security.HandleLinkSpam(ctx, evt)
}

// Command surface, consumed by the gateway/command collaborator.

func (c *Core) EnsureGuild(ctx context.Context, guildID int64, name string) error {
	return c.tracker.EnsureGuild(ctx, guildID, name)
}

func (c *Core) RebuildSnapshot(ctx context.Context, guildID int64) error {
	return c.tracker.RebuildSnapshot(ctx, guildID)
}

func (c *Core) OnInviteCreate(ctx context.Context, guildID int64, inv gateway.Invite) error {
	return c.tracker.OnInviteCreate(ctx, guildID, inv)
}

func (c *Core) OnInviteDelete(ctx context.Context, guildID int64, code string) error {
	return c.tracker.OnInviteDelete(ctx, guildID, code)
}

func (c *Core) OnMemberJoin(ctx context.Context, guildID, memberID int64, username string, accountCreatedAt time.Time) (entity.Attribution, error) {
	return c.tracker.OnMemberJoin(ctx, guildID, memberID, username, accountCreatedAt)
}

func (c *Core) OnMemberLeave(ctx context.Context, guildID, memberID int64) error {
	return c.tracker.OnMemberLeave(ctx, guildID, memberID)
}

func (c *Core) CheckJoinBurst(ctx context.Context, guildID int64) (bool, error) {
	return c.security.CheckJoinBurst(ctx, guildID)
}

func (c *Core) EnforceAccountAge(ctx context.Context, guildID, memberID int64, accountCreatedAt time.Time) (bool, error) {
	return c.security.EnforceAccountAge(ctx, guildID, memberID, accountCreatedAt)
}

func (c *Core) HandleLinkSpam(ctx context.Context, msg gateway.MessagePosted) error {
	return c.security.HandleLinkSpam(ctx, msg)
}

func (c *Core) CheckCrossServerBlacklist(ctx context.Context, guildID, memberID int64) (bool, error) {
	return c.security.CheckCrossServerBlacklist(ctx, guildID, memberID)
}

func (c *Core) AddBonusInvites(ctx context.Context, guildID, userID, amount int64, reason string) error {
	return c.tracker.AddBonusInvites(ctx, guildID, userID, amount, reason)
}

func (c *Core) UserStats(ctx context.Context, guildID, userID int64) (*entity.UserInviteStats, error) {
	return c.tracker.UserStats(ctx, guildID, userID)
}

func (c *Core) GuildLeaderboard(ctx context.Context, guildID int64, limit int) ([]*entity.UserInviteStats, error) {
	return c.tracker.Leaderboard(ctx, guildID, limit)
}

func (c *Core) GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error) {
	return c.security.GuildSettings(ctx, guildID)
}

func (c *Core) SetLockdown(ctx context.Context, guildID int64, enabled bool) error {
	return c.security.SetLockdown(ctx, guildID, enabled)
}

func (c *Core) SetLogChannel(ctx context.Context, guildID, channelID int64) error {
	return c.security.SetLogChannel(ctx, guildID, channelID)
}

func (c *Core) ActivateLicense(ctx context.Context, guildID int64, rawKey string, actorID int64) (bool, error) {
	return c.premium.ActivateLicense(ctx, guildID, rawKey, actorID)
}

func (c *Core) PremiumStatus(ctx context.Context, guildID int64) (*entity.GuildSettings, error) {
	return c.premium.Status(ctx, guildID)
}

// Query surface, consumed by the HTTP handlers.

func (c *Core) GuildOverview(ctx context.Context, guildID int64) (*analytics.Overview, error) {
	return c.analytics.GuildOverview(ctx, guildID)
}

func (c *Core) GuildInvites(ctx context.Context, guildID int64) ([]*entity.InviteRecord, error) {
	return c.analytics.GuildInvites(ctx, guildID)
}

func (c *Core) GuildSecurity(ctx context.Context, guildID int64) (*analytics.SecuritySnapshot, error) {
	return c.analytics.GuildSecurity(ctx, guildID)
}

func (c *Core) Leaderboard(ctx context.Context, limit int) ([]*entity.UserInviteStats, error) {
	return c.analytics.Leaderboard(ctx, limit)
}

func (c *Core) Incidents(ctx context.Context, limit int) ([]*entity.Incident, error) {
	return c.analytics.Incidents(ctx, limit)
}

func (c *Core) SecurityAnalytics(ctx context.Context, guildID int64) (*entity.WindowStats, error) {
	return c.analytics.SecurityAnalytics(ctx, guildID)
}

func (c *Core) FraudScores(ctx context.Context, guildID int64) ([]*entity.FraudScore, error) {
	return c.security.FraudScoring(ctx, guildID)
}

func (c *Core) RaidPrediction(ctx context.Context, guildID int64) (*entity.RaidForecast, error) {
	return c.security.RaidPrediction(ctx, guildID)
}

// IsPremiumRequired reports whether err is the premium gate declining.
func IsPremiumRequired(err error) bool {
	return errors.Is(err, entity.ErrPremiumRequired)
}
