package security

import (
	"context"
	"fmt"

	"inviteguard/entity"
	"inviteguard/lib/sl"
)

// SetLockdown flips the guild's lockdown flag and applies or reverts the
// channel throttling that goes with it. The only transitions are
// UNLOCKED -> LOCKED and LOCKED -> UNLOCKED, both by explicit admin command.
func (s *Service) SetLockdown(ctx context.Context, guildID int64, enabled bool) error {
	if err := s.db.SetLockdown(ctx, guildID, enabled); err != nil {
		return fmt.Errorf("set lockdown flag: %w", err)
	}

	if enabled {
		s.enableLockdownControls(ctx, guildID)
		if err := s.LogIncident(ctx, guildID, "lockdown_enabled", entity.SeverityCritical, "Lockdown enabled", 0, nil); err != nil {
			return err
		}
		s.PostSecurityLog(ctx, guildID, "[SECURITY] Lockdown enabled.")
		return nil
	}

	s.disableLockdownControls(ctx, guildID)
	if err := s.LogIncident(ctx, guildID, "lockdown_disabled", entity.SeverityMedium, "Lockdown disabled", 0, nil); err != nil {
		return err
	}
	s.PostSecurityLog(ctx, guildID, "[SECURITY] Lockdown disabled.")
	return nil
}

// enableLockdownControls backs up every text channel's slowmode before
// overwriting it, then best-effort revokes all outstanding invites. One
// channel's or invite's permission failure never aborts the rest.
func (s *Service) enableLockdownControls(ctx context.Context, guildID int64) {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil || settings == nil {
		if err != nil {
			s.log.With(sl.Guild(guildID)).Error("load settings for lockdown", sl.Err(err))
		}
		return
	}

	channels, err := s.platform.TextChannels(ctx, guildID)
	if err != nil {
		s.log.With(sl.Guild(guildID)).Warn("listing channels for lockdown", sl.Err(err))
		channels = nil
	}

	backup := make(map[int64]int, len(channels))
	for _, ch := range channels {
		backup[ch.ID] = ch.SlowmodeSeconds
		if err = s.platform.EditChannelSlowmode(ctx, ch.ID, settings.LockdownSlowmodeSeconds, "Security lockdown enabled"); err != nil {
			s.log.With(
				sl.Guild(guildID),
				sl.Module("security"),
			).Warn(fmt.Sprintf("cannot set slowmode for channel %d", ch.ID), sl.Err(err))
		}
	}
	// Backup is written even when some edits failed; restore skips channels
	// already at their desired value.
	s.cache.SetSlowmodeBackup(guildID, backup)

	invites, err := s.platform.GuildInvites(ctx, guildID)
	if err != nil {
		s.log.With(sl.Guild(guildID)).Warn("listing invites during lockdown", sl.Err(err))
		return
	}
	for _, inv := range invites {
		if err = s.platform.DeleteInvite(ctx, guildID, inv.Code, "Security lockdown enabled"); err != nil {
			s.log.With(sl.Guild(guildID)).Warn(fmt.Sprintf("cannot delete invite %s", inv.Code), sl.Err(err))
		}
	}
}

// disableLockdownControls restores every text channel's slowmode from the
// backup, defaulting to zero for channels created during the lockdown.
// Revoked invites stay revoked; recreating them is an admin's call.
func (s *Service) disableLockdownControls(ctx context.Context, guildID int64) {
	backup := s.cache.SlowmodeBackup(guildID)

	channels, err := s.platform.TextChannels(ctx, guildID)
	if err != nil {
		s.log.With(sl.Guild(guildID)).Warn("listing channels for lockdown release", sl.Err(err))
		return
	}

	for _, ch := range channels {
		desired := backup[ch.ID]
		if ch.SlowmodeSeconds == desired {
			continue
		}
		if err = s.platform.EditChannelSlowmode(ctx, ch.ID, desired, "Security lockdown disabled"); err != nil {
			s.log.With(sl.Guild(guildID)).Warn(fmt.Sprintf("cannot restore slowmode for channel %d", ch.ID), sl.Err(err))
		}
	}
}
