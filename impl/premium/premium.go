package premium

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"inviteguard/entity"
	"inviteguard/lib/sl"
)

// Database defines the storage operations the license gate depends on.
// Implemented by internal/database; Activate must be atomic against
// concurrent callers (capacity check and append in one conditional update).
type Database interface {
	GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error)
	ActivateLicense(ctx context.Context, keyHash string, guildID int64) (*entity.PremiumLicense, error)
	SetGuildPremium(ctx context.Context, guildID int64, licenseID string, until *time.Time) error
	InsertIncident(ctx context.Context, incident *entity.Incident) error
	CreateLicense(ctx context.Context, lic *entity.PremiumLicense) error
}

// Service is the premium license gate.
type Service struct {
	db  Database
	log *slog.Logger
}

func New(db Database, log *slog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With(sl.Module("premium")),
	}
}

func hashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Status returns the guild's premium fields, or nil for an unknown guild.
func (s *Service) Status(ctx context.Context, guildID int64) (*entity.GuildSettings, error) {
	return s.db.GuildSettings(ctx, guildID)
}

// RequirePremium returns ErrPremiumRequired unless the guild carries an
// active premium flag. A guild without a settings row is not premium.
func (s *Service) RequirePremium(ctx context.Context, guildID int64) error {
	settings, err := s.db.GuildSettings(ctx, guildID)
	if err != nil {
		return err
	}
	if settings == nil {
		return fmt.Errorf("guild %d has no settings record: %w", guildID, entity.ErrPremiumRequired)
	}
	if !settings.IsPremium {
		return fmt.Errorf("guild %d: %w", guildID, entity.ErrPremiumRequired)
	}
	return nil
}

// ActivateLicense redeems a raw key for a guild. Only the key's hash ever
// touches storage. Unknown, inactive, expired and exhausted licenses all
// come back as false, not as errors; re-activating an already-activated
// guild succeeds without consuming capacity.
func (s *Service) ActivateLicense(ctx context.Context, guildID int64, rawKey string, actorID int64) (bool, error) {
	lic, err := s.db.ActivateLicense(ctx, hashKey(rawKey), guildID)
	if err != nil {
		return false, fmt.Errorf("activate license: %w", err)
	}
	if lic == nil {
		s.log.With(sl.Guild(guildID), sl.Secret("key", rawKey)).Info("license activation declined")
		return false, nil
	}

	if err = s.db.SetGuildPremium(ctx, guildID, lic.ID, lic.ExpiresAt); err != nil {
		return false, fmt.Errorf("set guild premium: %w", err)
	}

	if err = s.db.InsertIncident(ctx, &entity.Incident{
		GuildID:   guildID,
		Type:      "premium_activated",
		Severity:  entity.SeverityLow,
		ActorID:   actorID,
		Message:   "Premium license activated",
		Metadata:  map[string]any{"license_id": lic.ID},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return true, err
	}

	s.log.With(sl.Guild(guildID), slog.String("license_id", lic.ID)).Info("premium activated")
	return true, nil
}

// CreateLicense mints a new license and returns its raw key exactly once;
// after this call only the hash exists.
func (s *Service) CreateLicense(ctx context.Context, maxGuilds int, expiresAt *time.Time) (string, error) {
	if maxGuilds <= 0 {
		maxGuilds = 1
	}
	rawKey := "IG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))

	now := time.Now().UTC()
	lic := &entity.PremiumLicense{
		ID:                uuid.NewString(),
		KeyHash:           hashKey(rawKey),
		IsActive:          true,
		MaxGuilds:         maxGuilds,
		ExpiresAt:         expiresAt,
		ActivatedGuildIDs: []int64{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.CreateLicense(ctx, lic); err != nil {
		return "", fmt.Errorf("create license: %w", err)
	}

	s.log.With(slog.String("license_id", lic.ID), slog.Int("max_guilds", maxGuilds)).Info("license created")
	return rawKey, nil
}
