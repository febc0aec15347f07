package premium

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteguard/entity"
)

// fakeStore reproduces the atomic capacity semantics of the real store:
// the check-and-append runs under one lock, a bound guild re-activates for
// free, and everything else declines with a nil license.
type fakeStore struct {
	mu        sync.Mutex
	licenses  map[string]*entity.PremiumLicense
	settings  map[int64]*entity.GuildSettings
	incidents []*entity.Incident
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		licenses: make(map[string]*entity.PremiumLicense),
		settings: make(map[int64]*entity.GuildSettings),
	}
}

func (f *fakeStore) GuildSettings(_ context.Context, guildID int64) (*entity.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[guildID], nil
}

func (f *fakeStore) ActivateLicense(_ context.Context, keyHash string, guildID int64) (*entity.PremiumLicense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lic, ok := f.licenses[keyHash]
	if !ok || !lic.IsActive || lic.Expired(time.Now().UTC()) {
		return nil, nil
	}
	for _, id := range lic.ActivatedGuildIDs {
		if id == guildID {
			return lic, nil
		}
	}
	if len(lic.ActivatedGuildIDs) >= lic.MaxGuilds {
		return nil, nil
	}
	lic.ActivatedGuildIDs = append(lic.ActivatedGuildIDs, guildID)
	return lic, nil
}

func (f *fakeStore) SetGuildPremium(_ context.Context, guildID int64, licenseID string, until *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[guildID] = &entity.GuildSettings{
		GuildID:          guildID,
		IsPremium:        true,
		PremiumLicenseID: licenseID,
		PremiumUntil:     until,
	}
	return nil
}

func (f *fakeStore) InsertIncident(_ context.Context, incident *entity.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incidents = append(f.incidents, incident)
	return nil
}

func (f *fakeStore) CreateLicense(_ context.Context, lic *entity.PremiumLicense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.licenses[lic.KeyHash] = lic
	return nil
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRequirePremium(t *testing.T) {
	db := newFakeStore()
	svc := New(db, nopLogger())
	ctx := context.Background()

	// unknown guild
	assert.ErrorIs(t, svc.RequirePremium(ctx, 1), entity.ErrPremiumRequired)

	// known but free
	db.settings[1] = &entity.GuildSettings{GuildID: 1}
	assert.ErrorIs(t, svc.RequirePremium(ctx, 1), entity.ErrPremiumRequired)

	db.settings[1].IsPremium = true
	assert.NoError(t, svc.RequirePremium(ctx, 1))
}

func TestCreateAndActivateLicense(t *testing.T) {
	db := newFakeStore()
	svc := New(db, nopLogger())
	ctx := context.Background()

	rawKey, err := svc.CreateLicense(ctx, 2, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rawKey, "IG-"))

	// the raw key never touches storage
	_, stored := db.licenses[rawKey]
	assert.False(t, stored)

	ok, err := svc.ActivateLicense(ctx, 1, rawKey, 999)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, svc.RequirePremium(ctx, 1))
	require.Len(t, db.incidents, 1)
	assert.Equal(t, "premium_activated", db.incidents[0].Type)
	assert.Equal(t, entity.SeverityLow, db.incidents[0].Severity)
}

func TestActivateUnknownKey(t *testing.T) {
	svc := New(newFakeStore(), nopLogger())

	ok, err := svc.ActivateLicense(context.Background(), 1, "IG-NOTAKEY", 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestActivateExpiredLicense(t *testing.T) {
	db := newFakeStore()
	svc := New(db, nopLogger())
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	rawKey, err := svc.CreateLicense(ctx, 1, &past)
	require.NoError(t, err)

	ok, err := svc.ActivateLicense(ctx, 1, rawKey, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReactivationDoesNotConsumeCapacity(t *testing.T) {
	db := newFakeStore()
	svc := New(db, nopLogger())
	ctx := context.Background()

	rawKey, err := svc.CreateLicense(ctx, 1, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := svc.ActivateLicense(ctx, 1, rawKey, 999)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// capacity 1 is held by guild 1; guild 2 is declined
	ok, err := svc.ActivateLicense(ctx, 2, rawKey, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentActivationsHonorCapacity(t *testing.T) {
	db := newFakeStore()
	svc := New(db, nopLogger())
	ctx := context.Background()

	rawKey, err := svc.CreateLicense(ctx, 2, nil)
	require.NoError(t, err)

	const guilds = 3
	results := make([]bool, guilds)
	var wg sync.WaitGroup
	for i := 0; i < guilds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := svc.ActivateLicense(ctx, int64(i+1), rawKey, 999)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, ok := range results {
		if ok {
			granted++
		}
	}
	assert.Equal(t, 2, granted)
}
