package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteguard/entity"
)

type fakeStore struct {
	settings   map[int64]*entity.GuildSettings
	joins      int64
	leaves     int64
	incidents  int64
	flags      int64
	listLimits []int
	window     *entity.WindowStats
}

func (f *fakeStore) GuildSettings(_ context.Context, guildID int64) (*entity.GuildSettings, error) {
	return f.settings[guildID], nil
}

func (f *fakeStore) CountJoins(_ context.Context, _ int64) (int64, error)      { return f.joins, nil }
func (f *fakeStore) CountLeaves(_ context.Context, _ int64) (int64, error)     { return f.leaves, nil }
func (f *fakeStore) CountIncidents(_ context.Context, _ int64) (int64, error)  { return f.incidents, nil }
func (f *fakeStore) CountFraudFlags(_ context.Context, _ int64) (int64, error) { return f.flags, nil }

func (f *fakeStore) ListGuildInvites(_ context.Context, _ int64) ([]*entity.InviteRecord, error) {
	return nil, nil
}

func (f *fakeStore) RecentIncidents(_ context.Context, _ int64, limit int) ([]*entity.Incident, error) {
	f.listLimits = append(f.listLimits, limit)
	return nil, nil
}

func (f *fakeStore) GlobalLeaderboard(_ context.Context, limit int) ([]*entity.UserInviteStats, error) {
	f.listLimits = append(f.listLimits, limit)
	return nil, nil
}

func (f *fakeStore) ListIncidents(_ context.Context, limit int) ([]*entity.Incident, error) {
	f.listLimits = append(f.listLimits, limit)
	return nil, nil
}

func (f *fakeStore) SecurityWindow(_ context.Context, _ int64, _ time.Time) (*entity.WindowStats, error) {
	return f.window, nil
}

type fakeGate struct {
	premium bool
}

func (f *fakeGate) RequirePremium(_ context.Context, guildID int64) error {
	if f.premium {
		return nil
	}
	return fmt.Errorf("guild %d: %w", guildID, entity.ErrPremiumRequired)
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestGuildOverview(t *testing.T) {
	db := &fakeStore{
		settings:  map[int64]*entity.GuildSettings{1: {GuildID: 1, IsPremium: true}},
		joins:     120,
		leaves:    15,
		incidents: 4,
		flags:     2,
	}
	svc := New(db, &fakeGate{}, nopLogger())

	overview, err := svc.GuildOverview(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, overview)
	assert.Equal(t, int64(120), overview.TotalJoins)
	assert.Equal(t, int64(15), overview.TotalLeaves)
	assert.Equal(t, int64(4), overview.TotalIncidents)
	assert.Equal(t, int64(2), overview.TotalFraudFlags)
	assert.True(t, overview.IsPremium)
}

func TestGuildOverviewUnknownGuild(t *testing.T) {
	svc := New(&fakeStore{settings: map[int64]*entity.GuildSettings{}}, &fakeGate{}, nopLogger())

	overview, err := svc.GuildOverview(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, overview)
}

func TestLimitDefaults(t *testing.T) {
	db := &fakeStore{settings: map[int64]*entity.GuildSettings{}}
	svc := New(db, &fakeGate{}, nopLogger())
	ctx := context.Background()

	_, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	_, err = svc.Incidents(ctx, -5)
	require.NoError(t, err)
	_, err = svc.GuildSecurity(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{25, 200, 100}, db.listLimits)
}

func TestSecurityAnalyticsGated(t *testing.T) {
	db := &fakeStore{
		settings: map[int64]*entity.GuildSettings{},
		window:   &entity.WindowStats{Incidents24h: 3, FraudFlags24h: 2, AvgFraudScore24h: 0.61},
	}
	gate := &fakeGate{}
	svc := New(db, gate, nopLogger())
	ctx := context.Background()

	_, err := svc.SecurityAnalytics(ctx, 1)
	assert.ErrorIs(t, err, entity.ErrPremiumRequired)

	gate.premium = true
	stats, err := svc.SecurityAnalytics(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Incidents24h)
	assert.Equal(t, 0.61, stats.AvgFraudScore24h)
}
