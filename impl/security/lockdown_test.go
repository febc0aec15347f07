package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteguard/entity"
	"inviteguard/gateway"
)

func TestLockdownBackupAndRestore(t *testing.T) {
	db := newFakeStore()
	db.settings[1] = defaultSettings(1)
	windows := newFakeWindows()
	platform := newFakePlatform()
	platform.channels = []gateway.Channel{
		{ID: 10, Text: true, SlowmodeSeconds: 5},
		{ID: 11, Text: true, SlowmodeSeconds: 0},
	}
	platform.invites = []gateway.Invite{{Code: "abc"}, {Code: "def"}}
	svc := newService(db, windows, platform, &fakeGate{})
	ctx := context.Background()

	require.NoError(t, svc.SetLockdown(ctx, 1, true))

	assert.True(t, db.lockdown[1])
	assert.Equal(t, map[int64]int{10: 5, 11: 0}, windows.backups[1])
	assert.Equal(t, 15, platform.slowmodes[10])
	assert.Equal(t, 15, platform.slowmodes[11])
	assert.ElementsMatch(t, []string{"abc", "def"}, platform.deleted)
	require.Len(t, db.incidents, 1)
	assert.Equal(t, "lockdown_enabled", db.incidents[0].Type)
	assert.Equal(t, entity.SeverityCritical, db.incidents[0].Severity)

	// platform now reports the locked-down slowmode
	platform.channels[0].SlowmodeSeconds = 15
	platform.channels[1].SlowmodeSeconds = 15

	require.NoError(t, svc.SetLockdown(ctx, 1, false))

	assert.False(t, db.lockdown[1])
	assert.Equal(t, 5, platform.slowmodes[10])
	assert.Equal(t, 0, platform.slowmodes[11])
	require.Len(t, db.incidents, 2)
	assert.Equal(t, "lockdown_disabled", db.incidents[1].Type)
	assert.Equal(t, entity.SeverityMedium, db.incidents[1].Severity)
}

func TestLockdownChannelEditFailureIsIsolated(t *testing.T) {
	db := newFakeStore()
	db.settings[1] = defaultSettings(1)
	windows := newFakeWindows()
	platform := newFakePlatform()
	platform.channels = []gateway.Channel{
		{ID: 10, Text: true, SlowmodeSeconds: 3},
		{ID: 11, Text: true, SlowmodeSeconds: 7},
	}
	platform.editErr[10] = gateway.ErrPermissionDenied
	svc := newService(db, windows, platform, &fakeGate{})

	require.NoError(t, svc.SetLockdown(context.Background(), 1, true))

	// the failed channel is still backed up; the other was throttled
	assert.Equal(t, map[int64]int{10: 3, 11: 7}, windows.backups[1])
	assert.Equal(t, 15, platform.slowmodes[11])
	_, touched := platform.slowmodes[10]
	assert.False(t, touched)
}

func TestLockdownRestoreDefaultsNewChannelsToZero(t *testing.T) {
	db := newFakeStore()
	db.settings[1] = defaultSettings(1)
	windows := newFakeWindows()
	windows.backups[1] = map[int64]int{10: 5}
	platform := newFakePlatform()
	platform.channels = []gateway.Channel{
		{ID: 10, Text: true, SlowmodeSeconds: 15},
		{ID: 12, Text: true, SlowmodeSeconds: 15}, // created during lockdown
	}
	svc := newService(db, windows, platform, &fakeGate{})

	require.NoError(t, svc.SetLockdown(context.Background(), 1, false))

	assert.Equal(t, 5, platform.slowmodes[10])
	assert.Equal(t, 0, platform.slowmodes[12])
}

func TestLockdownRestoreSkipsChannelsAlreadyAtDesired(t *testing.T) {
	db := newFakeStore()
	db.settings[1] = defaultSettings(1)
	windows := newFakeWindows()
	windows.backups[1] = map[int64]int{10: 0}
	platform := newFakePlatform()
	platform.channels = []gateway.Channel{{ID: 10, Text: true, SlowmodeSeconds: 0}}
	svc := newService(db, windows, platform, &fakeGate{})

	require.NoError(t, svc.SetLockdown(context.Background(), 1, false))

	_, touched := platform.slowmodes[10]
	assert.False(t, touched)
}
