package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inviteguard/entity"
)

func snap(entries map[string]int) entity.InviteSnapshot {
	s := make(entity.InviteSnapshot, len(entries))
	for code, uses := range entries {
		s[code] = entity.SnapshotEntry{Uses: uses, InviterID: int64(1000 + uses)}
	}
	return s
}

func TestResolveNoDelta(t *testing.T) {
	prev := snap(map[string]int{"aaa": 3, "bbb": 7})
	curr := snap(map[string]int{"aaa": 3, "bbb": 7})

	attr := Resolve(prev, curr)

	assert.Equal(t, entity.ReasonNoInviteDelta, attr.Reason)
	assert.Equal(t, 0.2, attr.Confidence)
	assert.Empty(t, attr.InviteCode)
	assert.Zero(t, attr.InviterID)
	assert.False(t, attr.Attributed())
}

func TestResolveSingleDelta(t *testing.T) {
	prev := entity.InviteSnapshot{
		"aaa": {Uses: 3, InviterID: 101},
		"bbb": {Uses: 7, InviterID: 202},
	}
	curr := entity.InviteSnapshot{
		"aaa": {Uses: 4, InviterID: 101},
		"bbb": {Uses: 7, InviterID: 202},
	}

	attr := Resolve(prev, curr)

	assert.Equal(t, entity.ReasonSingleDelta, attr.Reason)
	assert.Equal(t, 0.96, attr.Confidence)
	assert.Equal(t, "aaa", attr.InviteCode)
	assert.Equal(t, int64(101), attr.InviterID)
	assert.True(t, attr.Attributed())
}

func TestResolveUnseenCode(t *testing.T) {
	// A code absent from the previous snapshot counts from zero.
	prev := entity.InviteSnapshot{}
	curr := entity.InviteSnapshot{"new": {Uses: 1, InviterID: 55}}

	attr := Resolve(prev, curr)

	assert.Equal(t, entity.ReasonSingleDelta, attr.Reason)
	assert.Equal(t, "new", attr.InviteCode)
}

func TestResolveMultiDeltaPicksLargest(t *testing.T) {
	prev := entity.InviteSnapshot{
		"aaa": {Uses: 1, InviterID: 101},
		"bbb": {Uses: 1, InviterID: 202},
	}
	curr := entity.InviteSnapshot{
		"aaa": {Uses: 2, InviterID: 101},
		"bbb": {Uses: 4, InviterID: 202},
	}

	attr := Resolve(prev, curr)

	assert.Equal(t, entity.ReasonMultiDelta, attr.Reason)
	assert.Equal(t, "bbb", attr.InviteCode)
	assert.Equal(t, int64(202), attr.InviterID)
	assert.InDelta(t, 0.67, attr.Confidence, 1e-9)
}

func TestResolveMultiDeltaConfidenceDecays(t *testing.T) {
	prev := entity.InviteSnapshot{}
	curr := entity.InviteSnapshot{}
	for _, code := range []string{"a", "b", "c", "d", "e"} {
		curr[code] = entity.SnapshotEntry{Uses: 1, InviterID: 9}
	}
	curr["a"] = entity.SnapshotEntry{Uses: 2, InviterID: 9}

	attr := Resolve(prev, curr)

	// five candidates: 0.75 - 0.08*4 = 0.43, floored at 0.45
	assert.Equal(t, entity.ReasonMultiDelta, attr.Reason)
	assert.InDelta(t, 0.45, attr.Confidence, 1e-9)
	assert.Equal(t, "a", attr.InviteCode)
}

func TestResolveTieBreaksByCode(t *testing.T) {
	prev := entity.InviteSnapshot{
		"zzz": {Uses: 0, InviterID: 1},
		"aaa": {Uses: 0, InviterID: 2},
	}
	curr := entity.InviteSnapshot{
		"zzz": {Uses: 1, InviterID: 1},
		"aaa": {Uses: 1, InviterID: 2},
	}

	for i := 0; i < 20; i++ {
		attr := Resolve(prev, curr)
		assert.Equal(t, "aaa", attr.InviteCode)
		assert.Equal(t, int64(2), attr.InviterID)
	}
}

func TestResolveIgnoresDecreases(t *testing.T) {
	// A deleted-and-recreated code can show a lower counter; only growth
	// counts as evidence.
	prev := entity.InviteSnapshot{"aaa": {Uses: 5, InviterID: 1}}
	curr := entity.InviteSnapshot{"aaa": {Uses: 2, InviterID: 1}}

	attr := Resolve(prev, curr)

	assert.Equal(t, entity.ReasonNoInviteDelta, attr.Reason)
}
