package board

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inviteguard/entity"
	"inviteguard/lib/api/cont"
)

type fakeCore struct {
	limits []int
}

func (f *fakeCore) Leaderboard(_ context.Context, limit int) ([]*entity.UserInviteStats, error) {
	f.limits = append(f.limits, limit)
	return []*entity.UserInviteStats{}, nil
}

func (f *fakeCore) Incidents(_ context.Context, limit int) ([]*entity.Incident, error) {
	f.limits = append(f.limits, limit)
	return []*entity.Incident{{GuildID: 1, Type: "raid_warning"}}, nil
}

func TestLeaderboardClampsLimit(t *testing.T) {
	core := &fakeCore{}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := Leaderboard(log, core)

	for raw, want := range map[string]int{"": 25, "7": 7, "9000": 100, "-3": 25, "abc": 25} {
		req := httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit="+raw, nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, core.limits[len(core.limits)-1], "limit=%q", raw)
	}
}

func TestIncidentsLogsQueryingOperator(t *testing.T) {
	core := &fakeCore{}
	var logged bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logged, nil))
	handler := Incidents(log, core)

	operator := &entity.Operator{Username: "ops-alice", Token: "t", RegisteredAt: time.Now()}
	req := httptest.NewRequest(http.MethodGet, "/v1/incidents", nil)
	req = req.WithContext(cont.PutOperator(req.Context(), operator))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "raid_warning")
	assert.Contains(t, logged.String(), "ops-alice")
	assert.Equal(t, []int{200}, core.limits)
}
