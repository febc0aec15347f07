package events

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"inviteguard/gateway"
)

type nopHandler struct{}

func (nopHandler) HandleGuildAvailable(context.Context, gateway.GuildAvailable) error { return nil }
func (nopHandler) HandleInviteCreated(context.Context, gateway.InviteCreated) error   { return nil }
func (nopHandler) HandleInviteDeleted(context.Context, gateway.InviteDeleted) error   { return nil }
func (nopHandler) HandleMemberJoined(context.Context, gateway.MemberJoined) error     { return nil }
func (nopHandler) HandleMemberLeft(context.Context, gateway.MemberLeft) error         { return nil }
func (nopHandler) HandleMessagePosted(context.Context, gateway.MessagePosted) error   { return nil }

func newTestReceiver() http.HandlerFunc {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := gateway.NewDispatcher(nopHandler{}, log)
	return Receive(log, "secret", dispatcher)
}

func post(t *testing.T, handler http.HandlerFunc, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/events", bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("X-Gateway-Token", token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestReceiveRejectsBadToken(t *testing.T) {
	handler := newTestReceiver()

	rec := post(t, handler, "wrong", `{"type":"member_left","payload":{"guild_id":1,"member_id":2}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, handler, "", `{"type":"member_left","payload":{"guild_id":1,"member_id":2}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReceiveRejectsUnknownType(t *testing.T) {
	handler := newTestReceiver()

	rec := post(t, handler, "secret", `{"type":"member_banned","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveRejectsMissingIds(t *testing.T) {
	handler := newTestReceiver()

	rec := post(t, handler, "secret", `{"type":"member_joined","payload":{"guild_id":0,"member_id":2}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "guild_id")

	rec = post(t, handler, "secret", `{"type":"invite_deleted","payload":{"guild_id":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveAcceptsValidEvent(t *testing.T) {
	handler := newTestReceiver()

	rec := post(t, handler, "secret", `{"type":"member_joined","payload":{"guild_id":1,"member_id":2,"username":"newcomer"}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
