package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"inviteguard/gateway"
	"inviteguard/lib/api/response"
	"inviteguard/lib/sl"
	"inviteguard/lib/validate"
)

// envelope is the wire form the gateway collaborator posts: the event name
// plus its raw payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Receive decodes a gateway delivery and hands it to the dispatcher. The
// response acknowledges acceptance only; processing is asynchronous. The
// shared token authenticates the gateway collaborator.
func Receive(logger *slog.Logger, token string, dispatcher *gateway.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.events"),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)

		if token == "" || r.Header.Get("X-Gateway-Token") != token {
			log.Warn("gateway token mismatch")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		var env envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			log.Warn("decoding event envelope", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event payload"))
			return
		}

		evt, err := decode(env)
		if err != nil {
			log.Warn("decoding event", slog.String("type", env.Type), sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid event: %v", err)))
			return
		}

		if err = validate.Struct(evt); err != nil {
			log.Warn("rejecting event", slog.String("type", env.Type), sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid event: %v", err)))
			return
		}

		dispatcher.Dispatch(evt)
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, response.Ok(nil))
	}
}

func decode(env envelope) (gateway.Event, error) {
	switch env.Type {
	case gateway.EventGuildAvailable:
		var evt gateway.GuildAvailable
		return evt, json.Unmarshal(env.Payload, &evt)
	case gateway.EventInviteCreated:
		var evt gateway.InviteCreated
		return evt, json.Unmarshal(env.Payload, &evt)
	case gateway.EventInviteDeleted:
		var evt gateway.InviteDeleted
		return evt, json.Unmarshal(env.Payload, &evt)
	case gateway.EventMemberJoined:
		var evt gateway.MemberJoined
		return evt, json.Unmarshal(env.Payload, &evt)
	case gateway.EventMemberLeft:
		var evt gateway.MemberLeft
		return evt, json.Unmarshal(env.Payload, &evt)
	case gateway.EventMessagePosted:
		var evt gateway.MessagePosted
		return evt, json.Unmarshal(env.Payload, &evt)
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
