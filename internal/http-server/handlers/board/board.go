package board

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"inviteguard/entity"
	"inviteguard/lib/api/cont"
	"inviteguard/lib/api/response"
	"inviteguard/lib/sl"
)

type Core interface {
	Leaderboard(ctx context.Context, limit int) ([]*entity.UserInviteStats, error)
	Incidents(ctx context.Context, limit int) ([]*entity.Incident, error)
}

// Leaderboard serves the cross-guild net-invite ranking. The limit query
// parameter is clamped to 1..100.
func Leaderboard(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.board"),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)

		limit := parseLimit(r, 25, 100)
		stats, err := handler.Leaderboard(r.Context(), limit)
		if err != nil {
			log.Error("leaderboard", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		render.JSON(w, r, response.Ok(stats))
	}
}

// Incidents serves the newest incidents across all guilds, clamped to 1..500.
// The querying operator is logged for audit.
func Incidents(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operator := cont.GetOperator(r.Context())
		log := logger.With(
			sl.Module("http.handlers.board"),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			slog.String("operator", operator.Username),
		)

		limit := parseLimit(r, 200, 500)
		incidents, err := handler.Incidents(r.Context(), limit)
		if err != nil {
			log.Error("incidents", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		log.Info("incidents served", slog.Int("count", len(incidents)))
		render.JSON(w, r, response.Ok(incidents))
	}
}

func parseLimit(r *http.Request, fallback, ceiling int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
