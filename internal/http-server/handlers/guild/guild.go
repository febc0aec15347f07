package guild

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"inviteguard/entity"
	"inviteguard/impl/analytics"
	"inviteguard/impl/core"
	"inviteguard/lib/api/response"
	"inviteguard/lib/sl"
)

type Core interface {
	GuildOverview(ctx context.Context, guildID int64) (*analytics.Overview, error)
	GuildInvites(ctx context.Context, guildID int64) ([]*entity.InviteRecord, error)
	GuildSecurity(ctx context.Context, guildID int64) (*analytics.SecuritySnapshot, error)
	SecurityAnalytics(ctx context.Context, guildID int64) (*entity.WindowStats, error)
	FraudScores(ctx context.Context, guildID int64) ([]*entity.FraudScore, error)
	RaidPrediction(ctx context.Context, guildID int64) (*entity.RaidForecast, error)
}

func Overview(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, guildID, ok := prepare(logger, w, r)
		if !ok {
			return
		}

		overview, err := handler.GuildOverview(r.Context(), guildID)
		if err != nil {
			log.Error("guild overview", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		if overview == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Guild not found"))
			return
		}
		render.JSON(w, r, response.Ok(overview))
	}
}

func Invites(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, guildID, ok := prepare(logger, w, r)
		if !ok {
			return
		}

		invites, err := handler.GuildInvites(r.Context(), guildID)
		if err != nil {
			log.Error("guild invites", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		render.JSON(w, r, response.Ok(invites))
	}
}

func Security(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, guildID, ok := prepare(logger, w, r)
		if !ok {
			return
		}

		snapshot, err := handler.GuildSecurity(r.Context(), guildID)
		if err != nil {
			log.Error("guild security", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		if snapshot == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Guild not found"))
			return
		}
		render.JSON(w, r, response.Ok(snapshot))
	}
}

func SecurityAnalytics(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, guildID, ok := prepare(logger, w, r)
		if !ok {
			return
		}

		stats, err := handler.SecurityAnalytics(r.Context(), guildID)
		if err != nil {
			if core.IsPremiumRequired(err) {
				premiumRequired(w, r)
				return
			}
			log.Error("security analytics", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		render.JSON(w, r, response.Ok(stats))
	}
}

func FraudScores(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, guildID, ok := prepare(logger, w, r)
		if !ok {
			return
		}

		scores, err := handler.FraudScores(r.Context(), guildID)
		if err != nil {
			if core.IsPremiumRequired(err) {
				premiumRequired(w, r)
				return
			}
			log.Error("fraud scores", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		render.JSON(w, r, response.Ok(scores))
	}
}

func RaidPrediction(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, guildID, ok := prepare(logger, w, r)
		if !ok {
			return
		}

		forecast, err := handler.RaidPrediction(r.Context(), guildID)
		if err != nil {
			if core.IsPremiumRequired(err) {
				premiumRequired(w, r)
				return
			}
			log.Error("raid prediction", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		render.JSON(w, r, response.Ok(forecast))
	}
}

func prepare(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (*slog.Logger, int64, bool) {
	mod := sl.Module("http.handlers.guild")
	raw := chi.URLParam(r, "id")

	log := logger.With(
		mod,
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		slog.String("guild_id", raw),
	)

	guildID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || guildID <= 0 {
		log.Warn("invalid guild id")
		render.Status(r, 400)
		render.JSON(w, r, response.Error("Invalid guild id"))
		return log, 0, false
	}
	return log, guildID, true
}

func premiumRequired(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, response.Error("Premium required"))
}
