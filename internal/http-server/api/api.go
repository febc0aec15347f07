package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"inviteguard/gateway"
	"inviteguard/internal/config"
	"inviteguard/internal/http-server/handlers/board"
	"inviteguard/internal/http-server/handlers/errors"
	"inviteguard/internal/http-server/handlers/events"
	"inviteguard/internal/http-server/handlers/guild"
	"inviteguard/internal/http-server/handlers/stripe"
	"inviteguard/internal/http-server/middleware/authenticate"
	"inviteguard/internal/http-server/middleware/timeout"
	"inviteguard/lib/api/response"
	"inviteguard/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	guild.Core
	board.Core
	stripe.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler, dispatcher *gateway.Dispatcher) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok("alive"))
	})

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Route("/guild/{id}", func(g chi.Router) {
			g.Get("/overview", guild.Overview(log, handler))
			g.Get("/invites", guild.Invites(log, handler))
			g.Get("/security", guild.Security(log, handler))
			g.Get("/security/analytics", guild.SecurityAnalytics(log, handler))
			g.Get("/fraud-scores", guild.FraudScores(log, handler))
			g.Get("/raid-prediction", guild.RaidPrediction(log, handler))
		})
		rootApi.Get("/leaderboard", board.Leaderboard(log, handler))
		rootApi.Get("/incidents", board.Incidents(log, handler))
	})
	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Post("/stripe", stripe.Event(log, handler))
		rootWH.Post("/events", events.Receive(log, conf.Gateway.Token, dispatcher))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
