package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"inviteguard/gateway"
	"inviteguard/impl/analytics"
	"inviteguard/impl/auth"
	"inviteguard/impl/core"
	"inviteguard/impl/premium"
	"inviteguard/impl/security"
	"inviteguard/impl/tracker"
	"inviteguard/internal/cache"
	"inviteguard/internal/config"
	"inviteguard/internal/database"
	"inviteguard/internal/http-server/api"
	"inviteguard/internal/stripehandler"
	"inviteguard/lib/locks"
	"inviteguard/lib/logger"
	"inviteguard/lib/sl"
	"inviteguard/notifier"
)

const logFileName = "inviteguard.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	logg.Info("starting inviteguard", slog.String("config", *configPath), slog.String("env", conf.Env))

	var notify *notifier.Notifier
	if conf.Telegram.Enabled {
		var err error
		notify, err = notifier.New(conf.Telegram.ApiKey, conf.Telegram.ChatID, logg)
		if err != nil {
			logg.Error("telegram notifier", sl.Err(err))
		} else {
			logg = slog.New(logger.NewTelegramHandler(logg.Handler(), notify, slog.LevelWarn))
		}
	}

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Fatal("mongo is not enabled; no durable store available")
	}

	store, err := cache.New(conf.Cache.Size)
	if err != nil {
		log.Fatal("cache: ", err)
	}

	lockManager := locks.NewManager()
	platform := gateway.NewClient(gateway.Config{
		BaseURL: conf.Gateway.BaseURL,
		Token:   conf.Gateway.Token,
	}, logg)

	trackerSvc := tracker.New(db, store, platform, lockManager, tracker.Defaults{
		JoinBurstCount:          conf.Defaults.JoinBurstCount,
		JoinBurstWindowSeconds:  conf.Defaults.JoinBurstWindowSec,
		MinAccountAgeHours:      conf.Defaults.MinAccountAgeHours,
		AutoKickYoungAccounts:   conf.Defaults.AutoKickYoung,
		LinkSpamThreshold:       conf.Defaults.LinkSpamThreshold,
		LinkSpamWindowSeconds:   conf.Defaults.LinkSpamWindowSec,
		LockdownSlowmodeSeconds: conf.Defaults.LockdownSlowmode,
		QuarantineRoleName:      conf.Defaults.QuarantineRole,
	}, logg)
	premiumSvc := premium.New(db, logg)
	securitySvc := security.New(db, store, platform, premiumSvc, security.Config{
		TimeoutMinutes:        conf.Security.TimeoutMinutes,
		DefaultQuarantineRole: conf.Defaults.QuarantineRole,
	}, logg)
	analyticsSvc := analytics.New(db, premiumSvc, logg)
	authSvc := auth.New(db)

	handler := core.New(trackerSvc, securitySvc, premiumSvc, analyticsSvc, authSvc, platform, logg)
	handler.SetStripeHandler(stripehandler.New(
		conf.Stripe.APIKey, conf.Stripe.WebhookSecret, premiumSvc, notify, logg,
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := gateway.NewDispatcher(handler, logg)
	go dispatcher.Run(ctx)

	if err = api.New(conf, logg, handler, dispatcher); err != nil {
		logg.Error("api server stopped", sl.Err(err))
	}
}
