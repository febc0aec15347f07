package logger

import (
	"log"
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// SetupLogger builds the process logger for the given environment. Local runs
// log debug to stdout; dev and prod append to the file at logPath, dev at
// debug with call sites, prod at info.
func SetupLogger(env, logPath string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		return slog.New(
			slog.NewTextHandler(openLogFile(env, logPath), &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envProd:
		return slog.New(
			slog.NewTextHandler(openLogFile(env, logPath), &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log.Fatal("invalid environment: ", env)
		return nil
	}
}

func openLogFile(env, logPath string) *os.File {
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatal("error opening log file: ", err)
	}
	log.Printf("env: %s; log file: %s", env, logPath)
	return logFile
}
