package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"menusemanal/internal/app"
	"menusemanal/internal/config"
	"menusemanal/internal/logger"
)

// The worker only sends the weekly e-mail. Run it with
// SUMMARY_SCHEDULER_ENABLED=false on the api so exactly one process sends.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	log.Info("summary worker running",
		zap.Stringer("day", cfg.SendDay),
		zap.Int("from_hour", cfg.SendFromHour),
		zap.Int("to_hour", cfg.SendToHour),
	)

	if err := a.Scheduler.Run(ctx); err != nil {
		log.Error("summary worker stopped", zap.Error(err))
	}
}
