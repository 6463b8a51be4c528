package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menusemanal/internal/app"
	"menusemanal/internal/config"
	"menusemanal/internal/logger"
)

func main() {
	// ───────────────────────── CONFIG ─────────────────────────
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

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── WIRING ─────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	log.Info("api starting",
		zap.String("store", cfg.Store),
		zap.String("week", a.Weeks.Current()),
		zap.Bool("scheduler", cfg.SchedulerEnabled),
	)

	// ───────────────────────── START ─────────────────────────
	if err := a.Serve(ctx); err != nil {
		log.Error("api stopped", zap.Error(err))
		return
	}
	log.Info("api stopped")
}
