package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stakeduel/uno/internal/cache"
	"github.com/stakeduel/uno/internal/config"
	"github.com/stakeduel/uno/internal/database"
	"github.com/stakeduel/uno/internal/ledger"
	"github.com/stakeduel/uno/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("bad configuration")
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var l ledger.Ledger
	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Fatal("database unavailable")
		}
		defer database.Close()
		l = database.NewPgLedger(database.DB)
		logrus.Info("using postgres ledger")
	} else {
		l = ledger.NewMemory()
		logrus.Warn("DATABASE_URL not set, balances are in memory and lost on exit")
	}

	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
			logrus.WithError(err).Warn("redis unavailable, action history disabled")
		} else {
			defer cache.Close()
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           ws.CORS(cfg.AllowedOrigins, ws.NewServer(cfg, l).Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
