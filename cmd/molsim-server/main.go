package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daniacca/molsim/internal/logging"
	"github.com/daniacca/molsim/internal/molsim"
)

func main() {
	cfg, err := loadServerConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		logging.New("error").Fatalf("invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	srv := NewServer(cfg, logger)
	if cfg.ConfigFile != "" {
		sim, err := loadInitialSimulation(cfg.ConfigFile, logger, molsim.WithNotifications(srv.notifications))
		if err != nil {
			logger.Fatalf("failed to load simulation from %s: %v", cfg.ConfigFile, err)
		}
		srv.SetSimulation(sim)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("molsim-server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	if err := srv.Close(); err != nil {
		logger.Errorf("closing notifiers: %v", err)
	}
}
