package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/config"
	"github.com/meltforce/ultimatecoach/internal/ingest/alpha"
	"github.com/meltforce/ultimatecoach/internal/mcp"
	"github.com/meltforce/ultimatecoach/internal/program"
	"github.com/meltforce/ultimatecoach/internal/server"
	"github.com/meltforce/ultimatecoach/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("UltimateCoach starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	template, err := program.LoadTemplate(cfg.Program.TemplatePath)
	if err != nil {
		log.Error("failed to load program template", "error", err)
		os.Exit(1)
	}
	// Validated by config.Load.
	programStart, _ := cfg.Program.ParseStartDate()

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Without Tailscale every request runs as the local dev user, which
	// must exist before the first request.
	if !cfg.Tailscale.Enabled {
		uid, err := db.GetOrCreateUser(ctx, "local", "Local Dev User")
		if err != nil {
			log.Error("failed to create dev user", "error", err)
			os.Exit(1)
		}
		if uid != 1 {
			log.Warn("dev user is not user 1; requests will use user 1", "user_id", uid)
		}
	}

	svc := coach.New(db, cfg.Progression, log)
	seeder := program.NewSeeder(db, template, log)
	alphaProvider := alpha.NewProvider(db, svc, log)

	// Create server
	srv := server.New(db, svc, seeder, alphaProvider, server.Options{
		APIKey:       cfg.Auth.APIKey,
		Progression:  cfg.Progression,
		ProgramStart: programStart,
	}, log)
	srv.SetMCP(mcp.NewHTTPHandler(mcp.New(db, cfg.Progression, Version, log)))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
