package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/ultimatecoach/internal/config"
	"github.com/meltforce/ultimatecoach/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "coach server URL (e.g. https://coach.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("COACH_AUTH_API_KEY"), "server API key (default $COACH_AUTH_API_KEY)")
	configPath := flag.String("config", "", "optional config file for progression settings")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: coach-mcp -server <URL> [-api-key KEY] [-config config.yaml]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	progression := config.DefaultProgression()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		progression = cfg.Progression
	}

	// The remote server resolves the user from the tailnet identity, so
	// the local user ID is never sent.
	s := mcp.New(mcp.NewHTTPClient(*serverURL, *apiKey), progression, Version, log)
	log.Info("coach MCP server on stdio", "server", *serverURL, "version", Version)
	if err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, 1)
	})); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
