package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/config"
	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/state"
	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

var cfgPath string

func init() {
	defaultPath := filepath.Join(os.Getenv("HOME"), ".gredidam", "config.json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "config file path")
}

var rootCmd = &cobra.Command{
	Use:           "gredidam",
	Short:         "Gredi DAM integration client",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// newClient builds the DAM client with the persistent metafields cache.
func newClient(cfg *config.Config) *gredi.Client {
	cache := state.NewCacheStore(filepath.Join(cfg.DataDir, "cache.json"))
	return gredi.NewClient(grediConfig(cfg), nil, cache)
}

func grediConfig(cfg *config.Config) gredi.Config {
	return gredi.Config{
		APIURL:         cfg.Gredi.APIURL,
		CustomerPath:   cfg.Gredi.CustomerPath,
		CustomerID:     cfg.Gredi.CustomerID,
		Username:       cfg.Gredi.Username,
		Password:       cfg.Gredi.Password,
		UploadFolderID: cfg.Gredi.UploadFolderID,
		PerPage:        cfg.Gredi.PerPage,
	}
}

func trackingStore(cfg *config.Config) *state.TrackingStore {
	return state.NewTrackingStore(filepath.Join(cfg.DataDir, "tracking.json"))
}
