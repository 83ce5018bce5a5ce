package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/materializer"
	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/refresh"
	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/scheduler"
	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "gredidam.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	client := newClient(cfg)
	tracking := trackingStore(cfg)
	mat := materializer.New(client, tracking, cfg.Sync.StorageDir)
	refresher := refresh.New(client, tracking, mat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("gredidam started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"api_url", cfg.Gredi.APIURL,
		"customer", cfg.Gredi.CustomerPath,
		"schedule", cfg.Sync.Schedule,
		"pid_file", pidPath,
	)

	// Scheduler: periodic metadata refresh over tracked assets, best effort.
	sched := scheduler.New(tracking, cfg.Sync.Schedule, func(assetID string) {
		if err := refresher.Refresh(ctx, assetID); err != nil {
			slog.Error("scheduled refresh failed", "asset_id", assetID, "error", err)
		}
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Webhook HTTP server
	if cfg.HTTP.Enabled {
		srv := webhook.NewServer(client, refresher.Refresh)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: srv,
		}
		go func() {
			slog.Info("webhook server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("webhook server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	slog.Info("shutting down", "signal", sig)
	return nil
}
