package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brightloop/provisor/internal/catalog"
	"github.com/brightloop/provisor/internal/config"
	"github.com/brightloop/provisor/internal/hostapi"
	"github.com/brightloop/provisor/internal/logger"
	"github.com/brightloop/provisor/internal/settings"
	"github.com/brightloop/provisor/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("provisord - initializing...")

	appDir := os.Getenv("PROVISOR_CONFIG_DIR")
	if appDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			configDir = "."
		}
		appDir = filepath.Join(configDir, "provisor")
	}
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return fmt.Errorf("failed to create app dir: %w", err)
	}

	settingsPath := os.Getenv("PROVISOR_SETTINGS")
	if settingsPath == "" {
		settingsPath = filepath.Join(appDir, "settings.toml")
	}
	s, err := settings.Load(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := logger.Init(appDir, s.LogRingCapacity, s.LogMaxFileBytes, s.LogFlushInterval); err != nil {
		fmt.Printf("Warning: failed to initialize persistent logging: %v\n", err)
	}
	defer logger.Close()

	configPath := os.Getenv("PROVISOR_CONFIG")
	if configPath == "" {
		configPath = filepath.Join(appDir, "providers.json")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load provider configuration: %w", err)
	}

	logger.AddLog("INFO", "=== provisord starting ===")
	logger.AddLog("INFO", fmt.Sprintf("app directory: %s", appDir))
	logger.AddLog("INFO", fmt.Sprintf("provider config: %s (%d declared)", configPath, len(cfg.Names())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sv := supervisor.New(ctx, cfg, s)
	defer sv.Shutdown()

	cat := catalog.New(sv)
	gateway := hostapi.New(sv, cat)

	addr := os.Getenv("PROVISOR_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8710"
	}

	server := &http.Server{Addr: addr, Handler: gateway}

	fmt.Printf("Starting host gateway on %s...\n", addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("host gateway failed: %v\n", err)
			logger.AddLog("ERROR", fmt.Sprintf("host gateway failed: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	fmt.Println("\nShutting down gracefully...")
	logger.AddLog("INFO", "provisord shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("gateway shutdown failed: %v\n", err)
	}

	return nil
}
