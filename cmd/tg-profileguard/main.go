package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tg-profileguard/internal/bot"
	"tg-profileguard/internal/config"
	"tg-profileguard/internal/crash"
	"tg-profileguard/internal/handler"
	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/storage"
	"tg-profileguard/internal/sweeper"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "tg-profileguard",
		Short: "Telegram bot enforcing profile completeness in a group",
		Long: "tg-profileguard watches a Telegram group and warns, then restricts, members " +
			"who post without a public profile photo or a username. Restricted members lift " +
			"the restriction themselves by completing their profile and messaging the bot.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Setup(cfg); err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	if storage.IsEnabled(cfg) {
		if err := storage.Initialize(cfg); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	botService, server, err := bot.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}

	handler.Initialize(cfg)

	crash.SafeGoroutine("webhook-server", func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	})

	// Give server time to start
	time.Sleep(500 * time.Millisecond)
	logger.Infof("HTTP server is ready, starting bot handler...")

	handler.SetupMessageHandlers(botService.Handler, botService.Bot)

	sweep := sweeper.New(handler.Engine(), cfg.Enforcement.SweepInterval())
	sweep.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start blocks in the update loop until Stop, so it gets its own
	// goroutine; this function keeps waiting for a shutdown signal.
	crash.SafeGoroutine("bot-handler", func() {
		botService.Start()
	})

	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	// Stops the sweeper and in-flight handlers.
	cancel()
	botService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("HTTP server shutdown error: %v", err)
	}

	logger.Infof("Server gracefully stopped")
	return nil
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !storage.IsEnabled(cfg) {
		return fmt.Errorf("database is not enabled in configuration")
	}

	if err := logger.Setup(cfg); err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	if err := storage.Initialize(cfg); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	db := storage.GetDB()
	if db == nil {
		return fmt.Errorf("failed to get database connection")
	}

	if err := storage.MigrateAll(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migration completed successfully")
	return nil
}
