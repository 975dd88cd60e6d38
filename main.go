package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"markestedt/keybridge/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("keybridge failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var port int

	root := &cobra.Command{
		Use:           "keybridge",
		Short:         "Route keyboard input to the overlay UI while capture is active",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Web.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runAgent(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default %APPDATA%/keybridge/config.toml)")
	root.Flags().IntVar(&port, "port", 0, "Override the web UI port")

	root.AddCommand(newSessionsCmd(&configPath))
	return root
}

// loadConfig loads the configuration and sets up logging from it
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	setupLogging(cfg.Log.Level)
	slog.Info("Configuration loaded", "path", cfg.Path())
	return cfg, nil
}

func setupLogging(level string) {
	lvl, err := config.ParseLevel(level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)

	if err != nil {
		slog.Warn("Invalid log level, using info", "level", level)
	}
}

func runAgent(ctx context.Context, cfg *config.Config) error {
	agent, err := NewAgent(cfg)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := agent.Run(ctx); err != nil {
		return err
	}

	slog.Info("keybridge stopped")
	return nil
}
