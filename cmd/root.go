// Package cmd implements the smart-renter command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sidhant-sriv/smart-renter/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFile string
	port    string
)

var rootCmd = &cobra.Command{
	Use:   "smart-renter",
	Short: "Rental listing marketplace API",
	Long: `smart-renter serves the rental listing API: owners list properties,
admins approve them, tenants search, book and review them.

Commands:
  serve    - Run the HTTP API
  migrate  - Create or update the database schema
  seed     - Insert demo accounts and listings`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	if port != "" {
		cfg.Port = port
	}
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newLogger writes text in development and JSON everywhere else.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
