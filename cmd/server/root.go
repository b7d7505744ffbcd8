package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-progress/internal/config"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scry-progress",
		Short:         "Learning progress engine",
		Long:          "scry-progress schedules flashcard reviews, tracks quiz progress and keeps a learner's data in sync with the remote store.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "Path to a YAML configuration file (defaults to ./config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSyncCmd(),
		newDueCmd(),
		newResetCmd(),
		newTokenCmd(),
	)
	return root
}

// loadConfig loads the configuration and sets up logging for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Debug("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("database_configured", cfg.Database.URL != ""),
		slog.Bool("jwt_secret_present", cfg.Auth.JWTSecret != ""))
	return cfg, log, nil
}

// withApplication runs fn against a fully wired application and releases
// its resources afterwards.
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := logger.WithLogger(cmd.Context(), log)
	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.cleanup()

	return fn(ctx, app)
}

// addUserFlag registers the required --user flag.
func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "Learner ID (UUID)")
	_ = cmd.MarkFlagRequired("user")
}

func userFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("user")
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q: expected a non-nil UUID", raw)
	}
	return id, nil
}
