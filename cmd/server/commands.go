package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-progress/internal/platform/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status|version]",
		Short:     "Manage the remote store schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "reset", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errSyncDisabled
			}
			db, err := postgres.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			return postgres.Migrate(cmd.Context(), db, args[0], log)
		},
	}
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass for a learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				mgr, err := app.syncer()
				if err != nil {
					return err
				}
				result, err := mgr.SyncAll(ctx, userID)
				if err != nil {
					return err
				}
				if err := printJSON(cmd, struct {
					Success   bool     `json:"success"`
					Synced    int      `json:"synced"`
					Conflicts int      `json:"conflicts"`
					Errors    []string `json:"errors,omitempty"`
				}{result.Success, result.Synced, result.Conflicts, result.ErrorMessages()}); err != nil {
					return err
				}
				if !result.Success && result.Conflicts < len(result.Errors) {
					return fmt.Errorf("sync finished with %d error(s)", len(result.Errors)-result.Conflicts)
				}
				return nil
			})
		},
	}
	addUserFlag(cmd)
	return cmd
}

func newDueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the cards due on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				s, err := app.registry.Store(ctx, userID)
				if err != nil {
					return err
				}

				date := s.Now()
				if raw, _ := cmd.Flags().GetString("date"); raw != "" {
					date, err = time.ParseInLocation(time.DateOnly, raw, s.Location())
					if err != nil {
						return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", raw)
					}
				}
				return printJSON(cmd, s.CardsDueOn(date))
			})
		},
	}
	addUserFlag(cmd)
	cmd.Flags().String("date", "", "Calendar day (YYYY-MM-DD), defaults to today")
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear a learner's local study progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				s, err := app.registry.Store(ctx, userID)
				if err != nil {
					return err
				}
				if err := s.ResetProgress(ctx); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "progress of %s reset\n", userID)
				return err
			})
		},
	}
	addUserFlag(cmd)
	cmd.Flags().Bool("yes", false, "Confirm the reset")
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tokens, err := newTokenService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	addUserFlag(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
