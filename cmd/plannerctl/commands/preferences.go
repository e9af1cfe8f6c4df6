package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/benvon/smart-planner/internal/config"
	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/preferences"
	"github.com/benvon/smart-planner/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewPreferencesCmd creates the preferences command with show and import subcommands.
func NewPreferencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Inspect and load user preferences",
	}
	cmd.AddCommand(newPreferencesShowCmd())
	cmd.AddCommand(newPreferencesImportCmd())
	return cmd
}

func newPreferencesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print the preferences the assistant would use (defaults when none are stored)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				svc := preferences.NewService(database.NewPreferenceRepository(db), cfg.StoreTimeout, cliLogger(cmd))
				return printJSON(cmd.OutOrStdout(), svc.Get(ctx, userID))
			})
		},
	}
}

// decodePreferences reads one JSON preference document and checks it the way the store expects.
func decodePreferences(r io.Reader) (*models.UserPreferences, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var p models.UserPreferences
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid preferences document: %w", err)
	}
	if p.UserID == uuid.Nil {
		return nil, fmt.Errorf("user_id is required")
	}
	if err := validation.Validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid preferences: %w", err)
	}
	return &p, nil
}

func newPreferencesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create or replace a user's preferences from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			p, err := decodePreferences(in)
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *database.DB) error {
				if err := database.NewPreferenceRepository(db).Upsert(ctx, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored preferences for %s\n", p.UserID)
				return nil
			})
		},
	}
}
