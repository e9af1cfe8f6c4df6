package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/benvon/smart-planner/internal/config"
	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// generatorFunc builds the text generator a command talks to
type generatorFunc func(cmd *cobra.Command) (ai.TextGenerator, error)

// NewRootCmd assembles the plannerctl command tree
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Operator tool for the Smart Planner assistant",
		Long:          "Run migrations, manage discounts and preferences, and exercise classification and timeline generation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				_, err := config.LoadDotEnv(envFile)
				return err
			}
			_, err := config.LoadDotEnv()
			return err
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this file before reading the environment")
	root.PersistentFlags().Bool("debug", false, "Log LLM requests and responses to stderr")

	root.AddCommand(NewMigrateCmd())
	root.AddCommand(NewDiscountsCmd())
	root.AddCommand(NewPreferencesCmd())
	root.AddCommand(newClassifyCmd(defaultGenerator))
	root.AddCommand(newTimelineCmd(defaultGenerator))
	return root
}

func cliLogger(cmd *cobra.Command) *zap.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	if !debug {
		return zap.NewNop()
	}
	l, err := logger.NewDevelopmentLogger(true)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func defaultGenerator(cmd *cobra.Command) (ai.TextGenerator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug, _ := cmd.Flags().GetBool("debug")
	log := cliLogger(cmd)

	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry, log, debug)
	gen := ai.NewFromConfig(registry, cfg.AIProvider, ai.ProviderConfig{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
	}, log)
	return ai.Instrument(gen, cfg.GenerationTimeout, nil), nil
}

// withDB opens the configured database for the duration of fn.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	return fn(cmd.Context(), cfg, db)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
