package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/classifier"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newClassifyCmd(build generatorFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Classify the intent and mood of an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := build(cmd)
			if err != nil {
				return err
			}
			intent, mood := classifier.New(gen, cliLogger(cmd)).Classify(cmd.Context(), strings.Join(args, " "))
			return printJSON(cmd.OutOrStdout(), struct {
				Intent models.IntentResult `json:"intent"`
				Mood   models.Mood         `json:"mood"`
			}{intent, mood})
		},
	}
}

type timelineOutput struct {
	Source   synthesis.Source     `json:"source"`
	Error    string               `json:"error,omitempty"`
	Timeline models.DailyTimeline `json:"timeline"`
}

func newTimelineCmd(build generatorFunc) *cobra.Command {
	var date, mood, currency string

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Generate a daily timeline with default preferences without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				parsed, ok := models.ParseDate(date)
				if !ok {
					return fmt.Errorf("--date must be YYYY-MM-DD, got %q", date)
				}
				day = parsed
			}
			m := models.Mood(mood)
			if !m.IsValid() {
				return fmt.Errorf("unknown mood %q", mood)
			}

			gen, err := build(cmd)
			if err != nil {
				return err
			}
			userID := uuid.New()
			synth := synthesis.NewTimelineSynthesizer(gen, nil, synthesis.Config{Currency: currency}, cliLogger(cmd), nil)
			res := synth.Synthesize(cmd.Context(), userID, models.DefaultPreferences(userID), m, day)

			out := timelineOutput{Source: res.Source, Timeline: res.Timeline}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to plan (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&mood, "mood", string(models.MoodNeutral), "Mood to plan for")
	cmd.Flags().StringVar(&currency, "currency", "TRY", "Currency for generated budgets")
	return cmd
}
