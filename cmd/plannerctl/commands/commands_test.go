package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/ai/aitest"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/spf13/cobra"
)

func stubGenerator(gen ai.TextGenerator) generatorFunc {
	return func(*cobra.Command) (ai.TextGenerator, error) { return gen, nil }
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	for _, path := range [][]string{
		{"migrate"},
		{"discounts", "list"},
		{"discounts", "add"},
		{"preferences", "show"},
		{"preferences", "import"},
		{"classify"},
		{"timeline"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered", path)
		}
	}
}

func TestDiscountFlags_Build(t *testing.T) {
	t.Parallel()

	valid := discountFlags{business: " Simit Sarayı ", title: "Kahvaltı menüsü", category: "Kahvaltı", percentage: 20, validUntil: "2026-11-30"}

	tests := []struct {
		name    string
		mutate  func(*discountFlags)
		wantErr string
	}{
		{name: "valid"},
		{name: "missing business", mutate: func(f *discountFlags) { f.business = " " }, wantErr: "required"},
		{name: "zero percentage", mutate: func(f *discountFlags) { f.percentage = 0 }, wantErr: "--percentage"},
		{name: "over one hundred", mutate: func(f *discountFlags) { f.percentage = 120 }, wantErr: "--percentage"},
		{name: "bad date", mutate: func(f *discountFlags) { f.validUntil = "30.11.2026" }, wantErr: "--valid-until"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := valid
			if tt.mutate != nil {
				tt.mutate(&f)
			}
			d, err := f.build()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.BusinessName != "Simit Sarayı" || d.Category != "kahvaltı" {
				t.Errorf("Expected trimmed and lowercased fields, got %+v", d)
			}
			lastDay := time.Date(2026, 11, 30, 23, 0, 0, 0, time.UTC)
			if !d.IsActive(lastDay) {
				t.Error("Expected discount to be active on its last day")
			}
			if d.IsActive(lastDay.Add(2 * time.Hour)) {
				t.Error("Expected discount to expire after its last day")
			}
		})
	}
}

func TestDecodePreferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid",
			doc: `{"user_id":"6f1c1c52-8a3a-4d7e-9a55-0c1b2f3e4d5a","wake_time":"07:30","sleep_time":"23:30",
				"budget_range":{"min":200,"max":800},"interests":["müzik"],"fitness_level":"beginner",
				"social_preference":"introvert","location":{"lat":41.01,"lng":28.97,"city":"İstanbul"}}`,
		},
		{name: "missing user id", doc: `{"wake_time":"07:30","sleep_time":"23:30","fitness_level":"beginner","social_preference":"introvert"}`, wantErr: true},
		{
			name: "bad clock",
			doc: `{"user_id":"6f1c1c52-8a3a-4d7e-9a55-0c1b2f3e4d5a","wake_time":"7.30","sleep_time":"23:30",
				"fitness_level":"beginner","social_preference":"introvert"}`,
			wantErr: true,
		},
		{
			name: "inverted budget",
			doc: `{"user_id":"6f1c1c52-8a3a-4d7e-9a55-0c1b2f3e4d5a","wake_time":"07:30","sleep_time":"23:30",
				"budget_range":{"min":900,"max":100},"fitness_level":"beginner","social_preference":"introvert"}`,
			wantErr: true,
		},
		{name: "unknown field", doc: `{"user_id":"6f1c1c52-8a3a-4d7e-9a55-0c1b2f3e4d5a","favourite_colour":"mavi"}`, wantErr: true},
		{name: "not json", doc: `wake_time: "07:30"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := decodePreferences(strings.NewReader(tt.doc))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %+v", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p.WakeTime != "07:30" || p.Location.City != "İstanbul" {
				t.Errorf("unexpected preferences: %+v", p)
			}
		})
	}
}

func TestClassifyCmd(t *testing.T) {
	t.Parallel()

	gen := aitest.ByOperation(map[string]aitest.Response{
		ai.OpClassifyIntent: {Text: `{"type":"discount_inquiry","category":"kahvaltı","confidence":0.8}`},
		ai.OpClassifyMood:   {Text: `{"mood":"happy"}`},
	})

	out, err := run(t, newClassifyCmd(stubGenerator(gen)), "kahvaltı", "indirimi", "var", "mı?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var got struct {
		Intent models.IntentResult `json:"intent"`
		Mood   models.Mood         `json:"mood"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out, err)
	}
	if got.Intent.Type != models.IntentDiscountInquiry || got.Mood != models.MoodHappy {
		t.Errorf("unexpected classification: %+v", got)
	}
	if calls := gen.CallsFor(ai.OpClassifyIntent); len(calls) != 1 || !strings.Contains(calls[0].Prompt, "kahvaltı indirimi var mı?") {
		t.Errorf("Expected joined utterance in prompt, got %+v", calls)
	}
}

func TestTimelineCmd(t *testing.T) {
	t.Parallel()

	t.Run("provider failure prints the default timeline", func(t *testing.T) {
		t.Parallel()

		out, err := run(t, newTimelineCmd(stubGenerator(aitest.ByOperation(nil))), "--date", "2026-10-20", "--mood", "tired")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		var got timelineOutput
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("Expected JSON output, got %q: %v", out, err)
		}
		if got.Source != synthesis.SourceFallback || got.Error == "" {
			t.Errorf("Expected fallback with reason, got source %q error %q", got.Source, got.Error)
		}
		if got.Timeline.Date != "2026-10-20" || len(got.Timeline.Activities) != 2 {
			t.Errorf("unexpected timeline: %+v", got.Timeline)
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		t.Parallel()

		if _, err := run(t, newTimelineCmd(stubGenerator(aitest.ByOperation(nil))), "--date", "tomorrow"); err == nil {
			t.Error("Expected error for bad date")
		}
		if _, err := run(t, newTimelineCmd(stubGenerator(aitest.ByOperation(nil))), "--mood", "furious"); err == nil {
			t.Error("Expected error for unknown mood")
		}
	})
}
