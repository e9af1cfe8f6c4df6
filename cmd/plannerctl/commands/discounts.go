package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benvon/smart-planner/internal/config"
	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/spf13/cobra"
)

// NewDiscountsCmd creates the discounts command with list and add subcommands.
func NewDiscountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discounts",
		Short: "Manage the discount catalogue",
	}
	cmd.AddCommand(newDiscountsListCmd())
	cmd.AddCommand(newDiscountsAddCmd())
	return cmd
}

func newDiscountsListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discounts that are still valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *database.DB) error {
				var filter *string
				if c := strings.TrimSpace(category); c != "" {
					filter = &c
				}
				discounts, err := database.NewDiscountRepository(db).ListActive(ctx, filter, time.Now())
				if err != nil {
					return err
				}
				if len(discounts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No active discounts")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "BUSINESS\tTITLE\tCATEGORY\tPERCENT\tVALID UNTIL")
				for _, d := range discounts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n", d.BusinessName, d.Title, d.Category, d.Percentage, models.FormatDate(d.ValidUntil))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show this category")
	return cmd
}

type discountFlags struct {
	business    string
	title       string
	description string
	category    string
	percentage  float64
	validUntil  string
}

// build validates the flags. A discount stays valid through the last second of its end date.
func (f discountFlags) build() (*models.Discount, error) {
	d := &models.Discount{
		BusinessName: strings.TrimSpace(f.business),
		Title:        strings.TrimSpace(f.title),
		Description:  strings.TrimSpace(f.description),
		Category:     strings.ToLower(strings.TrimSpace(f.category)),
		Percentage:   f.percentage,
	}
	if d.BusinessName == "" || d.Title == "" || d.Category == "" {
		return nil, fmt.Errorf("--business, --title and --category are required")
	}
	if f.percentage <= 0 || f.percentage > 100 {
		return nil, fmt.Errorf("--percentage must be in (0, 100], got %v", f.percentage)
	}
	day, ok := models.ParseDate(f.validUntil)
	if !ok {
		return nil, fmt.Errorf("--valid-until must be YYYY-MM-DD, got %q", f.validUntil)
	}
	d.ValidUntil = day.AddDate(0, 0, 1).Add(-time.Second)
	return d, nil
}

func newDiscountsAddCmd() *cobra.Command {
	var f discountFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a discount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.build()
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *database.DB) error {
				if err := database.NewDiscountRepository(db).Create(ctx, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added discount %s (%s, %.0f%%)\n", d.ID, d.BusinessName, d.Percentage)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.business, "business", "", "Business name")
	cmd.Flags().StringVar(&f.title, "title", "", "Short title")
	cmd.Flags().StringVar(&f.description, "description", "", "Longer description")
	cmd.Flags().StringVar(&f.category, "category", "", "Category, e.g. kahvaltı or spor")
	cmd.Flags().Float64Var(&f.percentage, "percentage", 0, "Discount percentage")
	cmd.Flags().StringVar(&f.validUntil, "valid-until", "", "Last valid day (YYYY-MM-DD)")
	return cmd
}
