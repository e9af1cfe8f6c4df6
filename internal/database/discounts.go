package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
)

// maxActiveDiscounts caps how many deals a single inquiry can surface.
const maxActiveDiscounts = 20

// DiscountRepository reads business deals
type DiscountRepository struct {
	db *DB
}

// NewDiscountRepository creates a new discount repository
func NewDiscountRepository(db *DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// ListActive returns discounts valid at now, optionally restricted to a category (case-insensitive),
// best deals first.
func (r *DiscountRepository) ListActive(ctx context.Context, category *string, now time.Time) ([]models.Discount, error) {
	query := `
		SELECT id, business_name, title, description, category, percentage, valid_until, created_at
		FROM discounts
		WHERE valid_until >= $1
	`
	args := []any{now}
	if category != nil && strings.TrimSpace(*category) != "" {
		query += ` AND LOWER(category) = LOWER($2)`
		args = append(args, strings.TrimSpace(*category))
	}
	query += fmt.Sprintf(` ORDER BY percentage DESC, valid_until ASC LIMIT %d`, maxActiveDiscounts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	discounts := make([]models.Discount, 0)
	for rows.Next() {
		var d models.Discount
		if err := rows.Scan(&d.ID, &d.BusinessName, &d.Title, &d.Description, &d.Category, &d.Percentage, &d.ValidUntil, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discounts: %w", err)
	}

	return discounts, nil
}

// Create inserts a discount, assigning an id when missing.
func (r *DiscountRepository) Create(ctx context.Context, d *models.Discount) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	query := `
		INSERT INTO discounts (id, business_name, title, description, category, percentage, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.BusinessName, d.Title, d.Description, d.Category, d.Percentage, d.ValidUntil).
		Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create discount: %w", err)
	}
	return nil
}
