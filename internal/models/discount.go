package models

import (
	"time"

	"github.com/google/uuid"
)

// Discount is a business deal read from the Discount Store
type Discount struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"business_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Percentage   float64   `json:"percentage"`
	ValidUntil   time.Time `json:"valid_until"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsActive reports whether the discount can still be used at now.
func (d Discount) IsActive(now time.Time) bool {
	return !d.ValidUntil.Before(now)
}

// DiscountSummary is the conversational digest of a discount list
type DiscountSummary struct {
	Headline   string   `json:"headline" validate:"required"`
	Highlights []string `json:"highlights" validate:"max=5"`
}
