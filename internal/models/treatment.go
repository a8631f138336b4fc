// Package models contains data structures shared across the sync and therapy engines
package models

import "time"

// Treatment represents a care event from the upstream feed (insulin, carbs, etc.)
type Treatment struct {
	ID        string  `json:"_id"`
	EventType string  `json:"eventType"`
	Date      int64   `json:"date"` // Unix timestamp in milliseconds
	CreatedAt string  `json:"created_at"`
	Insulin   float64 `json:"insulin"` // Units of insulin
	Carbs     float64 `json:"carbs"`   // Grams of carbohydrates
	Glucose   float64 `json:"glucose"` // Blood glucose value if recorded
	Units     string  `json:"units"`   // "mg/dl" or "mmol/l"
	Notes     string  `json:"notes"`
	EnteredBy string  `json:"enteredBy"`
}

// Time returns the time of the treatment
func (t *Treatment) Time() time.Time {
	if t.Date > 0 {
		return time.UnixMilli(t.Date).UTC()
	}
	// Fallback to created_at
	parsed, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// HasInsulin returns true if this treatment includes insulin
func (t *Treatment) HasInsulin() bool {
	return t.Insulin > 0
}

// HasCarbs returns true if this treatment includes carbohydrates
func (t *Treatment) HasCarbs() bool {
	return t.Carbs > 0
}
