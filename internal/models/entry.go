// Package models contains data structures shared across the sync and therapy engines
package models

import "time"

// Entry represents a single glucose entry as delivered by the upstream feed.
// Field coverage varies by uploader; Date is preferred and DateStr is the
// fallback, mirroring what real feeds send.
type Entry struct {
	ID        string `json:"_id"`
	SGV       int    `json:"sgv"`  // Sensor glucose value in mg/dL
	Date      int64  `json:"date"` // Unix timestamp in milliseconds
	DateStr   string `json:"dateString"`
	Trend     int    `json:"trend"`     // Numeric trend code (1-7)
	Direction string `json:"direction"` // Trend direction as string
	Device    string `json:"device"`
	Type      string `json:"type"`
}

// Time returns the instant of the entry, or the zero time when neither
// timestamp field is usable.
func (e *Entry) Time() time.Time {
	if e.Date > 0 {
		return time.UnixMilli(e.Date).UTC()
	}
	if e.DateStr != "" {
		if parsed, err := time.Parse(time.RFC3339, e.DateStr); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// TrendDirection returns the typed trend for the entry
func (e *Entry) TrendDirection() TrendDirection {
	return ParseTrend(e.Direction, e.Trend)
}

// ServerStatus represents the upstream server status document
type ServerStatus struct {
	Status     string `json:"status"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	ServerTime string `json:"serverTime"`
	APIEnabled bool   `json:"apiEnabled"`
}
