// Package models contains data structures shared across the sync and therapy engines
package models

import "time"

// mg/dL per mmol/L
const mmolConversionFactor = 18.0182

// TrendDirection describes the rate-of-change arrow reported by the CGM
type TrendDirection string

const (
	TrendDoubleUp      TrendDirection = "DoubleUp"
	TrendSingleUp      TrendDirection = "SingleUp"
	TrendFortyFiveUp   TrendDirection = "FortyFiveUp"
	TrendFlat          TrendDirection = "Flat"
	TrendFortyFiveDown TrendDirection = "FortyFiveDown"
	TrendSingleDown    TrendDirection = "SingleDown"
	TrendDoubleDown    TrendDirection = "DoubleDown"
	TrendNone          TrendDirection = "NONE"
)

// numeric trend codes used by older uploaders (1-7)
var numericTrends = map[int]TrendDirection{
	1: TrendDoubleUp,
	2: TrendSingleUp,
	3: TrendFortyFiveUp,
	4: TrendFlat,
	5: TrendFortyFiveDown,
	6: TrendSingleDown,
	7: TrendDoubleDown,
}

var trendArrows = map[TrendDirection]string{
	TrendDoubleUp:      "⇈",
	TrendSingleUp:      "↑",
	TrendFortyFiveUp:   "↗",
	TrendFlat:          "→",
	TrendFortyFiveDown: "↘",
	TrendSingleDown:    "↓",
	TrendDoubleDown:    "⇊",
}

// ParseTrend maps an upstream direction string or numeric trend code to a
// TrendDirection. The string form wins when both are present.
func ParseTrend(direction string, trend int) TrendDirection {
	if direction != "" {
		d := TrendDirection(direction)
		if _, ok := trendArrows[d]; ok {
			return d
		}
	}
	if d, ok := numericTrends[trend]; ok {
		return d
	}
	return TrendNone
}

// Arrow returns the Unicode arrow character for the trend
func (d TrendDirection) Arrow() string {
	if arrow, ok := trendArrows[d]; ok {
		return arrow
	}
	return "-"
}

// Reading is a validated glucose reading ready for persistence. Identity for
// deduplication is the exact Timestamp; two readings with the same instant
// are the same reading regardless of other fields.
type Reading struct {
	Timestamp time.Time      `json:"timestamp"`
	SGV       int            `json:"sgv"` // mg/dL
	Trend     TrendDirection `json:"trend"`
	Source    string         `json:"source"`
}

// ValueMmolL returns the glucose value in mmol/L
func (r Reading) ValueMmolL() float64 {
	return float64(r.SGV) / mmolConversionFactor
}

// ToMmol converts a mg/dL value to mmol/L
func ToMmol(mgdl float64) float64 {
	return mgdl / mmolConversionFactor
}
