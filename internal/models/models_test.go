package models

import (
	"testing"
	"time"
)

func TestParseTrend(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		trend     int
		expected  TrendDirection
	}{
		{"Flat direction", "Flat", 0, TrendFlat},
		{"DoubleUp direction", "DoubleUp", 0, TrendDoubleUp},
		{"direction wins over code", "SingleDown", 1, TrendSingleDown},
		{"numeric code 1", "", 1, TrendDoubleUp},
		{"numeric code 4", "", 4, TrendFlat},
		{"numeric code 7", "", 7, TrendDoubleDown},
		{"unknown direction falls back to code", "Sideways", 4, TrendFlat},
		{"nothing usable", "", 0, TrendNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseTrend(tt.direction, tt.trend)
			if result != tt.expected {
				t.Errorf("ParseTrend(%q, %d) = %q, want %q", tt.direction, tt.trend, result, tt.expected)
			}
		})
	}
}

func TestTrendDirection_Arrow(t *testing.T) {
	if arrow := TrendFlat.Arrow(); arrow != "→" {
		t.Errorf("Arrow() = %q, want →", arrow)
	}
	if arrow := TrendNone.Arrow(); arrow != "-" {
		t.Errorf("Arrow() for NONE = %q, want -", arrow)
	}
}

func TestReading_ValueMmolL(t *testing.T) {
	tests := []struct {
		name     string
		sgv      int
		expected float64
	}{
		{"100 mg/dL", 100, 5.55},
		{"180 mg/dL", 180, 9.99},
		{"70 mg/dL", 70, 3.89},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reading{SGV: tt.sgv}
			result := r.ValueMmolL()
			if result < tt.expected-0.1 || result > tt.expected+0.1 {
				t.Errorf("ValueMmolL() = %f, want approximately %f", result, tt.expected)
			}
		})
	}
}

func TestEntry_Time(t *testing.T) {
	ms := int64(1700000000000)
	entry := &Entry{Date: ms}
	if got := entry.Time(); got.UnixMilli() != ms {
		t.Errorf("Time() = %v, want UnixMilli %d", got, ms)
	}
}

func TestEntry_Time_DateStringFallback(t *testing.T) {
	entry := &Entry{DateStr: "2024-03-01T08:30:00Z"}
	want := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	if got := entry.Time(); !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}

func TestEntry_Time_Unparseable(t *testing.T) {
	entry := &Entry{DateStr: "not-a-date"}
	if got := entry.Time(); !got.IsZero() {
		t.Errorf("Time() = %v, want zero time", got)
	}
}

func TestTreatment_Time_CreatedAtFallback(t *testing.T) {
	tr := &Treatment{CreatedAt: "2024-03-01T12:00:00Z"}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := tr.Time(); !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}

func TestTreatment_Flags(t *testing.T) {
	tr := &Treatment{Insulin: 2.5}
	if !tr.HasInsulin() || tr.HasCarbs() {
		t.Errorf("HasInsulin() = %v, HasCarbs() = %v, want true, false", tr.HasInsulin(), tr.HasCarbs())
	}
}
