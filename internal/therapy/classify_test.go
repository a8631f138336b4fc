package therapy

import (
	"testing"
	"time"
)

func TestClassifyGlucose(t *testing.T) {
	profile := &TherapyProfile{
		TargetLow:  mustSchedule(t, []ScheduleEntry{{Time: 0, Value: 70}}),
		TargetHigh: mustSchedule(t, []ScheduleEntry{{Time: 0, Value: 180}}),
	}
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		mgdl int
		want GlucoseStatus
	}{
		{"urgent low", 50, StatusUrgentLow},
		{"urgent low boundary", 55, StatusUrgentLow},
		{"low", 60, StatusLow},
		{"low boundary", 70, StatusLow},
		{"normal", 120, StatusNormal},
		{"high boundary", 180, StatusHigh},
		{"high", 200, StatusHigh},
		{"urgent high boundary", 250, StatusUrgentHigh},
		{"urgent high", 260, StatusUrgentHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profile.ClassifyGlucose(tt.mgdl, noon); got != tt.want {
				t.Errorf("ClassifyGlucose(%d) = %q, want %q", tt.mgdl, got, tt.want)
			}
		})
	}
}

func TestClassifyGlucose_ScheduledTargets(t *testing.T) {
	// Overnight targets are looser; 150 is normal at 02:00 but high at noon.
	profile := &TherapyProfile{
		TargetLow: mustSchedule(t, []ScheduleEntry{{Time: 0, Value: 70}}),
		TargetHigh: mustSchedule(t, []ScheduleEntry{
			{Time: 0, Value: 160},
			{Time: mustTime(t, "08:00"), Value: 140},
		}),
	}

	night := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := profile.ClassifyGlucose(150, night); got != StatusNormal {
		t.Errorf("ClassifyGlucose(150) at night = %q, want normal", got)
	}
	if got := profile.ClassifyGlucose(150, noon); got != StatusHigh {
		t.Errorf("ClassifyGlucose(150) at noon = %q, want high", got)
	}
}

func TestClassifyGlucose_EmptyTargetsFallBack(t *testing.T) {
	profile := &TherapyProfile{}
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := profile.ClassifyGlucose(120, noon); got != StatusNormal {
		t.Errorf("ClassifyGlucose(120) = %q, want normal with defaults", got)
	}
	if got := profile.ClassifyGlucose(65, noon); got != StatusLow {
		t.Errorf("ClassifyGlucose(65) = %q, want low with defaults", got)
	}
}
