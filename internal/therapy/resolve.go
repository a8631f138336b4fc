package therapy

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleByName returns the named sub-schedule of a profile. Both the
// canonical names and the upstream field names are accepted.
func (p *TherapyProfile) ScheduleByName(name string) (Schedule, error) {
	switch strings.ToLower(name) {
	case "basal":
		return p.Basal, nil
	case "carbratio":
		return p.CarbRatio, nil
	case "sensitivity", "sens":
		return p.Sensitivity, nil
	case "targetlow", "target_low":
		return p.TargetLow, nil
	case "targethigh", "target_high":
		return p.TargetHigh, nil
	default:
		return Schedule{}, fmt.Errorf("unknown schedule %q", name)
	}
}

// ResolveSchedule resolves the named sub-schedule of a profile at an instant
func ResolveSchedule(p *TherapyProfile, name string, at time.Time) (float64, ScheduleEntry, error) {
	schedule, err := p.ScheduleByName(name)
	if err != nil {
		return 0, ScheduleEntry{}, err
	}
	return schedule.Resolve(at)
}
