package therapy

import "time"

// GlucoseStatus is the band a glucose value falls into relative to the
// therapy targets.
type GlucoseStatus string

const (
	StatusUrgentLow  GlucoseStatus = "urgent_low"
	StatusLow        GlucoseStatus = "low"
	StatusNormal     GlucoseStatus = "normal"
	StatusHigh       GlucoseStatus = "high"
	StatusUrgentHigh GlucoseStatus = "urgent_high"
)

// Urgent bands are fixed clinical thresholds in mg/dL, not part of the
// therapy profile.
const (
	UrgentLowMgdl  = 55
	UrgentHighMgdl = 250
)

// Fallbacks when the profile carries no target schedules.
const (
	defaultTargetLow  = 70.0
	defaultTargetHigh = 180.0
)

// ClassifyGlucose bands a mg/dL value against the profile's target
// schedules resolved at the given instant. Low and high are inclusive at
// the target boundaries; urgent bands take precedence.
func (p *TherapyProfile) ClassifyGlucose(mgdl int, at time.Time) GlucoseStatus {
	low := defaultTargetLow
	if v, _, err := p.TargetLow.Resolve(at); err == nil {
		low = v
	}
	high := defaultTargetHigh
	if v, _, err := p.TargetHigh.Resolve(at); err == nil {
		high = v
	}

	switch {
	case mgdl <= UrgentLowMgdl:
		return StatusUrgentLow
	case float64(mgdl) <= low:
		return StatusLow
	case mgdl >= UrgentHighMgdl:
		return StatusUrgentHigh
	case float64(mgdl) >= high:
		return StatusHigh
	default:
		return StatusNormal
	}
}
