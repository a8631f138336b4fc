package therapy

import (
	"math"
	"time"

	"github.com/AaronPrager/boostT1D-sub001/internal/models"
)

// DefaultLargeDoseThreshold is the advisory ceiling above which a computed
// total is flagged, in insulin units.
const DefaultLargeDoseThreshold = 10.0

// DosingRequest carries the user-supplied inputs of a dose calculation.
// A zero CarbsGrams means no carb bolus was requested; a zero CurrentGlucose
// means no correction was requested.
type DosingRequest struct {
	CarbsGrams     float64 `json:"carbsGrams"`
	CurrentGlucose float64 `json:"currentGlucose"` // mg/dL

	// Recent treatments, used only to report insulin on board. Optional.
	Treatments []models.Treatment `json:"treatments,omitempty"`
}

// DosingResult carries the computed dose plus the resolved schedule values
// that produced it, so callers can audit the arithmetic.
type DosingResult struct {
	CarbBolusUnits       float64 `json:"carbBolusUnits"`
	CorrectionBolusUnits float64 `json:"correctionBolusUnits"`
	TotalUnits           float64 `json:"totalUnits"`

	// RawCorrectionUnits is the unclamped correction, reported
	// informationally; it is negative when glucose is below target.
	RawCorrectionUnits float64 `json:"rawCorrectionUnits"`

	// Resolved schedule values in force at the calculation instant
	CarbRatio   float64 `json:"carbRatio,omitempty"`
	Sensitivity float64 `json:"sensitivity,omitempty"`
	TargetLow   float64 `json:"targetLow,omitempty"`
	TargetHigh  float64 `json:"targetHigh,omitempty"`

	// IOBUnits is still-active insulin from prior doses, diagnostic only;
	// it is not subtracted from TotalUnits.
	IOBUnits float64 `json:"iobUnits"`

	// IsLargeDose is set when TotalUnits exceeds the configured threshold.
	// Advisory, never blocking.
	IsLargeDose bool `json:"isLargeDose"`
}

// Calculator computes insulin doses from a therapy profile
type Calculator struct {
	largeDoseThreshold float64
	iobModel           IOBModel
}

// NewCalculator returns a Calculator with the default large-dose threshold
func NewCalculator() *Calculator {
	return &Calculator{
		largeDoseThreshold: DefaultLargeDoseThreshold,
		iobModel:           DefaultIOBModel(),
	}
}

// SetLargeDoseThreshold overrides the advisory large-dose threshold
func (c *Calculator) SetLargeDoseThreshold(units float64) {
	if units > 0 {
		c.largeDoseThreshold = units
	}
}

// ComputeDose resolves the carb-ratio, sensitivity and target schedules at
// the given instant and combines them with the request.
//
// Carb bolus: carbs / carbRatio. Requesting one without a usable carb-ratio
// schedule (missing, or resolving to a non-positive ratio) fails with
// ErrNoCarbRatio; the arithmetic never divides by zero.
//
// Correction bolus: (glucose - midpoint(targetLow, targetHigh)) / sensitivity,
// computed only when glucose, sensitivity and both targets are available.
// A negative correction is reported in RawCorrectionUnits but clamped to
// zero as a dose.
func (c *Calculator) ComputeDose(profile *TherapyProfile, req DosingRequest, now time.Time) (*DosingResult, error) {
	result := &DosingResult{}

	if req.CarbsGrams > 0 {
		ratio, _, err := profile.CarbRatio.Resolve(now)
		if err != nil || ratio <= 0 {
			return nil, ErrNoCarbRatio
		}
		result.CarbRatio = ratio
		result.CarbBolusUnits = req.CarbsGrams / ratio
	}

	if req.CurrentGlucose > 0 {
		sens, _, sensErr := profile.Sensitivity.Resolve(now)
		low, _, lowErr := profile.TargetLow.Resolve(now)
		high, _, highErr := profile.TargetHigh.Resolve(now)

		if sensErr == nil && lowErr == nil && highErr == nil && sens > 0 {
			result.Sensitivity = sens
			result.TargetLow = low
			result.TargetHigh = high

			midpoint := (low + high) / 2
			raw := (req.CurrentGlucose - midpoint) / sens
			result.RawCorrectionUnits = round1(raw)
			if req.CurrentGlucose >= low && req.CurrentGlucose <= high {
				raw = 0 // in range: no correction surfaced as a dose
			}
			if raw > 0 {
				result.CorrectionBolusUnits = raw
			}
		}
	}

	total := round1(result.CarbBolusUnits + result.CorrectionBolusUnits)
	if total < 0 {
		total = 0
	}
	result.TotalUnits = total
	result.CarbBolusUnits = round1(result.CarbBolusUnits)
	result.CorrectionBolusUnits = round1(result.CorrectionBolusUnits)
	result.IsLargeDose = total > c.largeDoseThreshold

	if len(req.Treatments) > 0 {
		model := c.iobModel
		if profile.DIAHours > 0 {
			model.DIAMinutes = profile.DIAHours * 60
		}
		result.IOBUnits = model.InsulinOnBoard(req.Treatments, now)
	}

	return result, nil
}

// round1 rounds to one decimal place, half away from zero
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
