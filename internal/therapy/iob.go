package therapy

import (
	"math"
	"time"

	"github.com/AaronPrager/boostT1D-sub001/internal/models"
)

// IOBModel estimates insulin on board from prior boluses using an
// exponential activity curve.
type IOBModel struct {
	PeakMinutes float64 // time of peak activity
	DIAMinutes  float64 // duration of insulin action
}

// DefaultIOBModel returns the rapid-acting insulin defaults: peak activity
// at 75 minutes, 5 hour duration of action.
func DefaultIOBModel() IOBModel {
	return IOBModel{
		PeakMinutes: 75,
		DIAMinutes:  300,
	}
}

// IOBModelForProfile derives the model from a profile's insulin action
// duration, falling back to the defaults when the profile carries none.
func IOBModelForProfile(profile *TherapyProfile) IOBModel {
	m := DefaultIOBModel()
	if profile != nil && profile.DIAHours > 0 {
		m.DIAMinutes = profile.DIAHours * 60
	}
	return m
}

// activityRemaining returns the fraction of a bolus still active after the
// given minutes, using the exponential curve Activity(t) = (t/τ²)·exp(-t/τ)
// integrated to remaining insulin.
func (m IOBModel) activityRemaining(minutesSince float64) float64 {
	if minutesSince <= 0 {
		return 1.0
	}
	if minutesSince >= m.DIAMinutes {
		return 0.0
	}

	peak := m.PeakMinutes
	dia := m.DIAMinutes

	tau := peak * (1 - peak/dia)
	if tau <= 0 {
		tau = peak * 0.75
	}

	a := 2 * tau / dia
	s := 1 / (1 - a + (1+a)*math.Exp(-dia/tau))

	remaining := 1 - s*(1-(1+minutesSince/tau)*math.Exp(-minutesSince/tau))
	return math.Max(0, math.Min(1, remaining))
}

// InsulinOnBoard sums still-active insulin across the given treatments at
// the given instant, rounded to two decimals.
func (m IOBModel) InsulinOnBoard(treatments []models.Treatment, now time.Time) float64 {
	var iob float64

	for i := range treatments {
		t := &treatments[i]
		if !t.HasInsulin() {
			continue
		}

		minutesSince := now.Sub(t.Time()).Minutes()
		if minutesSince < 0 || minutesSince > m.DIAMinutes {
			continue
		}

		iob += t.Insulin * m.activityRemaining(minutesSince)
	}

	return math.Round(iob*100) / 100
}
