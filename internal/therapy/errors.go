package therapy

import "errors"

// Domain errors. All are recoverable by user action and are surfaced to the
// caller as-is so it can render an actionable message.
var (
	// ErrEmptySchedule is returned when resolving a schedule with no entries.
	ErrEmptySchedule = errors.New("schedule has no entries")

	// ErrNoUsableProfile is returned when no candidate path of an upstream
	// profile document carries a non-empty basal schedule. Callers should
	// tell the user to configure their pump profile upstream.
	ErrNoUsableProfile = errors.New("no usable profile: no candidate carries a basal schedule")

	// ErrNoCarbRatio is returned when a carb bolus is requested but the
	// profile has no usable carb-ratio schedule.
	ErrNoCarbRatio = errors.New("no carb ratio configured")
)
