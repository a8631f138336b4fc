package therapy

import (
	"encoding/json"
	"strconv"
)

// Defaults applied when an upstream profile omits its scalar fields
const (
	DefaultTimezone = "UTC"
	DefaultUnits    = "mg/dl"
)

// TherapyProfile is the canonical, fully typed form of an upstream pump
// profile. It is built once by Normalize; all downstream code operates only
// on this form.
type TherapyProfile struct {
	Basal       Schedule `json:"basal"`
	CarbRatio   Schedule `json:"carbRatio"`
	Sensitivity Schedule `json:"sensitivity"`
	TargetLow   Schedule `json:"targetLow"`
	TargetHigh  Schedule `json:"targetHigh"`

	DIAHours float64 `json:"insulinActionDurationHours"`
	Timezone string  `json:"timezone"`
	Units    string  `json:"glucoseUnit"` // "mg/dl" or "mmol/l"
}

// NormalizeStats reports what Normalize dropped while parsing, for
// diagnostics. Drops are never fatal to the profile.
type NormalizeStats struct {
	Source            string // candidate path the profile was taken from
	DroppedValues     int    // entries with a non-numeric value
	DroppedDuplicates int    // entries sharing a time of day (first wins)
}

// flexValue accepts a JSON number or a numeric string. Anything else marks
// the value invalid instead of failing the decode; upstream uploaders mix
// both encodings freely.
type flexValue struct {
	num   float64
	valid bool
}

func (v *flexValue) UnmarshalJSON(data []byte) error {
	v.valid = false
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		v.num = n
		v.valid = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			v.num = n
			v.valid = true
		}
	}
	return nil
}

type rawScheduleEntry struct {
	Time  string    `json:"time"`
	Value flexValue `json:"value"`
}

// rawProfile is the upstream shape of one profile candidate
type rawProfile struct {
	Basal      []rawScheduleEntry `json:"basal"`
	CarbRatio  []rawScheduleEntry `json:"carbratio"`
	Sens       []rawScheduleEntry `json:"sens"`
	TargetLow  []rawScheduleEntry `json:"target_low"`
	TargetHigh []rawScheduleEntry `json:"target_high"`
	DIA        flexValue          `json:"dia"`
	Timezone   string             `json:"timezone"`
	Units      string             `json:"units"`
}

// rawDocument covers the known places a profile candidate may live
type rawDocument struct {
	Store          map[string]json.RawMessage `json:"store"`
	DefaultProfile json.RawMessage            `json:"defaultProfile"`
}

// Normalize converts an upstream profile document into a TherapyProfile.
//
// The schedule data may live at one of several paths depending on which
// uploader produced the document; candidates are probed in a fixed
// precedence order and the first one carrying a non-empty basal schedule
// wins. Individual malformed schedule entries are dropped and counted, never
// fatal. Returns ErrNoUsableProfile when no candidate qualifies.
func Normalize(doc []byte) (*TherapyProfile, NormalizeStats, error) {
	var stats NormalizeStats
	if len(doc) == 0 {
		return nil, stats, ErrNoUsableProfile
	}

	var outer rawDocument
	// A document that is not even a JSON object cannot carry a profile.
	if err := json.Unmarshal(doc, &outer); err != nil {
		return nil, stats, ErrNoUsableProfile
	}

	candidates := []struct {
		source string
		data   json.RawMessage
	}{
		{"store.Default", outer.Store["Default"]},
		{"store.default", outer.Store["default"]},
		{"defaultProfile", outer.DefaultProfile},
		{"root", doc},
	}

	for _, c := range candidates {
		if len(c.data) == 0 {
			continue
		}
		var raw rawProfile
		if err := json.Unmarshal(c.data, &raw); err != nil {
			continue
		}
		if len(raw.Basal) == 0 {
			continue
		}
		profile, schedStats := buildProfile(raw)
		schedStats.Source = c.source
		return profile, schedStats, nil
	}

	return nil, stats, ErrNoUsableProfile
}

func buildProfile(raw rawProfile) (*TherapyProfile, NormalizeStats) {
	var stats NormalizeStats

	profile := &TherapyProfile{
		Timezone: raw.Timezone,
		Units:    raw.Units,
	}
	if raw.DIA.valid {
		profile.DIAHours = raw.DIA.num
	}
	if profile.Timezone == "" {
		profile.Timezone = DefaultTimezone
	}
	if profile.Units == "" {
		profile.Units = DefaultUnits
	}

	profile.Basal = normalizeSchedule(raw.Basal, &stats)
	profile.CarbRatio = normalizeSchedule(raw.CarbRatio, &stats)
	profile.Sensitivity = normalizeSchedule(raw.Sens, &stats)
	profile.TargetLow = normalizeSchedule(raw.TargetLow, &stats)
	profile.TargetHigh = normalizeSchedule(raw.TargetHigh, &stats)

	return profile, stats
}

// normalizeSchedule maps raw entries to a canonical Schedule. Entries with a
// non-numeric value are dropped; a missing or malformed time defaults to
// "00:00". When two entries share a time of day the first by array order
// wins. Sorting happens in the Schedule constructor: upstream sources do not
// guarantee order.
func normalizeSchedule(raw []rawScheduleEntry, stats *NormalizeStats) Schedule {
	entries := make([]ScheduleEntry, 0, len(raw))
	seen := make(map[TimeOfDay]bool, len(raw))

	for _, r := range raw {
		if !r.Value.valid {
			stats.DroppedValues++
			continue
		}
		tod, err := ParseTimeOfDay(r.Time)
		if err != nil {
			tod = 0
		}
		if seen[tod] {
			stats.DroppedDuplicates++
			continue
		}
		seen[tod] = true
		entries = append(entries, ScheduleEntry{Time: tod, Value: r.Value.num})
	}

	// Uniqueness is established above, so construction cannot fail.
	schedule, _ := NewSchedule(entries)
	return schedule
}
