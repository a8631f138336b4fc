// Package therapy implements pump-profile normalization, schedule resolution
// and insulin dosing arithmetic.
package therapy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight,
// in [0, 1440).
type TimeOfDay int

// ParseTimeOfDay parses an "HH:mm" string
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("time of day %q is not HH:mm", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time of day %q: bad hour: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time of day %q: bad minute: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayAt extracts the time-of-day component of an instant
func TimeOfDayAt(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String renders the time as "HH:mm"
func (d TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(d)/60, int(d)%60)
}

// ScheduleEntry is one segment boundary of a daily schedule: the entry's
// value is in force from Time until the next entry's time.
type ScheduleEntry struct {
	Time  TimeOfDay `json:"time"`
	Value float64   `json:"value"`
}

// Schedule is a cyclic, daily-repeating piecewise-constant function indexed
// by time of day. Entries are kept sorted ascending with unique times; the
// constructor establishes that form once so every consumer can rely on it.
type Schedule struct {
	entries []ScheduleEntry
}

// NewSchedule builds a canonical Schedule from entries in any order.
// Duplicate times are an error: upstream duplicates must be resolved by the
// caller before construction.
func NewSchedule(entries []ScheduleEntry) (Schedule, error) {
	sorted := make([]ScheduleEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time == sorted[i-1].Time {
			return Schedule{}, fmt.Errorf("duplicate schedule time %s", sorted[i].Time)
		}
	}
	return Schedule{entries: sorted}, nil
}

// Entries returns a copy of the canonical entry list
func (s Schedule) Entries() []ScheduleEntry {
	out := make([]ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries
func (s Schedule) Len() int {
	return len(s.entries)
}

// IsEmpty reports whether the schedule has no entries and is therefore
// unresolvable.
func (s Schedule) IsEmpty() bool {
	return len(s.entries) == 0
}

// Resolve returns the value in force at the given instant together with the
// entry that produced it. Only the time-of-day component of the instant is
// used. When the instant precedes the earliest entry the schedule wraps to
// the last entry: yesterday's final segment is still active.
func (s Schedule) Resolve(at time.Time) (float64, ScheduleEntry, error) {
	if len(s.entries) == 0 {
		return 0, ScheduleEntry{}, ErrEmptySchedule
	}

	tod := TimeOfDayAt(at)
	active := s.entries[len(s.entries)-1] // wraparound default
	for _, entry := range s.entries {
		if entry.Time > tod {
			break
		}
		active = entry
	}
	return active.Value, active, nil
}
