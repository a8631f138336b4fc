// Package syncer reconciles fetched glucose entries against already
// persisted readings, producing the minimal set of new records to store.
package syncer

import (
	"github.com/AaronPrager/boostT1D-sub001/internal/models"
)

// Plausible sensor glucose bounds in mg/dL. Values outside are sensor noise
// or uploader bugs and are rejected per entry, never failing the batch.
const (
	MinPlausibleSGV = 20
	MaxPlausibleSGV = 600
)

// Rejection records one entry dropped by validation, with the reason kept
// for diagnostics.
type Rejection struct {
	Entry  models.Entry `json:"entry"`
	Reason string       `json:"reason"`
}

// Result is the typed partial outcome of a reconciliation: accepted readings
// to persist, rejected entries with reasons, and the count of duplicates
// skipped.
type Result struct {
	Accepted   []models.Reading `json:"accepted"`
	Rejected   []Rejection      `json:"rejected"`
	Duplicates int              `json:"duplicates"`
}

// Reconcile validates and deduplicates a fetched batch against the set of
// already persisted timestamps (millisecond precision).
//
// Identity is the exact timestamp: an entry is new iff its instant is absent
// from existing and has not appeared earlier in the batch. When the upstream
// feed delivers two entries with an identical timestamp and different
// values, the first by array order wins. This makes Reconcile idempotent:
// feeding its accepted output back into existing and running again yields an
// empty result.
//
// Reconcile is pure; persistence is the caller's concern and happens only
// after the full result is computed.
func Reconcile(fetched []models.Entry, existing map[int64]struct{}) Result {
	result := Result{}
	seen := make(map[int64]struct{}, len(fetched))

	for _, entry := range fetched {
		ts := entry.Time()
		if ts.IsZero() {
			result.Rejected = append(result.Rejected, Rejection{Entry: entry, Reason: "unparseable timestamp"})
			continue
		}
		if entry.SGV < MinPlausibleSGV || entry.SGV > MaxPlausibleSGV {
			result.Rejected = append(result.Rejected, Rejection{Entry: entry, Reason: "glucose value out of plausible range"})
			continue
		}

		key := ts.UnixMilli()
		if _, ok := existing[key]; ok {
			result.Duplicates++
			continue
		}
		if _, ok := seen[key]; ok {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		source := entry.Device
		if source == "" {
			source = "nightscout"
		}
		result.Accepted = append(result.Accepted, models.Reading{
			Timestamp: ts,
			SGV:       entry.SGV,
			Trend:     entry.TrendDirection(),
			Source:    source,
		})
	}

	return result
}
