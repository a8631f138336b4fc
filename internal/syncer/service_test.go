package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AaronPrager/boostT1D-sub001/internal/logger"
	"github.com/AaronPrager/boostT1D-sub001/internal/models"
	"github.com/AaronPrager/boostT1D-sub001/internal/nightscout"
)

type fakeFeed struct {
	entries []models.Entry
	err     error
	windows []nightscout.Window
}

func (f *fakeFeed) FetchEntries(_ context.Context, window nightscout.Window) ([]models.Entry, error) {
	f.windows = append(f.windows, window)
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

// memStore mimics the persistence contract in memory: readings keyed by
// timestamp, duplicate inserts ignored.
type memStore struct {
	readings map[int64]models.Reading
	inserts  int
}

func newMemStore() *memStore {
	return &memStore{readings: make(map[int64]models.Reading)}
}

func (s *memStore) ExistingTimestamps(_ context.Context, _ string, from, to time.Time) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	for ts := range s.readings {
		out[ts] = struct{}{}
	}
	return out, nil
}

func (s *memStore) InsertReadings(_ context.Context, _ string, readings []models.Reading) (int, error) {
	inserted := 0
	for _, r := range readings {
		key := r.Timestamp.UnixMilli()
		if _, ok := s.readings[key]; ok {
			continue
		}
		s.readings[key] = r
		inserted++
	}
	s.inserts++
	return inserted, nil
}

func testService(feed Feed, store ReadingStore) *Service {
	return NewService(feed, store, logger.New(), nil, "primary", time.Hour, 100)
}

func TestSyncOnce_InsertsNewReadings(t *testing.T) {
	now := time.Now().UnixMilli()
	feed := &fakeFeed{entries: []models.Entry{
		{Date: now - 600_000, SGV: 110, Direction: "Flat"},
		{Date: now - 300_000, SGV: 117, Direction: "FortyFiveUp"},
	}}
	store := newMemStore()

	report, err := testService(feed, store).SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}

	if report.Fetched != 2 {
		t.Errorf("Fetched = %d, want 2", report.Fetched)
	}
	if report.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", report.Inserted)
	}
	if report.RunID == "" {
		t.Error("report carries no run ID")
	}
	if len(store.readings) != 2 {
		t.Errorf("store holds %d readings, want 2", len(store.readings))
	}
}

func TestSyncOnce_SecondRunInsertsNothing(t *testing.T) {
	now := time.Now().UnixMilli()
	feed := &fakeFeed{entries: []models.Entry{
		{Date: now - 600_000, SGV: 110, Direction: "Flat"},
		{Date: now - 300_000, SGV: 117, Direction: "Flat"},
	}}
	store := newMemStore()
	svc := testService(feed, store)

	if _, err := svc.SyncOnce(context.Background()); err != nil {
		t.Fatalf("first SyncOnce() error = %v", err)
	}
	report, err := svc.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("second SyncOnce() error = %v", err)
	}

	if report.Inserted != 0 {
		t.Errorf("second run Inserted = %d, want 0", report.Inserted)
	}
	if report.Duplicates != 2 {
		t.Errorf("second run Duplicates = %d, want 2", report.Duplicates)
	}
	if store.inserts != 1 {
		t.Errorf("store received %d insert batches, want 1 (no empty batch on second run)", store.inserts)
	}
}

func TestSyncOnce_RejectionsDoNotFailRun(t *testing.T) {
	now := time.Now().UnixMilli()
	feed := &fakeFeed{entries: []models.Entry{
		{Date: now - 600_000, SGV: 110, Direction: "Flat"},
		{Date: now - 300_000, SGV: 1500}, // implausible
	}}
	store := newMemStore()

	report, err := testService(feed, store).SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if report.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", report.Inserted)
	}
	if report.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", report.Rejected)
	}
}

func TestSyncOnce_FetchErrorSurfaces(t *testing.T) {
	feed := &fakeFeed{err: nightscout.ErrTimeout}
	store := newMemStore()

	_, err := testService(feed, store).SyncOnce(context.Background())
	if !errors.Is(err, nightscout.ErrTimeout) {
		t.Fatalf("SyncOnce() error = %v, want wrapped ErrTimeout", err)
	}
	if store.inserts != 0 {
		t.Errorf("store received %d insert batches after fetch failure, want 0", store.inserts)
	}
}

func TestSyncOnce_WindowCoversLookback(t *testing.T) {
	feed := &fakeFeed{}
	svc := NewService(feed, newMemStore(), logger.New(), nil, "primary", 2*time.Hour, 50)

	if _, err := svc.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if len(feed.windows) != 1 {
		t.Fatalf("feed saw %d fetches, want 1", len(feed.windows))
	}
	w := feed.windows[0]
	if w.Count != 50 {
		t.Errorf("window count = %d, want 50", w.Count)
	}
	span := w.To.Sub(w.From)
	if span < 2*time.Hour-time.Second || span > 2*time.Hour+time.Second {
		t.Errorf("window span = %v, want ~2h", span)
	}
}

func TestUserFacingMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", nightscout.ErrTimeout, "sync failed: upstream timed out; readings may exist but could not be fetched"},
		{"auth", nightscout.ErrAuthentication, "sync failed: upstream rejected credentials; check the raw API secret (the hash is derived automatically)"},
		{"unavailable", nightscout.ErrUpstreamUnavailable, "sync failed: upstream unreachable"},
		{"malformed", nightscout.ErrMalformedResponse, "sync failed: upstream sent an unexpected response shape"},
		{"other", errors.New("boom"), "sync failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := tt.err
			if tt.name != "other" {
				wrapped = errors.Join(errors.New("fetching entries"), tt.err)
			}
			if got := userFacingMessage(wrapped); got != tt.want {
				t.Errorf("userFacingMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
