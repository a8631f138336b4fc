package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AaronPrager/boostT1D-sub001/internal/logger"
	"github.com/AaronPrager/boostT1D-sub001/internal/metrics"
	"github.com/AaronPrager/boostT1D-sub001/internal/models"
	"github.com/AaronPrager/boostT1D-sub001/internal/nightscout"
)

// Feed is the slice of the upstream client a sync run needs
type Feed interface {
	FetchEntries(ctx context.Context, window nightscout.Window) ([]models.Entry, error)
}

// ReadingStore is the persistence collaborator. It must enforce uniqueness
// on (account, timestamp) and treat a duplicate insert as a benign no-op:
// that constraint is the backstop against concurrent runs racing on the
// same upstream window.
type ReadingStore interface {
	ExistingTimestamps(ctx context.Context, account string, from, to time.Time) (map[int64]struct{}, error)
	InsertReadings(ctx context.Context, account string, readings []models.Reading) (int, error)
}

// Report describes one completed sync run
type Report struct {
	RunID      string        `json:"runId"`
	Account    string        `json:"account"`
	Fetched    int           `json:"fetched"`
	New        int           `json:"new"`
	Inserted   int           `json:"inserted"`
	Rejected   int           `json:"rejected"`
	Duplicates int           `json:"duplicates"`
	Duration   time.Duration `json:"duration"`
}

// Service runs reading synchronization for one account. The caller must not
// start two runs for the same account concurrently; the store's uniqueness
// constraint backstops that discipline but does not replace it.
type Service struct {
	feed    Feed
	store   ReadingStore
	log     *logger.Log
	metrics *metrics.Metrics

	account    string
	lookback   time.Duration
	maxEntries int
}

// NewService wires a sync service. metrics may be nil when scraping is
// disabled.
func NewService(feed Feed, store ReadingStore, log *logger.Log, m *metrics.Metrics, account string, lookback time.Duration, maxEntries int) *Service {
	return &Service{
		feed:       feed,
		store:      store,
		log:        log,
		metrics:    m,
		account:    account,
		lookback:   lookback,
		maxEntries: maxEntries,
	}
}

// SyncOnce performs a single fetch-reconcile-persist pass. The full
// reconciliation result is computed before any persistence, and persistence
// is one batch insert: a run cancelled mid-flight leaves no partial writes.
func (s *Service) SyncOnce(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{
		RunID:   uuid.NewString(),
		Account: s.account,
	}
	log := s.log.WithComponent("syncer").WithField("run_id", report.RunID)

	to := time.Now()
	from := to.Add(-s.lookback)

	entries, err := s.feed.FetchEntries(ctx, nightscout.Window{From: from, To: to, Count: s.maxEntries})
	if err != nil {
		s.countFetchFailure(err)
		return nil, fmt.Errorf("fetching entries: %w", err)
	}
	report.Fetched = len(entries)

	existing, err := s.store.ExistingTimestamps(ctx, s.account, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading persisted timestamps: %w", err)
	}

	result := Reconcile(entries, existing)
	report.New = len(result.Accepted)
	report.Rejected = len(result.Rejected)
	report.Duplicates = result.Duplicates

	for _, rej := range result.Rejected {
		log.WithFields(logger.Fields{
			"reason": rej.Reason,
			"sgv":    rej.Entry.SGV,
			"date":   rej.Entry.Date,
		}).Debug("entry rejected")
	}

	if len(result.Accepted) > 0 {
		inserted, err := s.store.InsertReadings(ctx, s.account, result.Accepted)
		if err != nil {
			return nil, fmt.Errorf("persisting readings: %w", err)
		}
		report.Inserted = inserted
	}

	report.Duration = time.Since(started)
	s.recordRun(report)

	log.WithFields(logger.Fields{
		"fetched":     report.Fetched,
		"new":         report.New,
		"inserted":    report.Inserted,
		"rejected":    report.Rejected,
		"duplicates":  report.Duplicates,
		"duration_ms": report.Duration.Milliseconds(),
	}).Info("sync run complete")

	return report, nil
}

// Run executes sync passes on the given interval until the context is
// cancelled. The first pass runs immediately. Failed runs are logged and
// counted; the loop keeps going.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	log := s.log.WithComponent("syncer")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		if _, err := s.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveFailures++
			log.WithError(err).WithField("consecutive_failures", consecutiveFailures).Error(userFacingMessage(err))
		} else {
			consecutiveFailures = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// userFacingMessage maps the transport taxonomy onto the messages rendered
// for users; a timeout must never read as "no data".
func userFacingMessage(err error) string {
	switch {
	case errors.Is(err, nightscout.ErrAuthentication):
		return "sync failed: upstream rejected credentials; check the raw API secret (the hash is derived automatically)"
	case errors.Is(err, nightscout.ErrTimeout):
		return "sync failed: upstream timed out; readings may exist but could not be fetched"
	case errors.Is(err, nightscout.ErrUpstreamUnavailable):
		return "sync failed: upstream unreachable"
	case errors.Is(err, nightscout.ErrMalformedResponse):
		return "sync failed: upstream sent an unexpected response shape"
	default:
		return "sync failed"
	}
}

func (s *Service) countFetchFailure(err error) {
	if s.metrics == nil {
		return
	}
	kind := "http"
	switch {
	case errors.Is(err, nightscout.ErrTimeout):
		kind = "timeout"
	case errors.Is(err, nightscout.ErrAuthentication):
		kind = "authentication"
	case errors.Is(err, nightscout.ErrUpstreamUnavailable):
		kind = "unavailable"
	case errors.Is(err, nightscout.ErrMalformedResponse):
		kind = "malformed"
	}
	s.metrics.FetchFailures.WithLabelValues(kind).Inc()
}

func (s *Service) recordRun(report *Report) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReadingsFetched.Add(float64(report.Fetched))
	s.metrics.ReadingsInserted.Add(float64(report.Inserted))
	s.metrics.ReadingsRejected.Add(float64(report.Rejected))
	s.metrics.SyncDuration.Observe(report.Duration.Seconds())
}
