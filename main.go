// Command boostt1d runs the reading-synchronization daemon: it polls a
// Nightscout site, reconciles fetched glucose entries against the local
// store, and keeps the therapy profile available for dosing calculations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaronPrager/boostT1D-sub001/internal/config"
	"github.com/AaronPrager/boostT1D-sub001/internal/logger"
	"github.com/AaronPrager/boostT1D-sub001/internal/metrics"
	"github.com/AaronPrager/boostT1D-sub001/internal/nightscout"
	"github.com/AaronPrager/boostT1D-sub001/internal/store"
	"github.com/AaronPrager/boostT1D-sub001/internal/syncer"
	"github.com/AaronPrager/boostT1D-sub001/internal/therapy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "boostt1d: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New()
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening reading store: %w", err)
	}
	defer func() { _ = db.Close() }()

	client := nightscout.NewClient(cfg.Nightscout.URL, cfg.Nightscout.APISecret)
	probeUpstream(ctx, client, log)
	if profile := loadProfile(ctx, client, log); profile != nil {
		logLatestReading(ctx, db, profile, cfg.Sync.Account, log)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go serveMetrics(ctx, m, cfg.Metrics.Listen, log)
	}

	svc := syncer.NewService(client, db, log, m, cfg.Sync.Account, cfg.Sync.Lookback(), cfg.Sync.MaxEntries)

	log.WithComponent("main").WithFields(logger.Fields{
		"account":  cfg.Sync.Account,
		"interval": cfg.Sync.Interval().String(),
		"lookback": cfg.Sync.Lookback().String(),
		"store":    cfg.Store.Path,
	}).Info("starting sync daemon")

	svc.Run(ctx, cfg.Sync.Interval())

	log.WithComponent("main").Info("shutting down")
	return nil
}

// probeUpstream checks the upstream site once at startup so a misconfigured
// URL or secret is reported immediately instead of surfacing as failed sync
// runs. A failed probe never aborts the daemon.
func probeUpstream(ctx context.Context, client *nightscout.Client, log *logger.Log) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status, err := client.Status(probeCtx)
	entry := log.WithComponent("main")
	switch {
	case err == nil:
		entry.WithFields(logger.Fields{
			"name":    status.Name,
			"version": status.Version,
		}).Info("upstream reachable")
	case errors.Is(err, nightscout.ErrTimeout):
		entry.Warn("upstream status probe timed out; the site may be slow or asleep")
	case errors.Is(err, nightscout.ErrAuthentication):
		entry.Warn("upstream rejected credentials; check the raw API secret")
	default:
		entry.WithError(err).Warn("upstream status probe failed")
	}
}

// loadProfile fetches and normalizes the therapy profile once at startup so
// profile-shape problems are visible in the logs before the first dose is
// ever computed. Returns nil when no usable profile is available.
func loadProfile(ctx context.Context, client *nightscout.Client, log *logger.Log) *therapy.TherapyProfile {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	entry := log.WithComponent("main")
	doc, err := client.FetchProfile(fetchCtx)
	if err != nil {
		entry.WithError(err).Warn("therapy profile fetch failed; dosing unavailable until it succeeds")
		return nil
	}

	profile, stats, err := therapy.Normalize(doc)
	if err != nil {
		entry.WithError(err).Warn("therapy profile unusable")
		return nil
	}
	entry.WithFields(logger.Fields{
		"source":             stats.Source,
		"units":              profile.Units,
		"timezone":           profile.Timezone,
		"dropped_values":     stats.DroppedValues,
		"dropped_duplicates": stats.DroppedDuplicates,
	}).Info("therapy profile loaded")
	return profile
}

// logLatestReading reports the most recent stored reading banded against the
// loaded profile's targets. An empty store is not an error.
func logLatestReading(ctx context.Context, db *store.Store, profile *therapy.TherapyProfile, account string, log *logger.Log) {
	reading, err := db.LatestReading(ctx, account)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.WithComponent("main").WithError(err).Warn("reading latest stored value failed")
		}
		return
	}
	log.WithComponent("main").WithFields(logger.Fields{
		"sgv":    reading.SGV,
		"trend":  reading.Trend.Arrow(),
		"age":    time.Since(reading.Timestamp).Round(time.Second).String(),
		"status": profile.ClassifyGlucose(reading.SGV, reading.Timestamp),
	}).Info("latest stored reading")
}

func serveMetrics(ctx context.Context, m *metrics.Metrics, listen string, log *logger.Log) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithComponent("main").WithField("listen", listen).Info("metrics endpoint up")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithComponent("main").WithError(err).Error("metrics server failed")
	}
}
