package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dtek-shutdowns-monitor/internal/config"
	"dtek-shutdowns-monitor/internal/extractor"
	"dtek-shutdowns-monitor/internal/metrics"
	"dtek-shutdowns-monitor/internal/models"
	"dtek-shutdowns-monitor/internal/notifier"
	"dtek-shutdowns-monitor/internal/query"
	"dtek-shutdowns-monitor/internal/scraper"
	"dtek-shutdowns-monitor/internal/storage"
	"dtek-shutdowns-monitor/internal/trigger"
)

// Status tells a caller how good the snapshot behind an answer is.
type Status string

const (
	StatusFresh  Status = "fresh"  // extracted during this call
	StatusCached Status = "cached" // within TTL
	StatusStale  Status = "stale"  // past TTL, upstream unavailable
	StatusEmpty  Status = "empty"  // no data at all
)

// CheckResult is a cache snapshot plus the degradation flags the pipeline
// boundary promises: callers always get the best available data and an
// explicit status instead of a crash.
type CheckResult struct {
	Cache   *models.ScheduleCache
	Status  Status
	Warning string
}

// App owns the single-writer pipeline for one address: render, extract,
// store, diff, trigger, deliver. Reads go through an immutable snapshot that
// is swapped atomically after each successful extraction.
type App struct {
	cfg      config.Config
	renderer scraper.Renderer
	store    *storage.Store
	settings *storage.SettingsStore
	sink     notifier.Notifier
	trig     *trigger.Trigger
	loc      *time.Location
	logger   zerolog.Logger

	// writeMu serializes extractions; force-refresh requests collapse into
	// whoever holds it instead of spawning parallel renders.
	writeMu sync.Mutex

	snapMu      sync.RWMutex
	snapshot    *models.ScheduleCache
	snapLoaded  bool
	lastWarning string
}

func New(cfg config.Config, renderer scraper.Renderer, store *storage.Store, settings *storage.SettingsStore, sink notifier.Notifier, loc *time.Location, logger zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		renderer: renderer,
		store:    store,
		settings: settings,
		sink:     sink,
		trig:     trigger.New(loc),
		loc:      loc,
		logger:   logger,
	}
}

// Run is the daemon loop: an immediate tick, then one tick per check
// interval. The interval is re-read from the settings store every round so a
// concurrent configure call takes effect without a restart.
func (a *App) Run(ctx context.Context) {
	for {
		if err := a.Tick(ctx, time.Now().In(a.loc)); err != nil {
			a.logger.Error().Err(err).Msg("tick failed")
		}

		settings, err := a.settings.Load()
		if err != nil {
			a.logger.Warn().Err(err).Msg("could not load settings, using defaults")
		}

		select {
		case <-ctx.Done():
			a.logger.Info().Msg("poller shutting down")
			return
		case <-time.After(settings.CheckInterval()):
		}
	}
}

// Tick performs one poll: refresh the cache, diff against the previous
// snapshot, evaluate the trigger and deliver whatever it emits. Every error
// class degrades to the cached snapshot; none of them stops the poller.
func (a *App) Tick(ctx context.Context, now time.Time) error {
	metrics.ChecksTotal.Inc()

	settings, err := a.settings.Load()
	if err != nil {
		a.logger.Warn().Err(err).Msg("could not load settings, using defaults")
	}

	previous := a.currentSnapshot()

	current, refreshErr := a.refresh(ctx, now, false)
	if refreshErr != nil {
		metrics.CheckErrorsTotal.WithLabelValues(errorReason(refreshErr)).Inc()
		a.logger.Warn().Err(refreshErr).Msg("refresh failed, keeping cached snapshot")
		current = previous
	}

	events := a.trig.Evaluate(current, previous, settings, now)
	for _, ev := range events {
		metrics.NotificationsTotal.WithLabelValues(string(ev.Kind)).Inc()
		if err := a.sink.Send(ctx, ev); err != nil {
			a.logger.Error().Err(err).Str("kind", string(ev.Kind)).Msg("notification delivery failed")
		} else {
			a.logger.Info().Str("kind", string(ev.Kind)).Str("date", ev.Date).
				Int("start_hour", ev.StartHour).Msg("notification emitted")
		}
	}

	if refreshErr != nil {
		return fmt.Errorf("refresh: %w", refreshErr)
	}
	return nil
}

// CheckSchedule is the on-demand query path. Without force it serves a fresh
// enough cache; with force, or when the cache is stale or absent, it runs an
// extraction through the same single-writer path as the poller.
func (a *App) CheckSchedule(ctx context.Context, now time.Time, force bool) CheckResult {
	cache := a.currentSnapshot()
	if !force && cache != nil && !storage.IsStale(cache, now, storage.DefaultTTL) {
		return CheckResult{Cache: cache, Status: StatusCached, Warning: a.warning()}
	}

	refreshed, err := a.refresh(ctx, now, force)
	if err == nil {
		return CheckResult{Cache: refreshed, Status: StatusFresh}
	}

	if cache == nil {
		return CheckResult{Status: StatusEmpty, Warning: err.Error()}
	}
	status := StatusCached
	if storage.IsStale(cache, now, storage.DefaultTTL) {
		status = StatusStale
	}
	return CheckResult{Cache: cache, Status: status, Warning: err.Error()}
}

// NextOutage answers from the current snapshot only; it never blocks on an
// in-flight extraction.
func (a *App) NextOutage(now time.Time) (models.OutageInterval, bool) {
	return query.NextOutage(a.currentSnapshot(), now, a.loc)
}

// OutagesOn lists the snapshot's outages for one day label.
func (a *App) OutagesOn(dayOfWeek string, kind models.ScheduleKind) []models.OutageInterval {
	return query.OutagesOn(a.currentSnapshot(), dayOfWeek, kind)
}

// ConfigureMonitoring persists new monitoring settings.
func (a *App) ConfigureMonitoring(cfg models.MonitoringConfig) error {
	return a.settings.Save(cfg)
}

// refresh renders the page, extracts both tables and atomically replaces the
// cache. The write mutex guarantees at most one in-flight extraction; a
// caller that queued behind another refresh reuses its result instead of
// rendering again. An explicit sequential force always renders.
func (a *App) refresh(ctx context.Context, now time.Time, force bool) (*models.ScheduleCache, error) {
	queued := !a.writeMu.TryLock()
	if queued {
		a.writeMu.Lock()
	}
	defer a.writeMu.Unlock()

	if cache := a.currentSnapshot(); cache != nil && cache.LastUpdated.After(now.Add(-time.Minute)) {
		if queued || !force {
			return cache, nil
		}
	}

	rctx, cancel := context.WithTimeout(ctx, a.cfg.RenderTimeout)
	defer cancel()

	address := a.cfg.Address()
	markup, err := a.renderer.Render(rctx, address)
	if err != nil {
		a.setWarning(err.Error())
		return nil, err
	}

	// Both tables are extracted before anything is written: a malformed
	// table anywhere on the page aborts the whole extraction and leaves the
	// prior cache untouched, on disk and in memory.
	actual, err := extractor.ExtractActual(markup, now)
	if err != nil {
		a.setWarning(err.Error())
		return nil, err
	}
	possible, err := extractor.ExtractPossible(markup, now)
	if err != nil {
		a.setWarning(err.Error())
		return nil, err
	}

	cache := models.ScheduleCache{
		ActualSchedules:   actual,
		PossibleSchedules: possible,
		LastUpdated:       now,
	}
	if err := a.store.Save(address, cache); err != nil {
		return nil, fmt.Errorf("store cache: %w", err)
	}

	a.snapMu.Lock()
	a.snapshot = &cache
	a.snapLoaded = true
	a.lastWarning = ""
	a.snapMu.Unlock()

	a.logger.Info().Int("actual", len(cache.ActualSchedules)).
		Int("possible", len(cache.PossibleSchedules)).Msg("schedule cache replaced")
	return &cache, nil
}

// currentSnapshot returns the read-only view, loading it from disk on first
// access. A corrupt cache file counts as absent and forces extraction on the
// next check.
func (a *App) currentSnapshot() *models.ScheduleCache {
	a.snapMu.RLock()
	if a.snapLoaded {
		defer a.snapMu.RUnlock()
		return a.snapshot
	}
	a.snapMu.RUnlock()

	a.snapMu.Lock()
	defer a.snapMu.Unlock()
	if a.snapLoaded {
		return a.snapshot
	}
	cache, err := a.store.Load(a.cfg.Address())
	if err != nil {
		if errors.Is(err, storage.ErrCacheCorrupt) {
			a.logger.Warn().Err(err).Msg("cache file corrupt, treating as absent")
			a.lastWarning = err.Error()
		} else {
			a.logger.Error().Err(err).Msg("could not load cache")
		}
		cache = nil
	}
	a.snapshot = cache
	a.snapLoaded = true
	return a.snapshot
}

func (a *App) setWarning(msg string) {
	a.snapMu.Lock()
	a.lastWarning = msg
	a.snapMu.Unlock()
}

func (a *App) warning() string {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.lastWarning
}

func errorReason(err error) string {
	var malformed *extractor.MalformedTableError
	switch {
	case errors.Is(err, scraper.ErrAddressNotFound):
		return "address_not_found"
	case errors.Is(err, scraper.ErrRenderUnavailable):
		return "render_unavailable"
	case errors.Is(err, storage.ErrCacheCorrupt):
		return "cache_corrupt"
	case errors.As(err, &malformed):
		return "malformed_table"
	default:
		return "other"
	}
}
