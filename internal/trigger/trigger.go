// Package trigger decides when the pipeline's findings become notifications.
package trigger

import (
	"fmt"
	"sync"
	"time"

	"dtek-shutdowns-monitor/internal/diff"
	"dtek-shutdowns-monitor/internal/models"
	"dtek-shutdowns-monitor/internal/query"
)

// Trigger tracks which episodes were already warned about and which schedule
// changes were already reported, so repeated polls over unchanged upstream
// data stay silent. State is in-memory: the daemon is the only long-lived
// evaluator.
type Trigger struct {
	loc *time.Location

	mu      sync.Mutex
	warned  map[string]bool
	emitted map[string]bool
}

func New(loc *time.Location) *Trigger {
	return &Trigger{
		loc:     loc,
		warned:  make(map[string]bool),
		emitted: make(map[string]bool),
	}
}

// Evaluate runs one notification decision over the current snapshot and,
// when a previous snapshot is supplied, the diff between the two.
//
// Disabled monitoring short-circuits before any state transition: an episode
// stays unseen, so enabling monitoring later still warns exactly once.
func (t *Trigger) Evaluate(cache, previous *models.ScheduleCache, cfg models.MonitoringConfig, now time.Time) []models.NotificationEvent {
	if !cfg.Enabled || cache == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var events []models.NotificationEvent
	if ev, ok := t.warningEvent(cache, cfg, now); ok {
		events = append(events, ev)
	}
	if previous != nil {
		events = append(events, t.changeEvents(previous, cache, now)...)
	}
	t.prune(now)
	return events
}

// warningEvent opens the warning window for the next upcoming episode. The
// dedup key is the episode's (date, start hour), not wall-clock time:
// successive polls within the window must not re-warn.
func (t *Trigger) warningEvent(cache *models.ScheduleCache, cfg models.MonitoringConfig, now time.Time) (models.NotificationEvent, bool) {
	ep, ok := query.NextEpisode(cache, now, t.loc)
	if !ok {
		return models.NotificationEvent{}, false
	}
	start, err := ep.Start(t.loc)
	if err != nil {
		return models.NotificationEvent{}, false
	}
	until := start.Sub(now)
	if until < 0 || until > cfg.LeadTime() {
		return models.NotificationEvent{}, false
	}
	key := episodeKey(ep)
	if t.warned[key] {
		return models.NotificationEvent{}, false
	}
	t.warned[key] = true
	return models.NotificationEvent{
		Kind:        models.EventOutageWarning,
		Date:        ep.Date,
		StartHour:   ep.StartHour,
		EndHour:     ep.EndHour,
		LeadMinutes: int(until.Minutes()),
		At:          now,
	}, true
}

// changeEvents reports schedule changes for upcoming or already-warned
// episodes. Identical diffs from unchanged upstream data are deduplicated by
// (date, old end, new end, kind).
func (t *Trigger) changeEvents(previous, current *models.ScheduleCache, now time.Time) []models.NotificationEvent {
	var events []models.NotificationEvent
	for _, ch := range diff.Changes(previous.ActualSchedules, current.ActualSchedules) {
		if t.emitted[ch.DedupKey()] {
			continue
		}
		if !t.relevant(ch, now) {
			continue
		}
		t.emitted[ch.DedupKey()] = true

		ev := models.NotificationEvent{
			Kind:   models.EventScheduleChange,
			Change: ch.Kind,
			Date:   ch.Date,
			OldEnd: ch.OldEnd,
			NewEnd: ch.NewEnd,
			At:     now,
		}
		switch {
		case ch.NewStart != nil:
			ev.StartHour, ev.EndHour = *ch.NewStart, *ch.NewEnd
		case ch.OldStart != nil:
			ev.StartHour, ev.EndHour = *ch.OldStart, *ch.OldEnd
		}
		events = append(events, ev)
	}
	return events
}

// relevant keeps changes about episodes that are still ahead of the user:
// already warned, or not yet over. A cancellation of an episode that ended
// yesterday is noise.
func (t *Trigger) relevant(ch models.ScheduleChange, now time.Time) bool {
	startHour, endHour := 0, 24
	if ch.NewStart != nil {
		startHour, endHour = *ch.NewStart, *ch.NewEnd
	} else if ch.OldStart != nil {
		startHour, endHour = *ch.OldStart, *ch.OldEnd
	}
	if t.warned[episodeKey(models.Episode{Date: ch.Date, StartHour: startHour, EndHour: endHour})] {
		return true
	}
	d, err := time.ParseInLocation(models.DateLayout, ch.Date, t.loc)
	if err != nil {
		return false
	}
	end := d.Add(time.Duration(endHour) * time.Hour)
	return end.After(now)
}

// prune drops state for dates more than two days behind now, keeping the
// maps bounded across long daemon runs.
func (t *Trigger) prune(now time.Time) {
	cutoff := now.AddDate(0, 0, -2)
	keep := func(key string) bool {
		// Both key forms start with the dd.mm.yy date.
		if len(key) < 8 {
			return false
		}
		d, err := time.ParseInLocation(models.DateLayout, key[:8], t.loc)
		if err != nil {
			return false
		}
		return d.After(cutoff)
	}
	for key := range t.warned {
		if !keep(key) {
			delete(t.warned, key)
		}
	}
	for key := range t.emitted {
		if !keep(key) {
			delete(t.emitted, key)
		}
	}
}

func episodeKey(ep models.Episode) string {
	return fmt.Sprintf("%s|%02d", ep.Date, ep.StartHour)
}
