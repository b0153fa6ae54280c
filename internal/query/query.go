// Package query answers read-only questions against a cache snapshot.
package query

import (
	"sort"
	"time"

	"dtek-shutdowns-monitor/internal/models"
)

// NextEpisode returns the earliest actual episode whose start is at or after
// now. An episode already in progress is not "next": it is too late to warn
// about it.
func NextEpisode(cache *models.ScheduleCache, now time.Time, loc *time.Location) (models.Episode, bool) {
	if cache == nil {
		return models.Episode{}, false
	}
	for _, ep := range models.Episodes(cache.ActualSchedules) {
		start, err := ep.Start(loc)
		if err != nil {
			continue
		}
		if !start.Before(now) {
			return ep, true
		}
	}
	return models.Episode{}, false
}

// NextOutage returns the first hourly interval of the next episode.
func NextOutage(cache *models.ScheduleCache, now time.Time, loc *time.Location) (models.OutageInterval, bool) {
	ep, ok := NextEpisode(cache, now, loc)
	if !ok {
		return models.OutageInterval{}, false
	}
	ivs := models.EpisodeIntervals(cache.ActualSchedules, ep)
	if len(ivs) == 0 {
		return models.OutageInterval{}, false
	}
	return ivs[0], true
}

// OutagesOn filters intervals by day label. For the actual schedule the day
// is derived from each interval's date so the two can never disagree; the
// weekly forecast carries the label itself.
func OutagesOn(cache *models.ScheduleCache, dayOfWeek string, kind models.ScheduleKind) []models.OutageInterval {
	if cache == nil {
		return nil
	}
	var out []models.OutageInterval
	switch kind {
	case models.ScheduleActual:
		for _, iv := range cache.ActualSchedules {
			d, err := time.Parse(models.DateLayout, iv.Date)
			if err != nil {
				continue
			}
			if models.DayLabelFor(d) == dayOfWeek {
				out = append(out, iv)
			}
		}
	case models.SchedulePossibleWeek:
		for _, iv := range cache.PossibleSchedules {
			if iv.DayOfWeek == dayOfWeek {
				out = append(out, iv)
			}
		}
	}
	sortIntervals(out)
	return out
}

// OutagesIn returns actual intervals overlapping the [from, to) window.
func OutagesIn(cache *models.ScheduleCache, from, to time.Time, loc *time.Location) []models.OutageInterval {
	if cache == nil {
		return nil
	}
	var out []models.OutageInterval
	for _, iv := range cache.ActualSchedules {
		start, err := iv.StartTime(loc)
		if err != nil {
			continue
		}
		end := start.Add(time.Duration(iv.EndHour-iv.StartHour) * time.Hour)
		if start.Before(to) && end.After(from) {
			out = append(out, iv)
		}
	}
	sortIntervals(out)
	return out
}

func sortIntervals(ivs []models.OutageInterval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		if ivs[i].Date != ivs[j].Date {
			di, erri := time.Parse(models.DateLayout, ivs[i].Date)
			dj, errj := time.Parse(models.DateLayout, ivs[j].Date)
			if erri == nil && errj == nil {
				return di.Before(dj)
			}
			return ivs[i].Date < ivs[j].Date
		}
		return ivs[i].StartHour < ivs[j].StartHour
	})
}
