package models

import (
	"sort"
	"time"
)

// Episode is a maximal run of consecutive outage hours on one date. Episodes
// are the user-facing unit: a 18-19 and 19-20 pair is one 18-20 event.
//
// Episodes are always derived from the hourly records on demand, never
// stored, so they cannot drift from the cache.
type Episode struct {
	Date      string
	StartHour int
	EndHour   int
}

// Start resolves the episode start to wall-clock time in loc.
func (e Episode) Start(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, e.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(e.StartHour) * time.Hour), nil
}

// End resolves the episode end to wall-clock time in loc. EndHour 24 maps to
// midnight of the following day.
func (e Episode) End(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, e.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(e.EndHour) * time.Hour), nil
}

// Overlaps reports whether two episodes on the same date share at least one
// hour.
func (e Episode) Overlaps(o Episode) bool {
	return e.Date == o.Date && e.StartHour < o.EndHour && o.StartHour < e.EndHour
}

// Episodes groups actual intervals into contiguous episodes. Non-actual
// intervals are ignored. Output is ordered by date, then start hour, and is
// deterministic for a given input set regardless of input order.
func Episodes(intervals []OutageInterval) []Episode {
	hoursByDate := make(map[string]map[int]bool)
	for _, iv := range intervals {
		if iv.ScheduleKind != ScheduleActual || iv.Date == "" {
			continue
		}
		hours := hoursByDate[iv.Date]
		if hours == nil {
			hours = make(map[int]bool)
			hoursByDate[iv.Date] = hours
		}
		for h := iv.StartHour; h < iv.EndHour; h++ {
			hours[h] = true
		}
	}

	dates := make([]string, 0, len(hoursByDate))
	for d := range hoursByDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		di, erri := time.Parse(DateLayout, dates[i])
		dj, errj := time.Parse(DateLayout, dates[j])
		if erri != nil || errj != nil {
			return dates[i] < dates[j]
		}
		return di.Before(dj)
	})

	var episodes []Episode
	for _, date := range dates {
		hours := hoursByDate[date]
		start := -1
		for h := 0; h <= 24; h++ {
			if h < 24 && hours[h] {
				if start < 0 {
					start = h
				}
				continue
			}
			if start >= 0 {
				episodes = append(episodes, Episode{Date: date, StartHour: start, EndHour: h})
				start = -1
			}
		}
	}
	return episodes
}

// EpisodeIntervals returns the hourly intervals belonging to the episode, in
// hour order.
func EpisodeIntervals(intervals []OutageInterval, e Episode) []OutageInterval {
	var out []OutageInterval
	for _, iv := range intervals {
		if iv.ScheduleKind != ScheduleActual || iv.Date != e.Date {
			continue
		}
		if iv.StartHour >= e.StartHour && iv.EndHour <= e.EndHour {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartHour < out[j].StartHour })
	return out
}
