// Package diff classifies how the actual schedule moved between two polls.
// Comparison works on episodes, not single hours: a 18:00-20:00 run that now
// ends 21:00 is one EXTENDED change, not three hour-level ones.
package diff

import (
	"sort"
	"time"

	"dtek-shutdowns-monitor/internal/models"
)

// Changes diffs two actual-schedule snapshots. Weekly-forecast intervals
// never participate. Output order is deterministic: dates ascending, then
// episode start hour ascending; a start-boundary shift reports the cancelled
// old episode before the new one.
func Changes(previous, current []models.OutageInterval) []models.ScheduleChange {
	prevByDate := episodesByDate(models.Episodes(previous))
	curByDate := episodesByDate(models.Episodes(current))

	var changes []models.ScheduleChange
	for _, date := range unionDates(prevByDate, curByDate) {
		changes = append(changes, diffDate(date, prevByDate[date], curByDate[date])...)
	}
	return changes
}

func diffDate(date string, prev, cur []models.Episode) []models.ScheduleChange {
	matched := make([]bool, len(prev))
	var changes []models.ScheduleChange

	for _, c := range cur {
		// An episode corresponds to whichever previous episodes it shares
		// hours with. Several previous episodes can merge into one current
		// run; the merged comparison uses the latest previous end so the
		// return-to-power shift is reported against what the user last saw.
		old := models.Episode{StartHour: -1}
		found := false
		for i, p := range prev {
			if !p.Overlaps(c) {
				continue
			}
			matched[i] = true
			if !found || p.EndHour > old.EndHour {
				old = p
			}
			found = true
		}

		switch {
		case !found:
			changes = append(changes, models.ScheduleChange{
				Date:     date,
				Kind:     models.ChangeNew,
				NewStart: intp(c.StartHour),
				NewEnd:   intp(c.EndHour),
			})
		case c.EndHour != old.EndHour:
			kind := models.ChangeExtended
			if c.EndHour < old.EndHour {
				kind = models.ChangeShortened
			}
			changes = append(changes, models.ScheduleChange{
				Date:     date,
				Kind:     kind,
				OldStart: intp(old.StartHour),
				OldEnd:   intp(old.EndHour),
				NewStart: intp(c.StartHour),
				NewEnd:   intp(c.EndHour),
			})
		case c.StartHour != old.StartHour:
			// End unchanged, start moved: the whole episode is reported as
			// cancelled and re-announced rather than as a boundary shift.
			changes = append(changes,
				models.ScheduleChange{
					Date:     date,
					Kind:     models.ChangeCancelled,
					OldStart: intp(old.StartHour),
					OldEnd:   intp(old.EndHour),
				},
				models.ScheduleChange{
					Date:     date,
					Kind:     models.ChangeNew,
					NewStart: intp(c.StartHour),
					NewEnd:   intp(c.EndHour),
				})
		}
	}

	for i, p := range prev {
		if matched[i] {
			continue
		}
		changes = append(changes, models.ScheduleChange{
			Date:     date,
			Kind:     models.ChangeCancelled,
			OldStart: intp(p.StartHour),
			OldEnd:   intp(p.EndHour),
		})
	}
	return changes
}

func episodesByDate(episodes []models.Episode) map[string][]models.Episode {
	byDate := make(map[string][]models.Episode)
	for _, e := range episodes {
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	return byDate
}

func unionDates(a, b map[string][]models.Episode) []string {
	set := make(map[string]bool)
	for d := range a {
		set[d] = true
	}
	for d := range b {
		set[d] = true
	}
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		di, erri := time.Parse(models.DateLayout, dates[i])
		dj, errj := time.Parse(models.DateLayout, dates[j])
		if erri != nil || errj != nil {
			return dates[i] < dates[j]
		}
		return di.Before(dj)
	})
	return dates
}

func intp(v int) *int {
	return &v
}
