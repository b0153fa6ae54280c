// Package extractor turns the rendered DTEK schedule tables into hourly
// outage intervals. Both entry points are pure functions of the markup: no
// network, no clock, no state.
package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dtek-shutdowns-monitor/internal/models"
)

const (
	actualTableSelector   = "div.discon-fact-table"
	possibleTableSelector = "div.discon-schedule-table"

	markerPrefix         = "cell-"
	markerNoOutage       = "cell-non-scheduled"
	markerScheduled      = "cell-scheduled"
	markerFirstHalf      = "cell-first-half"
	markerSecondHalf     = "cell-second-half"
	markerScheduledMaybe = "cell-scheduled-maybe"
)

var (
	hourSpanRe = regexp.MustCompile(`^(\d{2})-(\d{2})$`)
	dateRe     = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2}`)
)

// MalformedTableError means the markup did not match the expected table
// shape, or a cell carried a marker outside the closed set. The whole
// extraction is rejected: guessing here would corrupt notification timing.
type MalformedTableError struct {
	Table  string
	Reason string
}

func (e *MalformedTableError) Error() string {
	return fmt.Sprintf("malformed %s table: %s", e.Table, e.Reason)
}

func malformed(table, format string, args ...any) error {
	return &MalformedTableError{Table: table, Reason: fmt.Sprintf(format, args...)}
}

// ExtractActual parses the "Графік відключень" table: one row per
// today/tomorrow, each row header carrying an embedded dd.mm.yy date, 24
// one-hour columns. Rows come out in table order, hours in column order.
// Only outage hours produce intervals.
func ExtractActual(markup string, fetchedAt time.Time) ([]models.OutageInterval, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, malformed("actual", "unparseable markup: %v", err)
	}

	div := doc.Find(actualTableSelector).First()
	if div.Length() == 0 {
		return nil, malformed("actual", "%s not found", actualTableSelector)
	}
	table := div.Find("table").First()
	if table.Length() == 0 {
		return nil, malformed("actual", "no table inside %s", actualTableSelector)
	}

	slots, err := headerSlots(table, "actual")
	if err != nil {
		return nil, err
	}

	var intervals []models.OutageInterval
	var rowErr error
	table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return true
		}

		header := strings.TrimSpace(cells.First().Text())
		date := dateRe.FindString(header)
		if date == "" {
			rowErr = malformed("actual", "row header %q carries no date", header)
			return false
		}
		day, err := time.Parse(models.DateLayout, date)
		if err != nil {
			rowErr = malformed("actual", "row date %q: %v", date, err)
			return false
		}

		if cells.Length()-1 < len(slots) {
			rowErr = malformed("actual", "row %q has %d hour cells, want %d", header, cells.Length()-1, len(slots))
			return false
		}
		hourCells := cells.Slice(cells.Length()-len(slots), cells.Length())

		hourCells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
			kind, err := cellKind(cell, "actual")
			if err != nil {
				rowErr = err
				return false
			}
			if kind == "" {
				return true
			}
			intervals = append(intervals, models.OutageInterval{
				ScheduleKind: models.ScheduleActual,
				DayOfWeek:    models.DayLabelFor(day),
				Date:         date,
				StartHour:    slots[i].start,
				EndHour:      slots[i].end,
				OutageKind:   kind,
				FetchedAt:    fetchedAt,
			})
			return true
		})
		return rowErr == nil
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return intervals, nil
}

// ExtractPossible parses the "Графік можливих відключень на тиждень" table:
// one row per day label, 24 one-hour columns, no dates.
func ExtractPossible(markup string, fetchedAt time.Time) ([]models.OutageInterval, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, malformed("possible", "unparseable markup: %v", err)
	}

	div := doc.Find(possibleTableSelector).First()
	if div.Length() == 0 {
		return nil, malformed("possible", "%s not found", possibleTableSelector)
	}
	table := div.Find("table").First()
	if table.Length() == 0 {
		return nil, malformed("possible", "no table inside %s", possibleTableSelector)
	}

	slots, err := headerSlots(table, "possible")
	if err != nil {
		return nil, err
	}

	var intervals []models.OutageInterval
	var rowErr error
	table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return true
		}

		header := strings.TrimSpace(cells.First().Text())
		day := dayLabelIn(header)
		if day == "" {
			rowErr = malformed("possible", "row header %q is not a day of week", header)
			return false
		}

		if cells.Length()-1 < len(slots) {
			rowErr = malformed("possible", "row %q has %d hour cells, want %d", header, cells.Length()-1, len(slots))
			return false
		}
		hourCells := cells.Slice(cells.Length()-len(slots), cells.Length())

		hourCells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
			kind, err := cellKind(cell, "possible")
			if err != nil {
				rowErr = err
				return false
			}
			if kind == "" {
				return true
			}
			intervals = append(intervals, models.OutageInterval{
				ScheduleKind: models.SchedulePossibleWeek,
				DayOfWeek:    day,
				StartHour:    slots[i].start,
				EndHour:      slots[i].end,
				OutageKind:   kind,
				FetchedAt:    fetchedAt,
			})
			return true
		})
		return rowErr == nil
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return intervals, nil
}

type hourSlot struct {
	start, end int
}

// headerSlots reads the fixed one-hour columns ("00-01" … "23-24") from the
// table header, skipping the leading row-label cells.
func headerSlots(table *goquery.Selection, tableName string) ([]hourSlot, error) {
	var slots []hourSlot
	var headErr error
	table.Find("thead tr").First().Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		text := strings.TrimSpace(th.Text())
		m := hourSpanRe.FindStringSubmatch(text)
		if m == nil {
			if len(slots) > 0 {
				headErr = malformed(tableName, "non-hour header %q after hour columns", text)
				return false
			}
			return true
		}
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if start < 0 || end > 24 || start >= end {
			headErr = malformed(tableName, "hour column %q out of range", text)
			return false
		}
		slots = append(slots, hourSlot{start: start, end: end})
		return true
	})
	if headErr != nil {
		return nil, headErr
	}
	if len(slots) == 0 {
		return nil, malformed(tableName, "no hour columns in header")
	}
	return slots, nil
}

// cellKind maps one cell's class markers to an outage kind. Empty kind means
// power available. Any cell-* token outside the closed set, or a kind that is
// illegal for the table it appears in, rejects the extraction.
func cellKind(cell *goquery.Selection, tableName string) (models.OutageKind, error) {
	classAttr, _ := cell.Attr("class")
	var kind models.OutageKind
	for _, token := range strings.Fields(classAttr) {
		if !strings.HasPrefix(token, markerPrefix) {
			continue
		}
		switch token {
		case markerNoOutage:
			// power available
		case markerScheduledMaybe:
			kind = models.OutagePossible
		case markerScheduled:
			kind = models.OutageDefinite
		case markerFirstHalf:
			kind = models.OutageFirstHalf
		case markerSecondHalf:
			kind = models.OutageSecondHalfPossible
		default:
			return "", malformed(tableName, "unrecognized cell marker %q", token)
		}
	}
	if kind == "" {
		return "", nil
	}

	switch tableName {
	case "actual":
		if kind == models.OutagePossible {
			return "", malformed(tableName, "marker %q is not legal in the actual table", markerScheduledMaybe)
		}
	case "possible":
		if kind != models.OutagePossible {
			return "", malformed(tableName, "marker for kind %q is not legal in the weekly table", kind)
		}
	}
	return kind, nil
}

func dayLabelIn(header string) string {
	for _, d := range models.DaysOfWeek {
		if strings.Contains(header, d) {
			return d
		}
	}
	return ""
}
