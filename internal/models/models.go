package models

import (
	"fmt"
	"time"
)

// ScheduleKind tells which DTEK table an interval came from.
type ScheduleKind string

const (
	// ScheduleActual is the precise today/tomorrow table. Only actual
	// intervals drive notifications.
	ScheduleActual ScheduleKind = "actual"
	// SchedulePossibleWeek is the weekly forecast table. Planning queries only.
	SchedulePossibleWeek ScheduleKind = "possible_week"
)

// OutageKind classifies a single table cell.
type OutageKind string

const (
	OutageDefinite           OutageKind = "definite"
	OutageFirstHalf          OutageKind = "first_half"
	OutageSecondHalfPossible OutageKind = "second_half_possible"
	OutagePossible           OutageKind = "possible"
)

// DateLayout is the date format used by the DTEK tables, e.g. "14.11.25".
const DateLayout = "02.01.06"

// DaysOfWeek holds the Ukrainian day labels in table order (Monday first).
var DaysOfWeek = [7]string{
	"Понеділок",
	"Вівторок",
	"Середа",
	"Четвер",
	"П'ятниця",
	"Субота",
	"Неділя",
}

// DayLabelFor maps a calendar time to its Ukrainian day label.
func DayLabelFor(t time.Time) string {
	// time.Weekday starts at Sunday.
	idx := (int(t.Weekday()) + 6) % 7
	return DaysOfWeek[idx]
}

// IsDayLabel reports whether s is one of the seven day labels.
func IsDayLabel(s string) bool {
	for _, d := range DaysOfWeek {
		if d == s {
			return true
		}
	}
	return false
}

// Address identifies the monitored location. Values must carry the prefixes
// the DTEK autocomplete uses ("м. Дніпро", "Просп. Миру") and are compared
// verbatim.
type Address struct {
	City        string `json:"city"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
}

func (a Address) String() string {
	return fmt.Sprintf("%s, %s, буд. %s", a.City, a.Street, a.HouseNumber)
}

// OutageInterval is one whole-hour outage slot from a schedule table.
type OutageInterval struct {
	ScheduleKind ScheduleKind `json:"schedule_kind"`
	DayOfWeek    string       `json:"day_of_week"`
	// Date is set only for actual intervals ("14.11.25"); the weekly
	// forecast has no fixed date.
	Date       string     `json:"date,omitempty"`
	StartHour  int        `json:"start_hour"`
	EndHour    int        `json:"end_hour"`
	OutageKind OutageKind `json:"outage_kind"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// Validate enforces the interval invariants: hour bounds, the kind being
// legal for the schedule it came from, and date presence for actual rows.
func (i OutageInterval) Validate() error {
	if i.StartHour < 0 || i.EndHour > 24 || i.StartHour >= i.EndHour {
		return fmt.Errorf("invalid hour range %d-%d", i.StartHour, i.EndHour)
	}
	switch i.ScheduleKind {
	case ScheduleActual:
		if i.Date == "" {
			return fmt.Errorf("actual interval without date")
		}
		if _, err := time.Parse(DateLayout, i.Date); err != nil {
			return fmt.Errorf("invalid date %q: %w", i.Date, err)
		}
		switch i.OutageKind {
		case OutageDefinite, OutageFirstHalf, OutageSecondHalfPossible:
		default:
			return fmt.Errorf("outage kind %q is not legal for the actual schedule", i.OutageKind)
		}
	case SchedulePossibleWeek:
		if i.Date != "" {
			return fmt.Errorf("weekly forecast interval with date %q", i.Date)
		}
		if i.OutageKind != OutagePossible {
			return fmt.Errorf("outage kind %q is not legal for the weekly forecast", i.OutageKind)
		}
		if !IsDayLabel(i.DayOfWeek) {
			return fmt.Errorf("unknown day label %q", i.DayOfWeek)
		}
	default:
		return fmt.Errorf("unknown schedule kind %q", i.ScheduleKind)
	}
	return nil
}

// StartTime resolves the interval start to a wall-clock time in loc.
// Only valid for actual intervals.
func (i OutageInterval) StartTime(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, i.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", i.Date, err)
	}
	return d.Add(time.Duration(i.StartHour) * time.Hour), nil
}

// ScheduleCache is the two-tier cache for one address. It is replaced as a
// whole on write and read-only between extractions.
type ScheduleCache struct {
	ActualSchedules   []OutageInterval `json:"actual_schedules"`
	PossibleSchedules []OutageInterval `json:"possible_schedules"`
	LastUpdated       time.Time        `json:"last_updated"`
}

// MonitoringConfig controls the notification trigger. It never affects
// weekly-forecast data.
type MonitoringConfig struct {
	CheckIntervalMinutes    int  `json:"check_interval_minutes"`
	NotificationLeadMinutes int  `json:"notification_lead_minutes"`
	Enabled                 bool `json:"enabled"`
}

// DefaultMonitoringConfig returns the defaults used before the user runs
// configure: hourly checks, one hour of warning, disabled.
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		CheckIntervalMinutes:    60,
		NotificationLeadMinutes: 60,
		Enabled:                 false,
	}
}

func (c MonitoringConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

func (c MonitoringConfig) LeadTime() time.Duration {
	return time.Duration(c.NotificationLeadMinutes) * time.Minute
}

func (c MonitoringConfig) Validate() error {
	if c.CheckIntervalMinutes <= 0 {
		return fmt.Errorf("check interval must be positive, got %d", c.CheckIntervalMinutes)
	}
	if c.NotificationLeadMinutes <= 0 {
		return fmt.Errorf("notification lead must be positive, got %d", c.NotificationLeadMinutes)
	}
	return nil
}
