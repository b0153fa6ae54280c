package models

import (
	"fmt"
	"time"
)

// ChangeKind classifies how an episode moved between two actual snapshots.
type ChangeKind string

const (
	ChangeNew       ChangeKind = "new"
	ChangeCancelled ChangeKind = "cancelled"
	ChangeExtended  ChangeKind = "extended"
	ChangeShortened ChangeKind = "shortened"
)

// ScheduleChange is one classified delta between two actual snapshots.
// Old* fields are nil for NEW, New* fields are nil for CANCELLED.
type ScheduleChange struct {
	Date     string     `json:"date"`
	Kind     ChangeKind `json:"kind"`
	OldStart *int       `json:"old_start,omitempty"`
	OldEnd   *int       `json:"old_end,omitempty"`
	NewStart *int       `json:"new_start,omitempty"`
	NewEnd   *int       `json:"new_end,omitempty"`
}

// DedupKey identifies a change across repeated polls of unchanged upstream
// data. Wall-clock fields stay out of the key on purpose.
func (c ScheduleChange) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", c.Date, c.Kind, hourOrDash(c.OldEnd), hourOrDash(c.NewEnd))
}

func hourOrDash(h *int) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprintf("%02d", *h)
}

// EventKind is the notification event family.
type EventKind string

const (
	EventOutageWarning  EventKind = "outage_warning"
	EventScheduleChange EventKind = "schedule_change"
)

// NotificationEvent is what the trigger hands to the delivery sinks.
type NotificationEvent struct {
	Kind EventKind `json:"kind"`
	// Change is set for schedule_change events.
	Change ChangeKind `json:"change,omitempty"`
	Date   string     `json:"date"`
	// StartHour/EndHour are the episode bounds the event is about: for a
	// warning the upcoming episode, for a change the surviving episode (the
	// cancelled one for cancellations).
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
	OldEnd    *int `json:"old_end,omitempty"`
	NewEnd    *int `json:"new_end,omitempty"`
	// LeadMinutes is how far ahead of the episode start the warning fired.
	LeadMinutes int       `json:"lead_minutes,omitempty"`
	At          time.Time `json:"at"`
}

// Summary renders the event as a short human-readable sentence.
func (e NotificationEvent) Summary() string {
	span := fmt.Sprintf("%02d:00-%02d:00", e.StartHour, e.EndHour)
	switch e.Kind {
	case EventOutageWarning:
		return fmt.Sprintf("відключення %s %s через %d хв", e.Date, span, e.LeadMinutes)
	case EventScheduleChange:
		switch e.Change {
		case ChangeExtended:
			return fmt.Sprintf("відключення %s подовжено до %02d:00 (було до %02d:00)", e.Date, *e.NewEnd, *e.OldEnd)
		case ChangeShortened:
			return fmt.Sprintf("відключення %s скорочено до %02d:00 (було до %02d:00)", e.Date, *e.NewEnd, *e.OldEnd)
		case ChangeCancelled:
			return fmt.Sprintf("відключення %s %s скасовано", e.Date, span)
		case ChangeNew:
			return fmt.Sprintf("нове відключення %s %s", e.Date, span)
		}
	}
	return fmt.Sprintf("%s %s %s", e.Kind, e.Date, span)
}
