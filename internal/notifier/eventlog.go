package notifier

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"dtek-shutdowns-monitor/internal/models"
)

// EventLog is the primary delivery channel: one JSON line per event with an
// embedded timestamp, appended to a file an out-of-process watcher can tail
// or grep without any RPC dependency.
type EventLog struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

func NewEventLog(path string) (*EventLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &EventLog{
		file:   file,
		logger: zerolog.New(file).With().Timestamp().Logger(),
	}, nil
}

func (l *EventLog) Send(_ context.Context, event models.NotificationEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.logger.Info().
		Str("kind", string(event.Kind)).
		Str("date", event.Date).
		Int("start_hour", event.StartHour).
		Int("end_hour", event.EndHour)
	if event.Change != "" {
		e = e.Str("change", string(event.Change))
	}
	if event.OldEnd != nil {
		e = e.Int("old_end", *event.OldEnd)
	}
	if event.NewEnd != nil {
		e = e.Int("new_end", *event.NewEnd)
	}
	if event.Kind == models.EventOutageWarning {
		e = e.Int("lead_minutes", event.LeadMinutes)
	}
	e.Msg(event.Summary())
	return l.file.Sync()
}

func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
