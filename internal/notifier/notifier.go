package notifier

import (
	"context"
	"errors"

	"dtek-shutdowns-monitor/internal/models"
)

// Notifier delivers one notification event to a channel.
type Notifier interface {
	Send(ctx context.Context, event models.NotificationEvent) error
}

// Multi fans an event out to every sink and reports the joined failures.
// One failing channel does not stop the others.
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

type multiNotifier []Notifier

func (m multiNotifier) Send(ctx context.Context, event models.NotificationEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
