// Package alerts delivers best-effort operator notifications for queue
// breakdowns and retry exhaustion.
package alerts

import (
	"context"
	"io"
	"log"
)

// Notifier delivers one alert to a single destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, subject, body string) error
}

// Dispatcher fans an alert out to every configured notifier. Delivery is
// best-effort: failures are logged and never propagate to the caller.
type Dispatcher struct {
	targets []Notifier
	logger  *log.Logger
}

// NewDispatcher creates a Dispatcher over the given notifiers.
func NewDispatcher(out io.Writer, targets ...Notifier) *Dispatcher {
	return &Dispatcher{
		targets: targets,
		logger:  log.New(out, "[alerts] ", log.LstdFlags),
	}
}

// Send delivers the alert to all targets.
func (d *Dispatcher) Send(ctx context.Context, subject, body string) {
	for _, target := range d.targets {
		if err := target.Notify(ctx, subject, body); err != nil {
			d.logger.Printf("%s delivery failed: %v", target.Name(), err)
		}
	}
}
