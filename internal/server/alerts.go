package server

import (
	"context"
	"log/slog"

	"todoer/internal/reactive"
)

// Alert is a user-visible notification. Seq increases with every alert.
type Alert struct {
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

// Alerts collects repository notifications for the event stream.
type Alerts struct {
	latest *reactive.Value[Alert]
	logger *slog.Logger
}

// NewAlerts returns an empty alert feed.
func NewAlerts(logger *slog.Logger) *Alerts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerts{latest: reactive.New(Alert{}), logger: logger}
}

// Notify implements repository.Notifier.
func (a *Alerts) Notify(message string) {
	a.latest.Update(func(prev Alert) Alert {
		return Alert{Seq: prev.Seq + 1, Message: message}
	})
	a.logger.Info("alert raised", slog.String("message", message))
}

// Latest returns the most recent alert; Seq is zero when there is none.
func (a *Alerts) Latest() Alert {
	return a.latest.Get()
}

// Watch emits the latest alert and every later one until ctx is done.
func (a *Alerts) Watch(ctx context.Context) <-chan Alert {
	return a.latest.Watch(ctx)
}
