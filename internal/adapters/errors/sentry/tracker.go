package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// flushBudget bounds how long shutdown waits for queued events.
const flushBudget = 2 * time.Second

// Tracker reports pipeline errors to Sentry. Events are tagged with the
// pipeline stage (scoring, verification, drift) so alerts can route to
// the right runbook.
type Tracker struct {
	hub *sentry.Hub
}

var _ errors.Tracker = (*Tracker)(nil)

// New initializes the Sentry client for the given environment.
func New(dsn, environment string) (*Tracker, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, err
	}
	return &Tracker{hub: sentry.CurrentHub()}, nil
}

// CaptureError sends err to Sentry with the given tags. The hub is
// cloned per call so concurrent workers do not share scope.
func (t *Tracker) CaptureError(_ context.Context, err error, tags map[string]string) error {
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	hub.CaptureException(err)
	return nil
}

// Flush drains the event queue. sentry.Flush only reports success as a
// bool; an incomplete drain on shutdown is not worth failing over.
func (t *Tracker) Flush(context.Context) error {
	sentry.Flush(flushBudget)
	return nil
}
