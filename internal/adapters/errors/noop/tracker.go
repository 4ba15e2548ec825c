package noop

import (
	"context"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Tracker discards everything. Wired in when Sentry is disabled, and in
// tests that do not care about error reporting.
type Tracker struct{}

var _ errors.Tracker = Tracker{}

func New() Tracker { return Tracker{} }

func (Tracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (Tracker) Flush(context.Context) error { return nil }
