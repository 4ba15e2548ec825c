package errors

import "context"

// Tracker forwards pipeline failures to an external error service. The
// batch workers run unattended, so tracked errors are the main signal
// that a nightly run went wrong.
type Tracker interface {
	// CaptureError reports err with the given tags. Implementations must
	// not block the caller on network I/O.
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// Flush blocks until buffered events are delivered or ctx expires.
	// Called once during shutdown.
	Flush(ctx context.Context) error
}
