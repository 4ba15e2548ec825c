package intervention

import (
	"context"
	"time"
)

// Repository provides read-only access to the intervention-execution log.
type Repository interface {
	// ExistsForPrediction reports whether any intervention was logged
	// against the member's prediction of the given score date.
	ExistsForPrediction(ctx context.Context, memberID int64, scoreDate time.Time) (bool, error)
}
