package errors

import (
	"errors"
	"fmt"
	"time"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Pipeline-specific errors

var (
	// ErrFeatureComputation indicates a member's feature vector could not be
	// computed because a required join key is missing. The member is excluded
	// from the batch; the batch itself continues.
	ErrFeatureComputation = errors.New("feature computation failed")

	// ErrInsufficientData indicates a walk-forward fold cannot reach the
	// minimum positive-sample count even after expanding to the full
	// remaining span. Training aborts.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrCircuitBreakerTripped indicates a data-quality gate failed and the
	// scoring run was halted rather than emitting degraded predictions.
	ErrCircuitBreakerTripped = errors.New("circuit breaker tripped")

	// ErrModelNotFitted indicates predict was called before fit/load
	ErrModelNotFitted = errors.New("model not fitted")

	// ErrNoActiveModel indicates no production model reference is set
	ErrNoActiveModel = errors.New("no active model reference")

	// ErrScoringBudgetExceeded indicates the scoring batch exceeded its
	// wall-clock budget. Treated as a circuit-breaker condition.
	ErrScoringBudgetExceeded = errors.New("scoring wall-clock budget exceeded")
)

// FeatureComputationError reports why a single member's feature vector could
// not be computed. Callers exclude the member rather than substituting
// defaults; only features documented as nullable may be null.
type FeatureComputationError struct {
	MemberID int64
	Reason   string
}

// Error implements the error interface
func (e *FeatureComputationError) Error() string {
	return fmt.Sprintf("feature computation failed for member %d: %s", e.MemberID, e.Reason)
}

// Unwrap makes the error match ErrFeatureComputation via errors.Is
func (e *FeatureComputationError) Unwrap() error {
	return ErrFeatureComputation
}

// NewFeatureComputationError creates a new feature computation error
func NewFeatureComputationError(memberID int64, reason string) *FeatureComputationError {
	return &FeatureComputationError{MemberID: memberID, Reason: reason}
}

// InsufficientDataError reports a fold that could not satisfy the minimum
// positive-sample requirement.
type InsufficientDataError struct {
	Fold         int
	Positives    int
	MinPositives int
}

// Error implements the error interface
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf(
		"fold %d: %d positive samples in remaining span, need %d",
		e.Fold, e.Positives, e.MinPositives,
	)
}

// Unwrap makes the error match ErrInsufficientData via errors.Is
func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// CircuitBreakerError carries the individual quality checks that failed.
type CircuitBreakerError struct {
	Checks []BreakerCheck
}

// BreakerCheck is a single failed data-quality check
type BreakerCheck struct {
	Name      string
	Value     float64
	Threshold float64
}

// NewCircuitBreakerError creates a circuit breaker error from failed checks
func NewCircuitBreakerError(checks []BreakerCheck) *CircuitBreakerError {
	return &CircuitBreakerError{Checks: checks}
}

// Error implements the error interface
func (e *CircuitBreakerError) Error() string {
	if len(e.Checks) == 1 {
		c := e.Checks[0]
		return fmt.Sprintf("circuit breaker: %s %.4f exceeds %.4f", c.Name, c.Value, c.Threshold)
	}
	return fmt.Sprintf("circuit breaker: %d quality checks failed", len(e.Checks))
}

// Unwrap makes the error match ErrCircuitBreakerTripped via errors.Is
func (e *CircuitBreakerError) Unwrap() error {
	return ErrCircuitBreakerTripped
}

// DriftAlert is a non-fatal signal that feature or concept drift exceeded its
// threshold. It never halts scoring; it triggers a retrain recommendation.
type DriftAlert struct {
	Kind       string // feature | concept | hit_rate
	Subject    string // feature name, month, or tier
	Value      float64
	Threshold  float64
	DetectedAt time.Time
}

// String returns a log-friendly representation
func (a DriftAlert) String() string {
	return fmt.Sprintf("%s drift on %s: %.4f (threshold %.4f)", a.Kind, a.Subject, a.Value, a.Threshold)
}

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
