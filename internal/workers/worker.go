package workers

import (
	"context"
	"sync"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Worker is one recurring pipeline job. The scheduler calls Run once per
// Interval; each call must finish a complete iteration (a scoring pass,
// a verification sweep, a drift check) and return.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// Base carries the pieces every pipeline job shares: identity, cadence,
// an on/off switch and a named logger. Concrete jobs embed it and
// implement Run.
type Base struct {
	name  string
	every time.Duration
	log   *logger.Logger

	mu      sync.RWMutex
	enabled bool
}

// NewBase builds the shared part of a pipeline job.
func NewBase(name string, every time.Duration, enabled bool) *Base {
	return &Base{
		name:    name,
		every:   every,
		enabled: enabled,
		log:     logger.Get().With("worker", name),
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Interval() time.Duration { return b.every }

func (b *Base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SetEnabled flips the job on or off. The scheduler reads the flag when it
// starts; flipping it afterwards only affects the next scheduler start.
func (b *Base) SetEnabled(on bool) {
	b.mu.Lock()
	b.enabled = on
	b.mu.Unlock()
	b.log.Infof("Worker toggled, enabled=%v", on)
}

// Log returns the job-scoped logger.
func (b *Base) Log() *logger.Logger { return b.log }
