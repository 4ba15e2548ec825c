package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/workers"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	readinessTimeout = 5 * time.Second
	healthTimeout    = 10 * time.Second
)

// probe is one named connectivity check against a backing store.
type probe struct {
	name string
	ping func(ctx context.Context) error
}

// Handler serves the Kubernetes probe endpoints plus a detailed status
// page that includes per-worker run accounting from the scheduler.
type Handler struct {
	log     *logger.Logger
	probes  []probe
	sched   *workers.Scheduler
	started time.Time
	service string
	version string
}

// New wires the handler against the three data stores and the worker
// scheduler. Any of them failing marks the service not ready.
func New(
	log *logger.Logger,
	pg *sqlx.DB,
	ch driver.Conn,
	rdb *redis.Client,
	sched *workers.Scheduler,
	service string,
	version string,
) *Handler {
	return &Handler{
		log: log,
		probes: []probe{
			{name: "postgres", ping: pg.PingContext},
			{name: "clickhouse", ping: ch.Ping},
			{name: "redis", ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		sched:   sched,
		started: time.Now(),
		service: service,
		version: version,
	}
}

// report is the JSON body of /ready and /health responses.
type report struct {
	Status    string                       `json:"status"`
	Service   string                       `json:"service"`
	Version   string                       `json:"version"`
	Uptime    string                       `json:"uptime"`
	Timestamp string                       `json:"timestamp"`
	Checks    map[string]checkResult       `json:"checks"`
	Workers   map[string]workers.JobStatus `json:"workers,omitempty"`
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness answers the liveness probe. It only proves the process
// is serving HTTP, never touching the data stores.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness answers the readiness probe: every store must respond
// or the pod is pulled from rotation.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks, healthy := h.runProbes(ctx)

	rep := h.newReport(checks)
	code := http.StatusOK
	if healthy < len(h.probes) {
		rep.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
		h.log.Warnf("Readiness check failed: %v", checks)
	}

	writeJSON(w, code, rep)
}

// HandleHealth serves the detailed status page. A partial store outage
// reports degraded but still returns 200 so dashboards keep polling;
// only a total outage returns 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks, healthy := h.runProbes(ctx)

	rep := h.newReport(checks)
	if h.sched != nil {
		rep.Workers = h.sched.Snapshot()
	}

	code := http.StatusOK
	switch {
	case healthy == 0:
		rep.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
	case healthy < len(h.probes):
		rep.Status = statusDegraded
	}

	writeJSON(w, code, rep)
}

// runProbes pings every store and returns the per-store results plus the
// count that passed.
func (h *Handler) runProbes(ctx context.Context) (map[string]checkResult, int) {
	checks := make(map[string]checkResult, len(h.probes))
	healthy := 0

	for _, p := range h.probes {
		start := time.Now()
		err := p.ping(ctx)
		elapsed := time.Since(start)

		if err != nil {
			h.log.Errorf("%s health check failed in %s: %v", p.name, elapsed, err)
			checks[p.name] = checkResult{
				Status:       statusUnhealthy,
				ResponseTime: elapsed.String(),
				Error:        err.Error(),
			}
			continue
		}

		checks[p.name] = checkResult{
			Status:       statusHealthy,
			ResponseTime: elapsed.String(),
		}
		healthy++
	}

	return checks, healthy
}

func (h *Handler) newReport(checks map[string]checkResult) report {
	return report{
		Status:    statusHealthy,
		Service:   h.service,
		Version:   h.version,
		Uptime:    time.Since(h.started).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
