package httpx

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is satisfied by any infrastructure dependency that exposes
// a Ping method: the database pool, RedisClient, EventBus, blob store and
// Temporal client.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks holds the set of dependencies to probe in the health endpoint.
// A nil checker is reported as "disabled" and does not degrade the status.
// Workflows is advisory: its state is reported without failing the probe.
type HealthChecks struct {
	Database  HealthChecker
	Redis     HealthChecker
	EventBus  HealthChecker
	BlobStore HealthChecker
	Workflows HealthChecker
}

type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	EventBus  string `json:"event_bus"`
	BlobStore string `json:"blob_store"`
	Workflows string `json:"workflows"`
}

// HealthHandler returns an http.HandlerFunc that probes all registered
// HealthCheckers and reports degraded status if any of them fail.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		probe := func(c HealthChecker, required bool) string {
			if c == nil {
				return "disabled"
			}
			if err := c.Ping(ctx); err != nil {
				if required {
					resp.Status = "degraded"
				}
				return "unreachable"
			}
			return "ok"
		}

		resp.Database = probe(checks.Database, true)
		resp.Redis = probe(checks.Redis, true)
		resp.EventBus = probe(checks.EventBus, true)
		resp.BlobStore = probe(checks.BlobStore, true)
		resp.Workflows = probe(checks.Workflows, false)

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		JSON(w, status, resp)
	}
}
