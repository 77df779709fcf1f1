package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/gauge/internal/api/shared"
	"github.com/phrazzld/gauge/internal/platform/logger"
)

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler returns the handler for GET /health. A nil db reports the
// database as "unchecked".
func HealthHandler(db Pinger, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Database: "unchecked"}
		if db == nil {
			shared.RespondWithJSON(w, r, http.StatusOK, resp)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.FromContextOrDefault(r.Context(), slog.Default()).
				Error("health check failed", slog.String("error", err.Error()))
			resp.Status, resp.Database = "unavailable", "unreachable"
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
		shared.RespondWithJSON(w, r, http.StatusOK, resp)
	}
}
