package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// liveness responds with 200 OK if the HTTP server is running.
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness checks all registered dependencies in parallel.
// Returns 200 OK only if all checkers pass.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	// Enforce the configured timeout so the probe always answers in time.
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	statusMap := make(map[string]string)
	hasError := false

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range s.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// WARN to avoid alerting noise; the orchestrator will retry.
				s.logger.Warn("health probe failed",
					slog.String("component", c.Name()),
					slog.String("error", err.Error()),
				)
				statusMap[c.Name()] = fmt.Sprintf("down: %v", err)
				hasError = true
			} else {
				statusMap[c.Name()] = "up"
			}
		}(checker)
	}

	wg.Wait()

	w.Header().Set("Content-Type", "application/json")
	if hasError {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	// The JSON body is for human debugging; orchestrators only read the
	// status code, so the encoder error is deliberately ignored.
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": statusMap,
	})
}
