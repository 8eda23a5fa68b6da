package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status    string `json:"status" example:"ok" doc:"ok or error"`
	LatencyMS int64  `json:"latency_ms" doc:"Check latency in milliseconds"`
	Error     string `json:"error,omitempty" doc:"Failure detail"`
}

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status string                 `json:"status" example:"ok" doc:"Health status"`
	Checks map[string]CheckResult `json:"checks,omitempty" doc:"Dependency checks"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Status int
	Body   HealthBody
}

const checkTimeout = 5 * time.Second

func (s *Server) registerHealth() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the server and, when enabled, of the media store and catalog.",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{Status: http.StatusOK, Body: HealthBody{Status: "ok"}}
		if !s.cfg.Observability.HealthCheck {
			return out, nil
		}
		checks := s.runChecks(ctx)
		if len(checks) > 0 {
			out.Body.Checks = checks
		}
		for _, c := range checks {
			if c.Status != "ok" {
				out.Status = http.StatusServiceUnavailable
				out.Body.Status = "degraded"
			}
		}
		return out, nil
	})

	// Huma registers one method per operation.
	s.router.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	if s.cfg.Observability.HealthCheck {
		s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		s.router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
			for _, c := range s.runChecks(r.Context()) {
				if c.Status != "ok" {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
			}
			w.WriteHeader(http.StatusOK)
		})
	}
}

func (s *Server) runChecks(ctx context.Context) map[string]CheckResult {
	checks := make(map[string]CheckResult)
	if s.media != nil {
		checks["media"] = runCheck(ctx, s.media.HealthCheck)
	}
	if s.catalog != nil {
		checks["catalog"] = runCheck(ctx, s.catalog.Ping)
	}
	return checks
}

func runCheck(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	res := CheckResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}
