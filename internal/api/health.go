package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	GitCommit     string                 `json:"git_commit,omitempty"`
	BuildTime     string                 `json:"build_time,omitempty"`
	Uptime        string                 `json:"uptime"`
	SessionID     string                 `json:"session_id"`
	Checks        map[string]HealthCheck `json:"checks"`
	System        SystemInfo             `json:"system"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
	WSClients     int    `json:"ws_clients"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"ledger": s.checkLedger(),
	}
	if s.store != nil {
		checks["store"] = s.checkStore(r.Context())
	}

	status := HealthStatusHealthy
	for _, c := range checks {
		if c.Status != HealthStatusHealthy {
			status = HealthStatusUnhealthy
		}
	}

	info := GetVersionInfo()
	resp := HealthCheckResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: info.EngineVersion,
		GitCommit:     info.GitCommit,
		BuildTime:     info.BuildTime,
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		SessionID:     s.session.ID(),
		Checks:        checks,
		System:        s.systemInfo(),
		RequestID:     middleware.GetReqID(r.Context()),
	}

	code := http.StatusOK
	if status != HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) checkLedger() HealthCheck {
	start := time.Now()
	check := HealthCheck{Status: HealthStatusHealthy, Message: "Balance is non-negative"}
	if s.session.Balance() < 0 {
		check.Status = HealthStatusUnhealthy
		check.Message = "Balance is negative"
	}
	check.LastChecked = time.Now().UTC().Format(time.RFC3339)
	check.Duration = time.Since(start).String()
	return check
}

func (s *Server) checkStore(ctx context.Context) HealthCheck {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	check := HealthCheck{Status: HealthStatusHealthy, Message: "Store is reachable"}
	if err := s.store.Ping(ctx); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = err.Error()
	}
	check.LastChecked = time.Now().UTC().Format(time.RFC3339)
	check.Duration = time.Since(start).String()
	return check
}

func (s *Server) systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAlloc:   m.Alloc,
		GCCycles:      m.NumGC,
		WSClients:     s.hub.Len(),
	}
}
