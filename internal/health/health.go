// Package health serves the liveness and metrics endpoint.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// staleAfter is how long without processed activity the bot is
// reported unhealthy.
const staleAfter = 5 * time.Minute

// Stats tracks process counters exposed on /metrics.
type Stats struct {
	mu sync.Mutex

	startTime    time.Time
	lastActivity time.Time

	requestsProcessed int64
	errorsCount       int64
	lastError         string
}

// NewStats creates a stats tracker anchored at the current time.
func NewStats() *Stats {
	now := time.Now()
	return &Stats{startTime: now, lastActivity: now}
}

// Touch records inbound activity.
func (s *Stats) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// RequestProcessed records one successfully completed edit.
func (s *Stats) RequestProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsProcessed++
	s.lastActivity = time.Now()
}

// Failure records a failed edit and its message.
func (s *Stats) Failure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorsCount++
	s.lastError = msg
	s.lastActivity = time.Now()
}

type snapshot struct {
	UptimeSeconds     int64  `json:"uptime_seconds"`
	RequestsProcessed int64  `json:"requests_processed"`
	ErrorsCount       int64  `json:"errors_count"`
	LastError         string `json:"last_error,omitempty"`
}

func (s *Stats) snapshot() (snapshot, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return snapshot{
		UptimeSeconds:     int64(time.Since(s.startTime).Seconds()),
		RequestsProcessed: s.requestsProcessed,
		ErrorsCount:       s.errorsCount,
		LastError:         s.lastError,
	}, time.Since(s.lastActivity)
}

// Handler returns the mux serving /health and /metrics.
func Handler(stats *Stats) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		snap, idle := stats.snapshot()

		status := "healthy"
		code := http.StatusOK
		if idle > staleAfter {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":               status,
			"uptime":               snap.UptimeSeconds,
			"seconds_since_active": int64(idle.Seconds()),
			"stats":                snap,
		})
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		snap, _ := stats.snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	})

	return mux
}
