package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	loginCount   map[string]int64
	loginElapsed map[string]time.Duration
	forcedCount  int64
	dropped      int64
}

// LoginStats summarizes outcomes for one login status.
type LoginStats struct {
	Count        int64   `json:"count"`
	AvgElapsedMS float64 `json:"avg_elapsed_ms"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests map[string]int64      `json:"requests"`
	Errors   map[string]int64      `json:"errors"`
	Logins   map[string]LoginStats `json:"logins"`
	Forced   int64                 `json:"forced"`
	Dropped  int64                 `json:"dropped_events"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		loginCount:   make(map[string]int64),
		loginElapsed: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordLoginOutcome counts a settled login and how long it took.
func (m *Metrics) RecordLoginOutcome(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginCount[status]++
	m.loginElapsed[status] += elapsed
}

// RecordLoginForced counts a watchdog expiry.
func (m *Metrics) RecordLoginForced() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forcedCount++
}

// RecordDroppedEvent counts an audit event that could not be queued.
func (m *Metrics) RecordDroppedEvent() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Snapshot{
		Requests: make(map[string]int64, len(m.requestCount)),
		Errors:   make(map[string]int64, len(m.errorCount)),
		Logins:   make(map[string]LoginStats, len(m.loginCount)),
		Forced:   m.forcedCount,
		Dropped:  m.dropped,
	}
	for k, v := range m.requestCount {
		out.Requests[k] = v
	}
	for k, v := range m.errorCount {
		out.Errors[k] = v
	}
	for status, n := range m.loginCount {
		stats := LoginStats{Count: n}
		if n > 0 {
			stats.AvgElapsedMS = float64(m.loginElapsed[status].Milliseconds()) / float64(n)
		}
		out.Logins[status] = stats
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
