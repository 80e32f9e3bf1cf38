package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	started      time.Time
	requestCount map[string]int64
	latencyTotal map[string]time.Duration
	errorCount   map[string]int64
}

// RequestStat is one request counter row.
type RequestStat struct {
	Route        string  `json:"route"`
	Method       string  `json:"method"`
	Status       int     `json:"status"`
	Count        int64   `json:"count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// ErrorStat is one error counter row.
type ErrorStat struct {
	Route  string `json:"route"`
	Method string `json:"method"`
	Code   string `json:"code"`
	Count  int64  `json:"count"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	UptimeSeconds int64         `json:"uptime_seconds"`
	Requests      []RequestStat `json:"requests"`
	Errors        []ErrorStat   `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		started:      time.Now(),
		requestCount: make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the counters, sorted by route then method.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Requests: []RequestStat{}, Errors: []ErrorStat{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap.UptimeSeconds = int64(time.Since(m.started).Seconds())
	for key, count := range m.requestCount {
		route, method, status := splitKey(key)
		code, _ := strconv.Atoi(status)
		avg := float64(m.latencyTotal[key].Microseconds()) / float64(count) / 1000
		snap.Requests = append(snap.Requests, RequestStat{Route: route, Method: method, Status: code, Count: count, AvgLatencyMS: avg})
	}
	for key, count := range m.errorCount {
		route, method, code := splitKey(key)
		snap.Errors = append(snap.Errors, ErrorStat{Route: route, Method: method, Code: code, Count: count})
	}
	sort.Slice(snap.Requests, func(i, j int) bool {
		a, b := snap.Requests[i], snap.Requests[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Status < b.Status
	})
	sort.Slice(snap.Errors, func(i, j int) bool {
		a, b := snap.Errors[i], snap.Errors[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Code < b.Code
	})
	return snap
}

func pathKey(path, method, suffix string) string {
	return path + "|" + method + "|" + suffix
}

func splitKey(key string) (string, string, string) {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}
