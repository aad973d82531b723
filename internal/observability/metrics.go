package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps in-memory request and error counters. Keys are built from the
// route pattern (e.g. /incidencias/:id), not the raw path, so id-carrying
// routes do not fan out into unbounded label sets.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
}

// NewMetrics initializes counter storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments the counter for a handled request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := counterKey(route, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments the counter for a request that ended in a domain
// error, keyed by its stable error code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	key := counterKey(route, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

func counterKey(route, method, outcome string) string {
	return route + "|" + method + "|" + outcome
}
