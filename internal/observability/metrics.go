package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps in-memory counters for HTTP traffic and issue lifecycle
// outcomes. Lifecycle counters are fed from the event dispatcher.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	transitionCount map[string]int64
	overdueFlagged  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
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

// RecordTransition counts a status change by its from/to pair, split by
// whether the issue was past its SLA deadline at the time.
func (m *Metrics) RecordTransition(from, to string, overdue bool) {
	if m == nil {
		return
	}
	key := from + ">" + to + "|" + strconv.FormatBool(overdue)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[key]++
}

// RecordOverdueFlagged counts issues the sweep marked past deadline.
func (m *Metrics) RecordOverdueFlagged() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overdueFlagged++
}

// TransitionCount returns the counter for one from/to/overdue combination.
func (m *Metrics) TransitionCount(from, to string, overdue bool) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionCount[from+">"+to+"|"+strconv.FormatBool(overdue)]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
