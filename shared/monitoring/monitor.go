package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Monitor tracks the outcome of scheduled runs for health reporting.
type Monitor struct {
	mu             sync.Mutex
	totalRuns      int
	failedRuns     int
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRuns++
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary

	log.Printf("Run completed - %s (took %v)", summary, duration)
}

func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	// Partial failures don't flip the health status
	log.Printf("Warning: partial failure: %v (took %v)", err, duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRuns++
	m.failedRuns++
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()

	log.Printf("CRITICAL FAILURE: %v (took %v)", err, duration)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRunTime.IsZero() {
		return true // no runs yet
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRunTime.IsZero() {
		return "no runs yet"
	}

	state := "ok"
	if !m.lastRunSuccess {
		state = "failed"
	}
	return fmt.Sprintf("last run %s at %s (%d runs, %d failed): %s",
		state, m.lastRunTime.Format("Jan 2 15:04"), m.totalRuns, m.failedRuns, m.lastSummary)
}
