package ingestion

import (
	"sync"
	"time"

	"govreporter/pkg/logger"
)

// movingWindow is the number of recent document durations the throughput
// estimate averages over.
const movingWindow = 50

// monitor tracks run progress across the discovery, worker and flusher
// goroutines.
type monitor struct {
	mu         sync.Mutex
	log        *logger.Logger
	start      time.Time
	total      int
	completed  int
	failed     int
	skipped    int
	durations  []time.Duration
	nextInsert int
}

func newMonitor(log *logger.Logger) *monitor {
	return &monitor{log: log, start: time.Now()}
}

func (m *monitor) discovered() {
	m.mu.Lock()
	m.total++
	m.mu.Unlock()
}

func (m *monitor) skip() {
	m.mu.Lock()
	m.skipped++
	m.mu.Unlock()
}

func (m *monitor) fail() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
}

func (m *monitor) complete(d time.Duration) {
	m.mu.Lock()
	m.completed++
	if len(m.durations) < movingWindow {
		m.durations = append(m.durations, d)
	} else {
		m.durations[m.nextInsert] = d
		m.nextInsert = (m.nextInsert + 1) % movingWindow
	}
	m.mu.Unlock()
}

// docsPerSec averages the most recent completions. Zero until the first
// document lands. Callers hold m.mu.
func (m *monitor) docsPerSec() float64 {
	if len(m.durations) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.durations {
		sum += d
	}
	avg := sum / time.Duration(len(m.durations))
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// logProgress emits one structured progress line; called per flush.
func (m *monitor) logProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := m.completed + m.failed + m.skipped
	fields := map[string]interface{}{
		"total":     m.total,
		"completed": m.completed,
		"failed":    m.failed,
		"skipped":   m.skipped,
		"elapsed":   time.Since(m.start).Round(time.Second).String(),
	}
	if m.total > 0 {
		fields["percent"] = float64(done) * 100 / float64(m.total)
	}
	if rate := m.docsPerSec(); rate > 0 {
		fields["docs_per_sec"] = rate
		if remaining := m.total - done; remaining > 0 {
			fields["eta"] = time.Duration(float64(remaining) / rate * float64(time.Second)).Round(time.Second).String()
		}
	}
	m.log.WithPayload(fields).Info("ingestion progress")
}

func (m *monitor) summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Summary{
		Discovered: m.total,
		Completed:  m.completed,
		Failed:     m.failed,
		Skipped:    m.skipped,
	}
}
