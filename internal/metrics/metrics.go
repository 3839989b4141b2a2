package metrics

import (
	"sync"
	"time"
)

// Metrics collects counters and timings for one or more pipeline runs.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched       int64
	FeedsFailed        int64
	ArticlesFetched    int64
	ArticlesEnriched   int64
	DuplicatesFiltered int64
	AICallsSucceeded   int64
	AICallsFailed      int64

	// Timings
	LastRunDuration    time.Duration
	AverageRunDuration time.Duration
	totalRunDuration   time.Duration
	runCount           int64

	// Status
	LastRunTime time.Time
}

var Global = &Metrics{}

func (m *Metrics) IncrementFeedsFetched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFetched++
}

func (m *Metrics) IncrementFeedsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedsFailed++
}

func (m *Metrics) AddArticlesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) AddArticlesEnriched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesEnriched += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementAICallsSucceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AICallsSucceeded++
}

func (m *Metrics) IncrementAICallsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AICallsFailed++
}

// RecordRun stores the duration of a completed pipeline run and updates the
// rolling average.
func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.totalRunDuration += duration
	m.runCount++
	m.AverageRunDuration = m.totalRunDuration / time.Duration(m.runCount)
	m.LastRunTime = time.Now()
}

// Snapshot returns current values for display or logging.
func (m *Metrics) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"feeds_fetched":        m.FeedsFetched,
		"feeds_failed":         m.FeedsFailed,
		"articles_fetched":     m.ArticlesFetched,
		"articles_enriched":    m.ArticlesEnriched,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"ai_calls_succeeded":   m.AICallsSucceeded,
		"ai_calls_failed":      m.AICallsFailed,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"avg_run_duration_ms":  m.AverageRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
	}
}
