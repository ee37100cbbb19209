package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	uploads             int
	matchesProcessed    int
	rowsRejected        map[string]int
	standingsRecomputed int
	processingDurations []float64
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		rowsRejected:        make(map[string]int),
		processingDurations: make([]float64, 0),
	}
}

func (m *Mock) IncUploads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
}

func (m *Mock) IncMatchesProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesProcessed++
}

func (m *Mock) IncRowsRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsRejected[reason]++
}

func (m *Mock) IncStandingsRecomputed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.standingsRecomputed++
}

func (m *Mock) ObserveProcessingDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processingDurations = append(m.processingDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Uploads returns the number of times IncUploads was called.
func (m *Mock) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

// MatchesProcessed returns the number of times IncMatchesProcessed was called.
func (m *Mock) MatchesProcessed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesProcessed
}

// RowsRejected returns how often IncRowsRejected was called with reason.
func (m *Mock) RowsRejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowsRejected[reason]
}

// StandingsRecomputed returns the number of times IncStandingsRecomputed was called.
func (m *Mock) StandingsRecomputed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.standingsRecomputed
}

// ProcessingDurations returns every observed duration.
func (m *Mock) ProcessingDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.processingDurations...)
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
