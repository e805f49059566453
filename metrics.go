package cotask

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics for a scheduler, collected when the
// scheduler is created with WithMetrics(true).
//
// Thread Safety: all methods are safe from any goroutine; the scheduler
// updates counters from its own context, while snapshots may be read from a
// monitoring goroutine.
type Metrics struct {
	tasksCreated  atomic.Uint64
	tasksFinished atomic.Uint64
	switches      atomic.Uint64
	timerFires    atomic.Uint64
	yields        atomic.Uint64
	posts         atomic.Uint64

	// lateness tracks how far past its deadline each timer fired, via the
	// P-Square streaming estimator.
	latenessMu sync.Mutex
	lateness   *pSquareMultiQuantile

	// runq tracks run-queue depth at task creation.
	runqMu         sync.Mutex
	runqCurrent    int
	runqMax        int
	runqAvg        float64
	runqAvgWarm    bool
	mailboxCurrent int
	mailboxMax     int

	// switchRate tracks context switches per second over a rolling window.
	switchRate *rateCounter
}

func newMetrics() *Metrics {
	return &Metrics{
		lateness:   newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99),
		switchRate: newRateCounter(10*time.Second, 100*time.Millisecond),
	}
}

func (m *Metrics) taskCreated(runqDepth int) {
	m.tasksCreated.Add(1)
	m.runqMu.Lock()
	m.runqCurrent = runqDepth
	if runqDepth > m.runqMax {
		m.runqMax = runqDepth
	}
	// Exponential moving average, alpha=0.1, warm-started on the first
	// observation.
	if !m.runqAvgWarm {
		m.runqAvg = float64(runqDepth)
		m.runqAvgWarm = true
	} else {
		m.runqAvg = 0.9*m.runqAvg + 0.1*float64(runqDepth)
	}
	m.runqMu.Unlock()
}

func (m *Metrics) taskFinished() {
	m.tasksFinished.Add(1)
}

func (m *Metrics) switched() {
	m.switches.Add(1)
	m.switchRate.Increment()
}

func (m *Metrics) yielded() {
	m.yields.Add(1)
}

func (m *Metrics) posted(depth int) {
	m.posts.Add(1)
	m.runqMu.Lock()
	m.mailboxCurrent = depth
	if depth > m.mailboxMax {
		m.mailboxMax = depth
	}
	m.runqMu.Unlock()
}

func (m *Metrics) timerFired(late time.Duration) {
	m.timerFires.Add(1)
	if late < 0 {
		late = 0
	}
	m.latenessMu.Lock()
	m.lateness.Update(float64(late))
	m.latenessMu.Unlock()
}

// LatencySnapshot is a point-in-time view of a latency distribution.
type LatencySnapshot struct {
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Mean  time.Duration
	Count int
}

// QueueSnapshot is a point-in-time view of queue depth statistics.
type QueueSnapshot struct {
	Avg     float64
	Current int
	Max     int
}

// MetricsSnapshot is a point-in-time copy of all collected statistics.
type MetricsSnapshot struct {
	TasksCreated  uint64
	TasksFinished uint64
	Switches      uint64
	TimerFires    uint64
	Yields        uint64
	Posts         uint64

	// SwitchesPerSecond is the context-switch rate over the rolling window.
	SwitchesPerSecond float64

	// TimerLateness is the distribution of how far past its deadline each
	// timer fired.
	TimerLateness LatencySnapshot

	// RunQueue is run-queue depth sampled at task creation.
	RunQueue QueueSnapshot

	// Mailbox is mailbox depth sampled at each Post.
	Mailbox QueueSnapshot
}

// Snapshot returns a consistent copy of the collected statistics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TasksCreated:      m.tasksCreated.Load(),
		TasksFinished:     m.tasksFinished.Load(),
		Switches:          m.switches.Load(),
		TimerFires:        m.timerFires.Load(),
		Yields:            m.yields.Load(),
		Posts:             m.posts.Load(),
		SwitchesPerSecond: m.switchRate.Rate(),
	}

	m.latenessMu.Lock()
	snap.TimerLateness = LatencySnapshot{
		P50:   time.Duration(m.lateness.Quantile(0)),
		P90:   time.Duration(m.lateness.Quantile(1)),
		P95:   time.Duration(m.lateness.Quantile(2)),
		P99:   time.Duration(m.lateness.Quantile(3)),
		Max:   time.Duration(m.lateness.Max()),
		Mean:  time.Duration(m.lateness.Mean()),
		Count: m.lateness.Count(),
	}
	m.latenessMu.Unlock()

	m.runqMu.Lock()
	snap.RunQueue = QueueSnapshot{
		Current: m.runqCurrent,
		Max:     m.runqMax,
		Avg:     m.runqAvg,
	}
	snap.Mailbox = QueueSnapshot{
		Current: m.mailboxCurrent,
		Max:     m.mailboxMax,
	}
	m.runqMu.Unlock()

	return snap
}

// rateCounter tracks events per second with a rolling window of fixed-size
// buckets. TPS is 0 until the window begins to fill; after warmup it
// reflects the average rate over the monitored duration.
//
// Thread Safety: all methods are thread-safe.
type rateCounter struct {
	mu           sync.Mutex
	lastRotation time.Time
	buckets      []int64
	bucketSize   time.Duration
}

func newRateCounter(windowSize, bucketSize time.Duration) *rateCounter {
	if windowSize <= 0 || bucketSize <= 0 || bucketSize > windowSize {
		panic("cotask: invalid rate counter window")
	}
	return &rateCounter{
		buckets:      make([]int64, int(windowSize/bucketSize)),
		bucketSize:   bucketSize,
		lastRotation: time.Now(),
	}
}

// Increment records one event. O(1).
func (t *rateCounter) Increment() {
	t.mu.Lock()
	t.rotateLocked()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

// rotateLocked advances the bucket window to the present.
func (t *rateCounter) rotateLocked() {
	now := time.Now()
	elapsed := now.Sub(t.lastRotation)

	advance := int64(elapsed) / int64(t.bucketSize)
	// A backwards clock jump or an advance past the whole window both mean
	// the window contents are stale: reset and re-anchor.
	if advance < 0 || advance >= int64(len(t.buckets)) {
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.lastRotation = now
		return
	}
	if advance == 0 {
		return
	}

	n := int(advance)
	copy(t.buckets, t.buckets[n:])
	for i := len(t.buckets) - n; i < len(t.buckets); i++ {
		t.buckets[i] = 0
	}
	t.lastRotation = t.lastRotation.Add(time.Duration(n) * t.bucketSize)
}

// Rate returns the current events-per-second over the window.
func (t *rateCounter) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotateLocked()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}
	monitored := float64(len(t.buckets)) * t.bucketSize.Seconds()
	return float64(sum) / monitored
}
