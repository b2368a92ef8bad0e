package mainthread

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// for testing purposes
var timeNow = time.Now

// Metrics is a point-in-time snapshot of dispatcher statistics, see
// Dispatcher.Metrics.
//
// The counters are always collected. Queue, Latency and TPS are only
// populated if the dispatcher was created using WithMetrics(true).
type Metrics struct {
	// Latency is the distribution of queue wait time, from Submit to the
	// start of execution.
	Latency LatencyStats

	// Queue is the queue depth, sampled at each non-idle tick.
	Queue QueueStats

	// TPS is the number of actions executed per second, over a rolling
	// window.
	TPS float64

	Submitted      uint64
	Executed       uint64
	Dropped        uint64
	ActionPanics   uint64
	CallbackPanics uint64
	Ticks          uint64
	IdleTicks      uint64
	SuppressedLogs uint64
}

// LatencyStats are percentiles computed by LatencyMetrics.Sample.
type LatencyStats struct {
	P50     time.Duration
	P90     time.Duration
	P95     time.Duration
	P99     time.Duration
	Max     time.Duration
	Mean    time.Duration
	Samples int
}

// QueueStats summarises queue depth observations.
type QueueStats struct {
	Current int
	Max     int
	// Avg is an exponential moving average with alpha=0.1, warm started
	// from the first observation.
	Avg float64
}

// counters are the always-on statistics.
type counters struct {
	submitted      atomic.Uint64
	executed       atomic.Uint64
	dropped        atomic.Uint64
	actionPanics   atomic.Uint64
	callbackPanics atomic.Uint64
	ticks          atomic.Uint64
	idleTicks      atomic.Uint64
}

// LatencyMetrics tracks latency distribution with percentiles, over a
// rolling buffer of the most recent samples.
//
// Thread Safety: All methods are safe for concurrent use.
type LatencyMetrics struct {
	samples     [sampleSize]time.Duration
	sum         time.Duration
	sampleIdx   int
	sampleCount int
	mu          sync.Mutex
}

// sampleSize is the maximum number of latency samples to retain.
const sampleSize = 1000

// Record records a latency sample.
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// If buffer is full, subtract the old sample that we're replacing
	if l.sampleCount >= sampleSize {
		l.sum -= l.samples[l.sampleIdx]
	}

	l.samples[l.sampleIdx] = duration
	l.sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample computes percentiles from the collected samples.
//
// Sorting is O(n log n) over at most sampleSize values, so callers that
// poll should do so at a human time scale, e.g. once per second.
func (l *LatencyMetrics) Sample() LatencyStats {
	l.mu.Lock()
	count := l.sampleCount
	if count == 0 {
		l.mu.Unlock()
		return LatencyStats{}
	}
	sorted := make([]time.Duration, count)
	copy(sorted, l.samples[:count])
	sum := l.sum
	l.mu.Unlock()

	slices.Sort(sorted)

	return LatencyStats{
		P50:     sorted[percentileIndex(count, 50)],
		P90:     sorted[percentileIndex(count, 90)],
		P95:     sorted[percentileIndex(count, 95)],
		P99:     sorted[percentileIndex(count, 99)],
		Max:     sorted[count-1],
		Mean:    sum / time.Duration(count),
		Samples: count,
	}
}

// percentileIndex computes the index for a given percentile (0-100).
func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// QueueMetrics tracks queue depth statistics.
//
// Thread Safety: All methods are safe for concurrent use.
type QueueMetrics struct {
	stats          QueueStats
	mu             sync.Mutex
	emaInitialized bool
}

// Update records an observed queue depth.
func (q *QueueMetrics) Update(depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.Current = depth
	if depth > q.stats.Max {
		q.stats.Max = depth
	}
	if !q.emaInitialized {
		q.stats.Avg = float64(depth)
		q.emaInitialized = true
	} else {
		q.stats.Avg = 0.9*q.stats.Avg + 0.1*float64(depth)
	}
}

// Snapshot returns the current statistics.
func (q *QueueMetrics) Snapshot() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// TPSCounter tracks events per second over a rolling window of buckets.
//
// At startup, TPS reads low until the window fills. With a 10s window and
// 100ms buckets, the result is granular to 0.1 TPS.
//
// Thread Safety: All methods are safe for concurrent use.
type TPSCounter struct {
	lastRotation time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a new TPS counter.
// windowSize is the time window for TPS calculation (e.g., 10*time.Second).
// bucketSize is the granularity of the rolling window (e.g., 100*time.Millisecond).
// Panics if either is not positive, or bucketSize exceeds windowSize.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	if windowSize <= 0 {
		panic("mainthread: windowSize must be positive")
	}
	if bucketSize <= 0 {
		panic("mainthread: bucketSize must be positive")
	}
	if bucketSize > windowSize {
		panic("mainthread: bucketSize must not exceed windowSize")
	}
	bucketCount := int(windowSize / bucketSize)
	return &TPSCounter{
		lastRotation: timeNow(),
		buckets:      make([]int64, bucketCount),
		bucketSize:   bucketSize,
		windowSize:   windowSize,
	}
}

// Add records n events.
func (t *TPSCounter) Add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotate()
	t.buckets[len(t.buckets)-1] += int64(n)
}

// rotate advances the buckets if time has passed. The caller must hold mu.
func (t *TPSCounter) rotate() {
	now := timeNow()
	bucketsToAdvance := int(now.Sub(t.lastRotation) / t.bucketSize)

	if bucketsToAdvance >= len(t.buckets) {
		clear(t.buckets)
		t.lastRotation = now
		return
	}

	if bucketsToAdvance > 0 {
		// Shift buckets left, filling with zeros
		copy(t.buckets, t.buckets[bucketsToAdvance:])
		clear(t.buckets[len(t.buckets)-bucketsToAdvance:])
		t.lastRotation = t.lastRotation.Add(time.Duration(bucketsToAdvance) * t.bucketSize)
	}
}

// TPS returns the current events per second.
func (t *TPSCounter) TPS() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotate()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}
	return float64(sum) / t.windowSize.Seconds()
}
