package framelock

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"sync/atomic"
)

// lockMetrics holds the counters of one FrameLock. Every lock has its own
// metrics.Set, so several locks (or tests) never collide on metric names.
type lockMetrics struct {
	set *metrics.Set

	framesStarted   *metrics.Counter
	framesCompleted *metrics.Counter
	framesFailed    *metrics.Counter
	payloadBytes    *metrics.Counter
	sinkBytes       *metrics.Counter
	ioErrors        *metrics.Counter
	flushes         *metrics.Counter
	invalidTokens   *metrics.Counter
	acquireWait     *metrics.Histogram

	// read by gauges without taking the lock
	waiters  atomic.Int64
	attached atomic.Bool
}

func newLockMetrics(name string) *lockMetrics {
	set := metrics.NewSet()
	metricName := func(base string) string {
		return fmt.Sprintf(`%s{lock=%q}`, base, name)
	}

	m := &lockMetrics{
		set:             set,
		framesStarted:   set.NewCounter(metricName("dlog_frames_started_total")),
		framesCompleted: set.NewCounter(metricName("dlog_frames_completed_total")),
		framesFailed:    set.NewCounter(metricName("dlog_frames_failed_total")),
		payloadBytes:    set.NewCounter(metricName("dlog_payload_bytes_total")),
		sinkBytes:       set.NewCounter(metricName("dlog_sink_bytes_total")),
		ioErrors:        set.NewCounter(metricName("dlog_sink_errors_total")),
		flushes:         set.NewCounter(metricName("dlog_flushes_total")),
		invalidTokens:   set.NewCounter(metricName("dlog_invalid_tokens_total")),
		acquireWait:     set.NewHistogram(metricName("dlog_acquire_wait_seconds")),
	}

	set.NewGauge(metricName("dlog_waiters"), func() float64 {
		return float64(m.waiters.Load())
	})
	set.NewGauge(metricName("dlog_sink_attached"), func() float64 {
		if m.attached.Load() {
			return 1
		}
		return 0
	})

	return m
}

// Stats is a snapshot of the counters of a FrameLock
type Stats struct {
	FramesStarted   uint64
	FramesCompleted uint64
	FramesFailed    uint64
	PayloadBytes    uint64
	SinkBytes       uint64
	IoErrors        uint64
	Flushes         uint64
	InvalidTokens   uint64
	Waiters         int64
	SinkAttached    bool
}

// Stats returns a snapshot of the lock's counters
func (l *FrameLock) Stats() Stats {
	m := l.metrics
	return Stats{
		FramesStarted:   m.framesStarted.Get(),
		FramesCompleted: m.framesCompleted.Get(),
		FramesFailed:    m.framesFailed.Get(),
		PayloadBytes:    m.payloadBytes.Get(),
		SinkBytes:       m.sinkBytes.Get(),
		IoErrors:        m.ioErrors.Get(),
		Flushes:         m.flushes.Get(),
		InvalidTokens:   m.invalidTokens.Get(),
		Waiters:         m.waiters.Load(),
		SinkAttached:    m.attached.Load(),
	}
}

// WritePrometheus writes the lock's metrics in Prometheus text format to w
func (l *FrameLock) WritePrometheus(w io.Writer) {
	l.metrics.set.WritePrometheus(w)
}
