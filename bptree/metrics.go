package bptree

import (
	"time"

	"github.com/armon/go-metrics"
)

// engineMetrics wraps the armon/go-metrics sink the database was opened
// with (or an in-memory default) and names every counter/sample used by
// the commit path and node cache.
type engineMetrics struct {
	m *metrics.Metrics
}

func newEngineMetrics(sink metrics.MetricSink, path string) *engineMetrics {
	if sink == nil {
		inm := metrics.NewInmemSink(time.Minute, 5*time.Minute)
		sink = inm
	}
	cfg := metrics.DefaultConfig("bptree")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	m, err := metrics.New(cfg, sink)
	if err != nil {
		// metrics.New only fails on a nil sink, which newEngineMetrics
		// never passes; fall back to a no-op global rather than panic.
		m = metrics.Default()
	}
	return &engineMetrics{m: m}
}

func (e *engineMetrics) cacheHit()  { e.m.IncrCounter([]string{"cache", "hit"}, 1) }
func (e *engineMetrics) cacheMiss() { e.m.IncrCounter([]string{"cache", "miss"}, 1) }
func (e *engineMetrics) cacheEvict() { e.m.IncrCounter([]string{"cache", "evict"}, 1) }

func (e *engineMetrics) split(kind string)   { e.m.IncrCounter([]string{"split", kind}, 1) }
func (e *engineMetrics) merge(kind string)   { e.m.IncrCounter([]string{"merge", kind}, 1) }
func (e *engineMetrics) redistribute(kind string) {
	e.m.IncrCounter([]string{"redistribute", kind}, 1)
}

func (e *engineMetrics) commit(dirty int, elapsed time.Duration) {
	e.m.IncrCounter([]string{"commit", "count"}, 1)
	e.m.AddSample([]string{"commit", "dirty_nodes"}, float32(dirty))
	e.m.MeasureSince([]string{"commit", "latency"}, time.Now().Add(-elapsed))
}
