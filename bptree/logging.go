package bptree

import (
	"os"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
)

// newLogger builds the engine's default structured logger. Callers that
// embed this package in a larger application should prefer WithLogger
// to route engine diagnostics through their own hclog.Logger instead.
func newLogger(path string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "bptree",
		Level: hclog.Warn,
		Output: os.Stderr,
	}).With("db", path)
}

// WithLogger overrides the logger used for open/close/commit
// diagnostics.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// WithMetricSink routes the engine's counters and samples to sink
// instead of the default in-memory one.
func WithMetricSink(sink metrics.MetricSink) Option {
	return func(c *Config) { c.sink = sink }
}
