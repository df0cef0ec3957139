package bptree

import (
	"fmt"
	"io"
	"os"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

// Order bounds every node's record count (spec: a single compile-time
// constant). After any committed operation a non-root node holds at
// least Order/2 records; a leaf holds at most Order-1, while an
// internal node splits only above Order and so may hold Order.
const Order = 32

// MinRecords is the floor(Order/2) underflow threshold used by remove.
const MinRecords = Order / 2

// Config is runtime configuration for an open database, loadable from
// YAML the way the teacher's pkg/config.Config is.
type Config struct {
	CacheSize    int  `yaml:"cache_size"`
	SyncOnCommit bool `yaml:"sync_on_commit"`

	// logger and sink are process-local collaborators; they are never
	// serialized and are only ever set via functional Options.
	logger hclog.Logger
	sink   metrics.MetricSink
}

// DefaultConfig matches spec.md's stated defaults: a 32-entry LRU and
// synchronous commit durability.
func DefaultConfig() Config {
	return Config{CacheSize: 32, SyncOnCommit: true}
}

func (c Config) withDefaults() Config {
	if c.CacheSize <= 0 {
		c.CacheSize = 32
	}
	return c
}

// LoadConfig reads a YAML config file from path. If path is empty or the
// file does not exist, returns DefaultConfig and nil error — like the
// teacher's pkg/config.Load, except that the fallback is DefaultConfig
// rather than a zero Config.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close config file %q: %v\n", path, closeErr)
		}
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg.withDefaults(), nil
}

// Option configures a database at Open time.
type Option func(*Config)

// WithCacheSize overrides the node cache's LRU capacity.
func WithCacheSize(n int) Option {
	return func(c *Config) { c.CacheSize = n }
}

// WithSyncOnCommit controls whether commit calls fsync on the append
// files after each durability-relevant write batch.
func WithSyncOnCommit(sync bool) Option {
	return func(c *Config) { c.SyncOnCommit = sync }
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}
