package storage

import (
	"errors"
	"time"
)

// BadgerConfig tunes the embedded Badger database.
type BadgerConfig struct {
	// Dir holds the LSM tree and value log. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// GCInterval is the period of the value-log GC loop. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is passed to RunValueLogGC; a file is rewritten when at
	// least this fraction of it is stale.
	GCDiscardRatio float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// ValueLogFileSize caps each value log file. Badger accepts 1MB to 2GB.
	ValueLogFileSize int64

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultBadgerConfig returns settings suitable for a session store of a
// few hundred thousand entries.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		CacheSize:        64 << 20,
		ValueLogFileSize: 256 << 20,
		SyncWrites:       false,
	}
}

// Validate checks the configuration before the database is opened.
func (c BadgerConfig) Validate() error {
	if c.Dir == "" && !c.InMemory {
		return errors.New("badger: dir is required")
	}
	if c.GCInterval < 0 {
		return errors.New("badger: gc interval must not be negative")
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return errors.New("badger: gc discard ratio must be in (0, 1)")
	}
	if c.ValueLogFileSize != 0 && (c.ValueLogFileSize < 1<<20 || c.ValueLogFileSize >= 2<<30) {
		return errors.New("badger: value log file size must be in [1MB, 2GB)")
	}
	return nil
}
