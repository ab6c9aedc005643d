package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrKeyNotFound is returned by Get for absent or expired keys.
	ErrKeyNotFound = errors.New("storage: key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: engine closed")
)

// Stats reports on-disk size and GC activity.
type Stats struct {
	LSMSize      int64
	ValueLogSize int64
	LastGC       time.Time
	GCRuns       uint64
}

// TotalSize is LSMSize plus ValueLogSize.
func (s Stats) TotalSize() int64 { return s.LSMSize + s.ValueLogSize }

// BadgerEngine wraps a Badger database with a background GC loop.
type BadgerEngine struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGC atomic.Int64
	gcRuns atomic.Uint64

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// OpenBadger opens (or creates) the database described by cfg.
func OpenBadger(cfg BadgerConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger")

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(&badgerLogger{logger: logger}).
		WithSyncWrites(cfg.SyncWrites).
		WithDetectConflicts(true)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if cfg.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSize)
	}
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", cfg.Dir, err)
	}

	e := &BadgerEngine{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go e.gcLoop()

	logger.Info("badger opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)
	return e, nil
}

// Get returns a copy of the value stored under key.
func (e *BadgerEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := e.View(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// Set stores value under key. A positive ttl makes Badger drop the entry
// once it elapses.
func (e *BadgerEngine) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	return e.Update(ctx, func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (e *BadgerEngine) Delete(ctx context.Context, key []byte) error {
	return e.Update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan calls fn for every live key under prefix until fn returns false.
// Key and value are copies and may be retained.
func (e *BadgerEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return e.View(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

// CountPrefix counts live keys under prefix without reading values.
func (e *BadgerEngine) CountPrefix(ctx context.Context, prefix []byte) (int, error) {
	n := 0
	err := e.View(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// View runs fn in a read-only transaction.
func (e *BadgerEngine) View(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := e.usable(ctx); err != nil {
		return err
	}
	return e.db.View(fn)
}

// Update runs fn in a read-write transaction. Concurrent transactions that
// touched the same keys fail with badger.ErrConflict.
func (e *BadgerEngine) Update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := e.usable(ctx); err != nil {
		return err
	}
	return e.db.Update(fn)
}

func (e *BadgerEngine) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// GC rewrites value log files until Badger reports nothing left to reclaim.
// It returns the number of files rewritten.
func (e *BadgerEngine) GC(ctx context.Context) (int, error) {
	if e.cfg.InMemory {
		return 0, nil
	}
	start := time.Now()
	rewrites := 0
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return rewrites, fmt.Errorf("badger: gc: %w", err)
		}
		rewrites++
	}

	e.lastGC.Store(time.Now().UnixMilli())
	e.gcRuns.Add(1)
	e.logger.Debug("value log gc finished",
		"rewrites", rewrites,
		"elapsed", time.Since(start))
	return rewrites, ctx.Err()
}

// Stats returns current database size and GC counters.
func (e *BadgerEngine) Stats() Stats {
	lsm, vlog := e.db.Size()
	s := Stats{
		LSMSize:      lsm,
		ValueLogSize: vlog,
		GCRuns:       e.gcRuns.Load(),
	}
	if ms := e.lastGC.Load(); ms > 0 {
		s.LastGC = time.UnixMilli(ms)
	}
	return s
}

// Close stops the GC loop and closes the database. It is safe to call twice.
func (e *BadgerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.stopCh)
		<-e.doneCh
		if cerr := e.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close: %w", cerr)
			return
		}
		e.logger.Info("badger closed")
	})
	return err
}

// RegisterMetrics exports size and GC gauges. Values are read at scrape time.
func (e *BadgerEngine) RegisterMetrics(reg prometheus.Registerer) error {
	const ns, sub = "nocsrf", "badger"
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "lsm_size_bytes",
			Help: "Size of the Badger LSM tree in bytes.",
		}, func() float64 { return float64(e.Stats().LSMSize) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "value_log_size_bytes",
			Help: "Size of the Badger value log in bytes.",
		}, func() float64 { return float64(e.Stats().ValueLogSize) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "last_gc_timestamp_seconds",
			Help: "Unix time of the last value log GC pass.",
		}, func() float64 { return float64(e.lastGC.Load()) / 1000 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "gc_runs_total",
			Help: "Value log GC passes completed.",
		}, func() float64 { return float64(e.gcRuns.Load()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("badger: register metrics: %w", err)
		}
	}
	return nil
}

func (e *BadgerEngine) gcLoop() {
	defer close(e.doneCh)
	if e.cfg.GCInterval <= 0 || e.cfg.InMemory {
		<-e.stopCh
		return
	}

	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.GCInterval)
			if _, err := e.GC(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				e.logger.Error("value log gc failed", "error", err)
			}
			cancel()
		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger routes Badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
