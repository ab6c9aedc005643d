package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/storage"
	"github.com/yndnr/nocsrf-go/internal/storage/memory"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
	"github.com/yndnr/nocsrf-go/pkg/crypto/adaptive"
)

// SessionCounts are the store sizes each benchmark preloads.
var SessionCounts = []int{1000, 10000}

// backend opens a fresh repository.
type backend struct {
	name string
	open func(b *testing.B) service.SessionRepository
}

var backends = []backend{
	{name: "memory", open: func(*testing.B) service.SessionRepository { return memory.New() }},
	{name: "badger", open: func(b *testing.B) service.SessionRepository { return openBadger(b, false) }},
	{name: "badger_sealed", open: func(b *testing.B) service.SessionRepository { return openBadger(b, true) }},
}

func openBadger(b *testing.B, sealed bool) service.SessionRepository {
	b.Helper()
	engine, err := storage.OpenBadger(storage.DefaultBadgerConfig(b.TempDir()), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		b.Fatalf("OpenBadger() error = %v", err)
	}
	b.Cleanup(func() { _ = engine.Close() })

	var opts []storage.SessionStoreOption
	if sealed {
		key, err := adaptive.DeriveKey([]byte("benchmark-secret-value"), nil, "bench")
		if err != nil {
			b.Fatal(err)
		}
		c, err := adaptive.New(key)
		if err != nil {
			b.Fatal(err)
		}
		opts = append(opts, storage.WithCipher(c))
	}
	return storage.NewSessionStore(engine, opts...)
}

func newService(repo service.SessionRepository) *service.SessionService {
	return service.NewSessionService(repo, &service.SessionServiceConfig{
		TTL:             time.Hour,
		MaxWriteRetries: 5,
	})
}

func guardConfig() *service.Config {
	cfg := service.DefaultConfig()
	cfg.Logger = logger.Discard()
	return cfg
}

// prefill stores count sessions, each already holding a CSRF key.
func prefill(b *testing.B, repo service.SessionRepository, count int) []string {
	b.Helper()
	ctx := context.Background()
	ids := make([]string, count)
	for i := range ids {
		sess, err := domain.NewSession()
		if err != nil {
			b.Fatal(err)
		}
		sess.IPAddress = "192.0.2.1"
		sess.UserAgent = "BenchmarkClient/1.0"
		sess.Set(service.DefaultKeyVariable, fmt.Sprintf("%064x", i))
		sess.SetExpiration(time.Hour)
		if err := repo.Create(ctx, sess); err != nil {
			b.Fatalf("Create() error = %v", err)
		}
		ids[i] = sess.ID
	}
	return ids
}

// runMatrix runs fn for every backend and preload size.
func runMatrix(b *testing.B, fn func(b *testing.B, svc *service.SessionService, ids []string)) {
	for _, be := range backends {
		for _, count := range SessionCounts {
			b.Run(fmt.Sprintf("%s/sessions_%d", be.name, count), func(b *testing.B) {
				repo := be.open(b)
				ids := prefill(b, repo, count)
				svc := newService(repo)

				b.ResetTimer()
				b.ReportAllocs()
				fn(b, svc, ids)
				b.StopTimer()
				reportMemory(b)
			})
		}
	}
}

func reportMemory(b *testing.B) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), "heap_MB")
}
