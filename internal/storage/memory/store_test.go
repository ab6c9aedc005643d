package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/core/service"
)

var _ service.SessionRepository = (*Store)(nil)

func newTestSession(t *testing.T, ttl time.Duration) *domain.Session {
	t.Helper()
	s, err := domain.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	s.SetExpiration(ttl)
	return s
}

func TestStore_CreateGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	s := newTestSession(t, time.Hour)
	s.Set("__nocsrf_key", "abc")
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID || got.Get("__nocsrf_key", "") != "abc" {
		t.Errorf("Get() = %+v, want copy of created session", got)
	}

	got.Set("__nocsrf_key", "mutated")
	again, _ := store.Get(ctx, s.ID)
	if v := again.Get("__nocsrf_key", ""); v != "abc" {
		t.Errorf("stored value = %q after mutating returned copy, want %q", v, "abc")
	}
}

func TestStore_CreateErrors(t *testing.T) {
	store := New()
	ctx := context.Background()

	s := newTestSession(t, time.Hour)
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, s); !errors.Is(err, domain.ErrSessionConflict) {
		t.Errorf("Create(duplicate) = %v, want ErrSessionConflict", err)
	}
	if err := store.Create(ctx, nil); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("Create(nil) = %v, want ErrMissingArgument", err)
	}

	bad := newTestSession(t, time.Hour)
	bad.ID = "not-a-session-id"
	if err := store.Create(ctx, bad); !errors.Is(err, domain.ErrSessionValidation) {
		t.Errorf("Create(invalid id) = %v, want ErrSessionValidation", err)
	}
}

func TestStore_GetMissingAndExpired(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Get(ctx, "ncss-01arz3ndektsv4rrffq69g5fav"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get(missing) = %v, want ErrSessionNotFound", err)
	}

	s := newTestSession(t, time.Hour)
	s.ExpiresAt = time.Now().Add(-time.Minute).UnixMilli()
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Get(expired) = %v, want ErrSessionExpired", err)
	}
}

func TestStore_UpdateVersioning(t *testing.T) {
	store := New()
	ctx := context.Background()

	s := newTestSession(t, time.Hour)
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s.Set("k", "v")
	if err := store.Update(ctx, s, 1); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.Version != 2 {
		t.Errorf("caller Version = %d, want 2", s.Version)
	}

	got, _ := store.Get(ctx, s.ID)
	if got.Version != 2 || got.Get("k", "") != "v" {
		t.Errorf("stored = version %d data %v, want version 2 with k=v", got.Version, got.Data)
	}

	if err := store.Update(ctx, s, 1); !errors.Is(err, domain.ErrSessionVersionConflict) {
		t.Errorf("Update(stale) = %v, want ErrSessionVersionConflict", err)
	}

	other := newTestSession(t, time.Hour)
	if err := store.Update(ctx, other, 1); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Update(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_UpdateConcurrentSingleWinner(t *testing.T) {
	store := New()
	ctx := context.Background()

	s := newTestSession(t, time.Hour)
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := s.Clone()
			c.Set("writer", "x")
			if store.Update(ctx, c, 1) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("successful updates = %d, want 1", wins)
	}
}

func TestStore_DeleteAndCount(t *testing.T) {
	store := New(WithShards(4))
	ctx := context.Background()

	a := newTestSession(t, time.Hour)
	b := newTestSession(t, 0)
	for _, s := range []*domain.Session{a, b} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Delete(again) = %v, want ErrSessionNotFound", err)
	}
	if got := store.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	now := time.Now()
	store := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	live := newTestSession(t, time.Hour)
	forever := newTestSession(t, 0)
	stale := newTestSession(t, time.Hour)
	stale.ExpiresAt = now.Add(-time.Second).UnixMilli()

	for _, s := range []*domain.Session{live, forever, stale} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}
	if _, err := store.Get(ctx, stale.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get(swept) = %v, want ErrSessionNotFound", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.DeleteExpired(cctx); !errors.Is(err, context.Canceled) {
		t.Errorf("DeleteExpired(cancelled) = %v, want context.Canceled", err)
	}
}
