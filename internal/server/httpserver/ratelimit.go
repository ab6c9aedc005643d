package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/nocsrf-go/internal/core/domain"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver/handler"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
)

// DefaultLimiterIdle is how long an unused per-client limiter is kept.
const DefaultLimiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterRegistry holds one token bucket per client IP.
type LimiterRegistry struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	lastSweep time.Time
}

// NewLimiterRegistry creates a registry allowing perSecond requests per
// client with the given burst. A burst below one is raised to one.
func NewLimiterRegistry(perSecond float64, burst int) *LimiterRegistry {
	if burst < 1 {
		burst = 1
	}
	return &LimiterRegistry{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     DefaultLimiterIdle,
		now:      time.Now,
		limiters: make(map[string]*clientLimiter),
	}
}

// Allow reports whether client may proceed now. When it may not, the
// returned duration is the wait until the next token.
func (r *LimiterRegistry) Allow(client string) (bool, time.Duration) {
	now := r.now()
	lim := r.get(client, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked clients.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *LimiterRegistry) get(client string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= r.idle {
		for k, cl := range r.limiters {
			if now.Sub(cl.lastSeen) >= r.idle {
				delete(r.limiters, k)
			}
		}
		r.lastSweep = now
	}

	cl, ok := r.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit rejects clients that exceed their token bucket with 429.
func RateLimit(reg *LimiterRegistry, metrics *metric.Registry, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := reg.Allow(ClientIP(r, trustProxy))
			if !ok {
				metrics.RequestRateLimited()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				handler.WriteDomainError(w, r, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
