// Package ratelimit enforces per-client request limits for the chat API.
//
// Two independent checks apply to every request: a token bucket that
// absorbs bursts, and a fixed daily quota counted in a QuotaStore so it
// can outlive the process or be shared between replicas.
//
// Information Hiding:
// - Per-client bucket bookkeeping and eviction hidden
// - Quota window arithmetic hidden
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultBurst      = 5
	DefaultMaxClients = 10000
	DefaultIdleTTL    = 10 * time.Minute
	QuotaWindow       = 24 * time.Hour
)

// Reason names why a request was refused.
type Reason string

const (
	ReasonNone  Reason = ""
	ReasonBurst Reason = "rate"
	ReasonQuota Reason = "quota"
)

// Decision is the outcome of Allow.
type Decision struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration
	// Remaining is the quota left in the current window, or -1 when no
	// quota applies.
	Remaining int
}

// Config holds limiter configuration.
type Config struct {
	// RPM is the sustained request rate per client. Zero disables the bucket.
	RPM int

	// Burst is the bucket size.
	Burst int

	// QuotaPerDay caps requests per client per UTC day. Zero disables it.
	QuotaPerDay int

	// Store counts quota usage. Defaults to a MemoryStore.
	Store QuotaStore

	// MaxClients bounds the number of buckets kept at once.
	MaxClients int

	// IdleTTL evicts buckets of clients that stopped sending requests.
	IdleTTL time.Duration

	Now func() time.Time
}

// Limiter decides whether a client's request may proceed.
// It is safe for concurrent use.
type Limiter struct {
	limit   rate.Limit
	burst   int
	quota   int
	store   QuotaStore
	buckets *expirable.LRU[string, *rate.Limiter]
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a limiter. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Store == nil && cfg.QuotaPerDay > 0 {
		cfg.Store = NewMemoryStore()
	}

	limit := rate.Limit(0)
	if cfg.RPM > 0 {
		limit = rate.Limit(float64(cfg.RPM) / 60.0)
	}

	return &Limiter{
		limit:   limit,
		burst:   cfg.Burst,
		quota:   cfg.QuotaPerDay,
		store:   cfg.Store,
		buckets: expirable.NewLRU[string, *rate.Limiter](cfg.MaxClients, nil, cfg.IdleTTL),
		now:     cfg.Now,
		logger:  logger,
	}
}

// Enabled returns true if any check is active.
func (l *Limiter) Enabled() bool {
	return l.limit > 0 || l.quota > 0
}

// Allow records one request from key and reports whether it may proceed.
// An error means the quota store failed; the decision is then to allow.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	if l.limit > 0 {
		bucket := l.bucket(key)
		r := bucket.ReserveN(now, 1)
		if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
			r.CancelAt(now)
			l.logger.Warn("security.rate_limited", "key", key, "retry_after", delay)
			return Decision{Reason: ReasonBurst, RetryAfter: retryAfter(delay), Remaining: -1}, nil
		}
	}

	if l.quota <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	window := WindowStart(now)
	count, err := l.store.Increment(ctx, key, window)
	if err != nil {
		return Decision{Allowed: true, Remaining: -1}, fmt.Errorf("count quota for %s: %w", key, err)
	}
	if count > int64(l.quota) {
		wait := window.Add(QuotaWindow).Sub(now)
		l.logger.Warn("security.quota_exceeded", "key", key, "quota", l.quota, "retry_after", wait)
		return Decision{Reason: ReasonQuota, RetryAfter: retryAfter(wait), Remaining: 0}, nil
	}
	return Decision{Allowed: true, Remaining: l.quota - int(count)}, nil
}

// Close releases the quota store.
func (l *Limiter) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	// Concurrent first requests may each create a bucket; the last Add wins.
	l.buckets.Add(key, b)
	return b
}

// WindowStart returns the start of the UTC day containing t.
func WindowStart(t time.Time) time.Time {
	return t.UTC().Truncate(QuotaWindow)
}

// retryAfter rounds up to whole seconds, the unit of the Retry-After header.
func retryAfter(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return (d + time.Second - 1) / time.Second * time.Second
}
