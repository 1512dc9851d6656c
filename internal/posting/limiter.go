package posting

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter rate-limits outbound fetches per hostname.
type HostLimiter struct {
	mu  sync.Mutex
	m   map[string]*hostEntry
	r   rate.Limit
	b   int
	now func() time.Time
}

type hostEntry struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		m:   make(map[string]*hostEntry),
		r:   rate.Limit(reqPerSec),
		b:   burst,
		now: time.Now,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	e, ok := hl.m[host]
	if !ok {
		e = &hostEntry{lim: rate.NewLimiter(hl.r, hl.b)}
		hl.m[host] = e
	}
	e.lastUsed = hl.now()
	return e.lim
}

// WaitURL blocks until the URL's host may be fetched again.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// Sweep forgets hosts not fetched for longer than idle and returns how many
// were dropped.
func (hl *HostLimiter) Sweep(idle time.Duration) int {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	cutoff := hl.now().Add(-idle)
	n := 0
	for host, e := range hl.m {
		if e.lastUsed.Before(cutoff) {
			delete(hl.m, host)
			n++
		}
	}
	return n
}

func (hl *HostLimiter) hosts() int {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return len(hl.m)
}
