package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dsh2dsh/feedkit/internal/logging"
)

// HostLimiter limits number of concurrent connections and requests per
// second for every host.
type HostLimiter struct {
	connections int64
	limit       rate.Limit
	burst       int

	hostLimits LimitsFunc

	servers map[string]*hostRefs
	// rates outlive servers, because a host without connections still has
	// its rate.
	rates map[string]*rate.Limiter
	mu    sync.Mutex
}

// LimitsFunc returns number of concurrent connections and requests per second
// for hostname. Zero values mean defaults of the limiter.
type LimitsFunc func(hostname string) (connections int64, rps float64)

type hostRefs struct {
	*semaphore.Weighted
	refs int
}

// NewHostLimiter returns a limiter allowing n concurrent connections per host.
// rps <= 0 means no rate limit.
func NewHostLimiter(n int, rps float64) *HostLimiter {
	l := &HostLimiter{
		connections: int64(max(n, 1)),
		limit:       rate.Inf,
		servers:     map[string]*hostRefs{},
		rates:       map[string]*rate.Limiter{},
	}

	if rps > 0 {
		l.limit = rate.Limit(rps)
		l.burst = max(1, int(rps))
	}
	return l
}

// WithLimits sets per host limits, overriding default ones.
func (self *HostLimiter) WithLimits(fn LimitsFunc) *HostLimiter {
	self.hostLimits = fn
	return self
}

func (self *HostLimiter) limits(hostname string) (int64, rate.Limit, int) {
	connections, limit, burst := self.connections, self.limit, self.burst
	if self.hostLimits != nil {
		n, rps := self.hostLimits(hostname)
		if n > 0 {
			connections = n
		}
		if rps > 0 {
			limit, burst = rate.Limit(rps), max(1, int(rps))
		}
	}
	return connections, limit, burst
}

// Acquire blocks until a connection to hostname is allowed. Every successful
// Acquire must be paired with [HostLimiter.Release].
func (self *HostLimiter) Acquire(ctx context.Context, hostname string) error {
	self.mu.Lock()
	s := self.servers[hostname]
	if s == nil {
		connections, limit, burst := self.limits(hostname)
		s = &hostRefs{Weighted: semaphore.NewWeighted(connections)}
		self.servers[hostname] = s
		if _, ok := self.rates[hostname]; !ok && limit != rate.Inf {
			self.rates[hostname] = rate.NewLimiter(limit, burst)
		}
	}
	s.refs++
	limiter := self.rates[hostname]
	self.mu.Unlock()

	log := logging.FromContext(ctx).With(slog.String("hostname", hostname))
	if !s.TryAcquire(1) {
		log.Info("max connections limit reached")
		if err := s.Acquire(ctx, 1); err != nil {
			self.unref(hostname)
			return fmt.Errorf(
				"reader/fetcher: acquire semaphore for host %q: %w", hostname, err)
		}
		log.Info("acquired connection semaphore")
	} else {
		log.Debug("try acquired connection semaphore")
	}

	if limiter == nil {
		return nil
	} else if err := limiter.Wait(ctx); err != nil {
		self.Release(hostname)
		return fmt.Errorf("reader/fetcher: rate limit for host %q: %w",
			hostname, err)
	}
	return nil
}

func (self *HostLimiter) Release(hostname string) {
	self.unref(hostname).Release(1)
}

func (self *HostLimiter) unref(hostname string) *hostRefs {
	self.mu.Lock()
	defer self.mu.Unlock()
	s := self.servers[hostname]
	s.refs--
	if s.refs == 0 {
		delete(self.servers, hostname)
	}
	return s
}

// Hosts returns number of hosts with acquired or waiting connections.
func (self *HostLimiter) Hosts() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.servers)
}
