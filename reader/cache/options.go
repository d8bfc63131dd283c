package cache

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Option func(self *Cache)

// WithMetrics registers cache counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(self *Cache) { self.metrics = newMetrics(reg) }
}

func WithLogger(l *slog.Logger) Option {
	return func(self *Cache) { self.log = l }
}

// WithClock replaces time.Now, used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(self *Cache) { self.now = now }
}
