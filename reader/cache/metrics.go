package cache

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	saves     prometheus.Counter
	evictions prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedkit",
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		})
	}

	m := &metrics{
		hits:      counter("hits_total", "Cache lookups returned fresh content"),
		misses:    counter("misses_total", "Cache lookups returned nothing"),
		saves:     counter("saves_total", "Cache entries written"),
		evictions: counter("evictions_total", "Cache entries removed by clean"),
	}

	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.saves, m.evictions)
	}
	return m
}

func (self *metrics) hit() {
	if self != nil {
		self.hits.Inc()
	}
}

func (self *metrics) miss() {
	if self != nil {
		self.misses.Inc()
	}
}

func (self *metrics) save() {
	if self != nil {
		self.saves.Inc()
	}
}

func (self *metrics) evict() {
	if self != nil {
		self.evictions.Inc()
	}
}
