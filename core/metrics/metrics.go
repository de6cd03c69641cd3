package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sink receives observability counters from pipeline components. Components
// take a Sink parameter instead of mutating shared global state, so the
// runtime can re-execute any unit of work without double-counting becoming
// a correctness issue.
type Sink interface {
	// Inc increments the named counter by 1.
	Inc(name string)
	// Add increments the named counter by n.
	Add(name string, n int64)
}

// Counters is an in-memory Sink. Safe for concurrent use.
type Counters struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewCounters creates an empty in-memory sink.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int64)}
}

// Inc implements Sink.
func (c *Counters) Inc(name string) { c.Add(name, 1) }

// Add implements Sink.
func (c *Counters) Add(name string, n int64) {
	c.mu.Lock()
	c.counts[name] += n
	c.mu.Unlock()
}

// Get returns the current value of the named counter.
func (c *Counters) Get(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Names returns the counter names in sorted order, for deterministic logs.
func (c *Counters) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.counts))
	for k := range c.counts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Prometheus is a Sink backed by a prometheus CounterVec, for deployments
// that scrape or push job metrics.
type Prometheus struct {
	vec *prometheus.CounterVec
}

// NewPrometheus creates and registers the pipeline counter vector on the
// given registerer. Pass prometheus.DefaultRegisterer for the usual global
// registry.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	return &Prometheus{
		vec: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "conformer_pipeline_events_total",
			Help: "Pipeline observability counters by event name",
		}, []string{"event"}),
	}
}

// Inc implements Sink.
func (p *Prometheus) Inc(name string) { p.vec.WithLabelValues(name).Inc() }

// Add implements Sink.
func (p *Prometheus) Add(name string, n int64) {
	p.vec.WithLabelValues(name).Add(float64(n))
}

// Fanout duplicates every increment to all underlying sinks.
type Fanout []Sink

// Inc implements Sink.
func (f Fanout) Inc(name string) {
	for _, s := range f {
		s.Inc(name)
	}
}

// Add implements Sink.
func (f Fanout) Add(name string, n int64) {
	for _, s := range f {
		s.Add(name, n)
	}
}
