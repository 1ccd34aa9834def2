// Package prometheus exports client metrics through a Prometheus registerer.
package prometheus

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/goliatone/go-epo-ops/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Labels carried by every series. Tags outside this set are dropped so the
// label cardinality stays fixed.
var labelNames = []string{"operation", "status", "error_kind"}

// DurationBuckets are in milliseconds, spanning a cached lookup up to a
// request that exhausted its retries.
var DurationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

type Recorder struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

type Option func(*Recorder)

// WithNamespace prefixes every metric name.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitizeName(namespace)
	}
}

// NewRecorder registers collectors lazily on registerer, falling back to the
// default registerer when nil.
func NewRecorder(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		registerer: registerer,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter := r.counter(name)
	if counter == nil {
		return
	}
	counter.WithLabelValues(labelValues(tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram := r.histogram(name)
	if histogram == nil {
		return
	}
	histogram.WithLabelValues(labelValues(tags)...).Observe(value)
}

func (r *Recorder) counter(name string) *prometheus.CounterVec {
	metricName := r.metricName(name)
	if metricName == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[metricName]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName,
		Help: "Total number of OPS client calls for " + name,
	}, labelNames)
	vec = register(r.registerer, vec)
	r.counters[metricName] = vec
	return vec
}

func (r *Recorder) histogram(name string) *prometheus.HistogramVec {
	metricName := r.metricName(name)
	if metricName == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[metricName]; ok {
		return vec
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricName,
		Help:    "OPS client call latency for " + name,
		Buckets: DurationBuckets,
	}, labelNames)
	vec = register(r.registerer, vec)
	r.histograms[metricName] = vec
	return vec
}

func (r *Recorder) metricName(name string) string {
	metricName := sanitizeName(name)
	if metricName == "" {
		return ""
	}
	if r.namespace != "" {
		return r.namespace + "_" + metricName
	}
	return metricName
}

// register reuses a collector another recorder already put on the registerer.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

func labelValues(tags map[string]string) []string {
	values := make([]string, len(labelNames))
	for i, label := range labelNames {
		values[i] = strings.TrimSpace(tags[label])
	}
	return values
}

// sanitizeName maps ops.search_patents.total to ops_search_patents_total.
func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == ':'
		if !valid {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore || b.Len() == 0 {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	out := strings.TrimRight(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

var _ core.MetricsRecorder = (*Recorder)(nil)
