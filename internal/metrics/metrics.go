// Package metrics provides Prometheus instrumentation for stream factories.
package metrics

import (
	"errors"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// Registry holds the metric instances shared by instrumented factories.
type Registry struct {
	StreamsOpened *prometheus.CounterVec
	OpenErrors    *prometheus.CounterVec
	StreamsActive *prometheus.GaugeVec
	BytesRead     *prometheus.CounterVec
	ReadErrors    *prometheus.CounterVec
}

// NewRegistry creates the metrics and registers them with reg.
func NewRegistry(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		StreamsOpened: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "opened_total",
				Help:      "Total number of streams opened",
			},
			[]string{"factory"},
		),

		OpenErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "open_errors_total",
				Help:      "Total number of failed stream opens",
			},
			[]string{"factory"},
		),

		StreamsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "active",
				Help:      "Number of streams opened and not yet closed",
			},
			[]string{"factory"},
		),

		BytesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "read_bytes_total",
				Help:      "Total number of bytes delivered to readers",
			},
			[]string{"factory"},
		),

		ReadErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "read_errors_total",
				Help:      "Total number of reads that failed with an error other than EOF",
			},
			[]string{"factory"},
		),
	}
}

// Instrument wraps f so that every stream it opens is counted under name.
func (r *Registry) Instrument(name string, f stream.Factory) stream.Factory {
	return &instrumentedFactory{registry: r, name: name, next: f}
}

type instrumentedFactory struct {
	registry *Registry
	name     string
	next     stream.Factory
}

func (f *instrumentedFactory) Open() (io.ReadCloser, error) {
	rc, err := f.next.Open()
	if err != nil {
		f.registry.OpenErrors.WithLabelValues(f.name).Inc()
		return nil, err
	}

	f.registry.StreamsOpened.WithLabelValues(f.name).Inc()
	active := f.registry.StreamsActive.WithLabelValues(f.name)
	active.Inc()

	return &instrumentedStream{
		ReadCloser: rc,
		bytes:      f.registry.BytesRead.WithLabelValues(f.name),
		errors:     f.registry.ReadErrors.WithLabelValues(f.name),
		active:     active,
	}, nil
}

type instrumentedStream struct {
	io.ReadCloser
	bytes  prometheus.Counter
	errors prometheus.Counter
	active prometheus.Gauge
	once   sync.Once
}

func (s *instrumentedStream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	if n > 0 {
		s.bytes.Add(float64(n))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		s.errors.Inc()
	}
	return n, err
}

func (s *instrumentedStream) Close() error {
	s.once.Do(s.active.Dec)
	return s.ReadCloser.Close()
}
