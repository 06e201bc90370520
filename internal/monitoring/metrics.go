package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch attempt outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

// FetchCollector bundles the Prometheus metrics recorded while executing
// point-cloud fetch requests.
type FetchCollector struct {
	Attempts      *prometheus.CounterVec
	Points        prometheus.Counter
	FetchDuration prometheus.Histogram
}

// NewFetchCollector registers fetch metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil. Registering twice
// against the same registry returns the existing collectors.
func NewFetchCollector(reg prometheus.Registerer) (*FetchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	attempts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elevation_fetch_attempts_total",
		Help: "Point-cloud fetch attempts, labeled by outcome.",
	}, []string{"outcome"}), "elevation_fetch_attempts_total")
	if err != nil {
		return nil, err
	}

	points, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "elevation_fetch_points_total",
		Help: "Points returned by successful fetches.",
	}), "elevation_fetch_points_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "elevation_fetch_duration_seconds",
		Help:    "Wall time of a single fetch attempt in seconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}), "elevation_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &FetchCollector{Attempts: attempts, Points: points, FetchDuration: duration}, nil
}

// ObserveAttempt records one fetch attempt. A nil collector is a no-op.
func (c *FetchCollector) ObserveAttempt(outcome string, elapsed time.Duration, points int) {
	if c == nil {
		return
	}
	c.Attempts.WithLabelValues(outcome).Inc()
	c.FetchDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess && points > 0 {
		c.Points.Add(float64(points))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
