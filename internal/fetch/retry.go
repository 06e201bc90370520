package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/elevation.report/internal/monitoring"
	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"github.com/banshee-data/elevation.report/internal/request"
	"github.com/banshee-data/elevation.report/internal/timeutil"
	"github.com/cenkalti/backoff/v5"
)

// Retry defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// Retrier re-executes a request while it fails transiently. Every attempt
// runs the full pipeline again; nothing is carried between attempts.
type Retrier struct {
	Exec           Executor
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Metrics may be nil.
	Metrics *monitoring.FetchCollector
	// Clock times attempts; the wall clock when nil.
	Clock timeutil.Clock
}

func (r *Retrier) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultInitialBackoff
	if r.InitialBackoff > 0 {
		b.InitialInterval = r.InitialBackoff
	}
	b.MaxInterval = DefaultMaxBackoff
	if r.MaxBackoff > 0 {
		b.MaxInterval = r.MaxBackoff
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	return b
}

// Execute runs req, returning a *FetchError on failure.
func (r *Retrier) Execute(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	attempts := 0
	var lastErr error
	op := func() (*pointcloud.PointSet, error) {
		attempts++
		start := clock.Now()
		ps, err := r.Exec.Execute(ctx, req)
		elapsed := clock.Since(start)
		if err == nil {
			r.Metrics.ObserveAttempt(monitoring.OutcomeSuccess, elapsed, ps.Len())
			return ps, nil
		}
		lastErr = err
		if IsTransient(err) {
			r.Metrics.ObserveAttempt(monitoring.OutcomeTransient, elapsed, 0)
			return nil, err
		}
		r.Metrics.ObserveAttempt(monitoring.OutcomePermanent, elapsed, 0)
		return nil, backoff.Permanent(err)
	}

	ps, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			monitoring.Logf("fetch %s: attempt %d failed, retrying in %v: %v", req, attempts, wait, err)
		}),
	)
	if err == nil {
		if attempts > 1 {
			monitoring.Logf("fetch %s: succeeded after %d attempts", req, attempts)
		}
		return ps, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && lastErr == nil {
		err = ctxErr
	}
	fe := &FetchError{Request: req, Kind: Permanent, Attempts: attempts, Err: err}
	if lastErr != nil && IsTransient(lastErr) {
		fe.Kind = Transient
	}
	monitoring.Logf("fetch %s: giving up: %v", req, fe)
	return nil, fe
}
