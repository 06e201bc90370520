package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCollector_ObserveAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewFetchCollector(reg)
	require.NoError(t, err)

	c.ObserveAttempt(OutcomeSuccess, 2*time.Second, 120)
	c.ObserveAttempt(OutcomeTransient, time.Second, 0)
	c.ObserveAttempt(OutcomeTransient, time.Second, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Attempts.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Attempts.WithLabelValues(OutcomeTransient)))
	assert.Equal(t, 120.0, testutil.ToFloat64(c.Points))
	assert.Equal(t, 1, testutil.CollectAndCount(c.FetchDuration))
}

func TestFetchCollector_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewFetchCollector(reg)
	require.NoError(t, err)
	second, err := NewFetchCollector(reg)
	require.NoError(t, err)

	first.ObserveAttempt(OutcomePermanent, time.Millisecond, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Attempts.WithLabelValues(OutcomePermanent)))
}

func TestFetchCollector_NilIsNoop(t *testing.T) {
	var c *FetchCollector
	assert.NotPanics(t, func() { c.ObserveAttempt(OutcomeSuccess, time.Second, 10) })
}
