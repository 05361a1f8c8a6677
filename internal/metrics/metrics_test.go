package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncSubmission("accepted")
	m.IncSubmission("accepted")
	m.IncSubmission("invalid")
	m.IncReview("approved")
	m.ObserveInstant("verified", time.Now())
	m.SetPending(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reviews.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstantVerifications.WithLabelValues("verified")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PendingQueue))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncSubmission("accepted")
		m.IncReview("rejected")
		m.ObserveInstant("failed_timeout", time.Now())
		m.IncInstant("unavailable")
		m.SetPending(1)
	})
}

func TestIncInstantSkipsDuration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncInstant("unavailable")
	m.ObserveInstant("failed_timeout", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstantVerifications.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstantVerifications.WithLabelValues("failed_timeout")))

	var out dto.Metric
	require.NoError(t, m.InstantDuration.Write(&out))
	assert.Equal(t, uint64(1), out.GetHistogram().GetSampleCount())
}
