package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordGeneration("crop_analytics", "success", 1500*time.Millisecond)
	m.RecordGeneration("crop_analytics", "success", 500*time.Millisecond)
	m.RecordGeneration("chat", "error", time.Second)
	m.RecordRetryAttempt("retrying")
	m.RecordTransportError("gemini", "rate_limited")
	m.RecordValidationDegraded("disease_report")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationTotal.WithLabelValues("crop_analytics", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationTotal.WithLabelValues("chat", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetryAttempts.WithLabelValues("retrying")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransportErrors.WithLabelValues("gemini", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationDegraded.WithLabelValues("disease_report")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.GenerationDuration))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP krishak_validation_degraded_total Total number of results with defaulted fields
# TYPE krishak_validation_degraded_total counter
krishak_validation_degraded_total{schema="disease_report"} 1
`), "krishak_validation_degraded_total")
	require.NoError(t, err)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
