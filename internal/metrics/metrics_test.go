package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObservePartner(t *testing.T) {
	m := New()

	m.ObservePartner("ACME", 10, 8, 3, 1, 2)
	m.ObservePartner("ACME", 5, 5, 0, 0, 0)
	m.ObservePartner("BETA", 1, 0, 1, 0, 0)

	assert.InDelta(t, 15, testutil.ToFloat64(m.RecordsReceived.WithLabelValues("ACME")), 0)
	assert.InDelta(t, 13, testutil.ToFloat64(m.RecordsProcessed.WithLabelValues("ACME")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RecordsErrored.WithLabelValues("ACME")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FieldInvalid.WithLabelValues("ACME", FieldPhone)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.FieldInvalid.WithLabelValues("ACME", FieldDOB)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RecordsErrored.WithLabelValues("BETA")), 0)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.IncrementPartnerFailure("ACME")

	assert.InDelta(t, 1, testutil.ToFloat64(a.PartnerFailures.WithLabelValues("ACME")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.PartnerFailures.WithLabelValues("ACME")), 0)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ObservePartner("ACME", 2, 1, 1, 1, 0)
	m.ObserveDuration(time.Now().Add(-time.Second))

	fs := afero.NewMemMapFs()
	require.NoError(t, m.WriteTextfile(fs, "metrics/eligibility.prom"))

	data, err := afero.ReadFile(fs, "metrics/eligibility.prom")
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.Contains(out, `eligibility_records_received_total{partner="ACME"} 2`), out)
	assert.Contains(t, out, "eligibility_partner_duration_seconds_count 1")
}
