// Package metrics counts records flowing through the pipeline.
package metrics

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
)

// Field label values for FieldInvalid.
const (
	FieldPhone = "phone"
	FieldDOB   = "dob"
)

// Metrics holds the pipeline counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RecordsReceived  *prometheus.CounterVec
	RecordsProcessed *prometheus.CounterVec
	RecordsErrored   *prometheus.CounterVec
	FieldInvalid     *prometheus.CounterVec
	PartnerFailures  *prometheus.CounterVec
	PartnerDuration  prometheus.Histogram
}

// New registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligibility_records_received_total",
			Help: "Records read from partner files",
		}, []string{"partner"}),
		RecordsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligibility_records_processed_total",
			Help: "Records written to the processed stream",
		}, []string{"partner"}),
		RecordsErrored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligibility_records_errored_total",
			Help: "Records written to the error stream",
		}, []string{"partner"}),
		FieldInvalid: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligibility_field_invalid_total",
			Help: "Field values annotated as invalid",
		}, []string{"partner", "field"}),
		PartnerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligibility_partner_failures_total",
			Help: "Partner runs abandoned because of a fatal error",
		}, []string{"partner"}),
		PartnerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eligibility_partner_duration_seconds",
			Help:    "Time spent processing one partner",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}
}

// ObservePartner records the counts of a completed partner run.
func (m *Metrics) ObservePartner(partner string, received, processed, errored, invalidPhones, invalidDOBs int) {
	m.RecordsReceived.WithLabelValues(partner).Add(float64(received))
	m.RecordsProcessed.WithLabelValues(partner).Add(float64(processed))
	m.RecordsErrored.WithLabelValues(partner).Add(float64(errored))
	m.FieldInvalid.WithLabelValues(partner, FieldPhone).Add(float64(invalidPhones))
	m.FieldInvalid.WithLabelValues(partner, FieldDOB).Add(float64(invalidDOBs))
}

// IncrementPartnerFailure counts a partner run that did not complete.
func (m *Metrics) IncrementPartnerFailure(partner string) {
	m.PartnerFailures.WithLabelValues(partner).Inc()
}

// ObserveDuration records the time since start.
func (m *Metrics) ObserveDuration(start time.Time) {
	m.PartnerDuration.Observe(time.Since(start).Seconds())
}

// WriteTextfile exports the metrics in the node exporter textfile format
// through fs.
func (m *Metrics) WriteTextfile(fs afero.Fs, path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
