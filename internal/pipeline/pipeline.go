// Package pipeline runs every configured partner through ingestion,
// normalization and output, and assembles the unified dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eligibility/internal/config"
	"eligibility/internal/ingest"
	"eligibility/internal/logger"
	"eligibility/internal/metrics"
	"eligibility/internal/models"
	"eligibility/internal/normalizer"
	"eligibility/internal/output"
	"eligibility/pkg/metadata"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrNoPartnersSucceeded is returned by Run when partners were configured but none completed.
var ErrNoPartnersSucceeded = errors.New("no partner completed successfully")

// Pipeline wires the stages together for one run.
type Pipeline struct {
	cfg       *config.Config
	fs        afero.Fs
	log       *logger.Logger
	metrics   *metrics.Metrics
	reader    *ingest.Reader
	writer    *output.Writer
	processor *normalizer.Processor
	now       func() time.Time
	newRunID  func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for date validation and the manifest timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.newRunID = func() string { return id }
	}
}

// WithMetrics uses m instead of a fresh metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline reading and writing through fs.
func New(cfg *config.Config, fs afero.Fs, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		fs:       fs,
		log:      log,
		reader:   ingest.NewReader(fs),
		writer:   output.NewWriter(fs),
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = metrics.New()
	}

	p.processor = normalizer.NewProcessor(normalizer.WithClock(p.now))

	return p
}

// Metrics returns the metrics collected by the pipeline.
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Run processes the enabled partners in order. A partner that fails is
// recorded in the report and the run moves on to the next one. The returned
// error is reserved for failures that affect the whole run.
func (p *Pipeline) Run(ctx context.Context, set *config.PartnerSet) (*Report, error) {
	report := &Report{
		RunID:     p.newRunID(),
		StartedAt: p.now(),
	}
	log := p.log.With("run_id", report.RunID)

	log.Info("Starting eligibility pipeline", "partners", len(set.Partners), "invalid_configs", len(set.Invalid))

	for _, pe := range set.Invalid {
		log.Error("Skipping partner with invalid configuration", "file", pe.File, "error", pe.Err)
		p.metrics.IncrementPartnerFailure(partnerLabel(pe.PartnerCode, pe.File))

		report.Partners = append(report.Partners, PartnerReport{
			PartnerCode: pe.PartnerCode,
			ConfigFile:  pe.File,
			Err:         pe,
		})
	}

	var unified []models.Record

	for _, partner := range set.Enabled() {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run interrupted: %w", err)
		}

		pr, processed := p.runPartner(log, partner)
		report.Partners = append(report.Partners, pr)

		if pr.Err == nil {
			unified = append(unified, processed...)
		}
	}

	if report.Succeeded() > 0 {
		entry, err := p.writer.WriteProcessed(p.cfg.UnifiedPath(), metadata.KindUnified, unified)
		if err != nil {
			return report, fmt.Errorf("failed to write unified dataset: %w", err)
		}

		report.Unified = &entry
		log.Info("Unified dataset written", "path", entry.Path, "rows", entry.Rows)
	}

	report.FinishedAt = p.now()

	if p.cfg.Pipeline.Output.WriteManifest && report.Succeeded() > 0 {
		if err := metadata.Save(p.fs, p.cfg.ManifestPath(), report.Manifest()); err != nil {
			return report, err
		}
	}

	if path := p.cfg.Pipeline.Metrics.Textfile; path != "" {
		if err := p.metrics.WriteTextfile(p.fs, path); err != nil {
			log.Warn("Could not export metrics", "path", path, "error", err)
		}
	}

	if len(report.Partners) > 0 && report.Succeeded() == 0 {
		return report, ErrNoPartnersSucceeded
	}

	return report, nil
}

// runPartner processes one partner. The processed records are returned for
// the unified dataset.
func (p *Pipeline) runPartner(runLog *logger.Logger, partner *config.PartnerConfig) (PartnerReport, []models.Record) {
	start := time.Now()
	log := runLog.With("partner", partner.PartnerCode)
	inputPath := partner.ResolvePath(p.cfg.Pipeline.InputRoot)

	pr := PartnerReport{
		PartnerCode: partner.PartnerCode,
		ConfigFile:  partner.Source,
		FilePath:    partner.FilePath,
	}

	fail := func(stage string, err error) (PartnerReport, []models.Record) {
		pr.Err = fmt.Errorf("%s: %w", stage, err)
		p.metrics.IncrementPartnerFailure(partner.PartnerCode)
		log.Error("Partner processing failed", "stage", stage, "error", err)

		return pr, nil
	}

	log.Debug("Reading partner file", "path", inputPath)

	raw, err := p.reader.Read(inputPath, partner.Comma())
	if err != nil {
		return fail("ingestion", err)
	}

	pr.Received = len(raw.Rows)

	result, err := p.processor.Process(raw, normalizer.Mapping{
		PartnerCode: partner.PartnerCode,
		Columns:     partner.ColumnMapping,
	})
	if err != nil {
		return fail("normalization", err)
	}

	if result.MissingExternalIDColumn {
		log.Error("No column mapped to external_id; every record sent to errors", "records", len(result.Errors))
	}

	pr.Processed = len(result.Processed)
	pr.Errors = len(result.Errors)
	pr.HardErrors = result.HardErrorCount()
	pr.SoftErrors = result.SoftErrorCount()

	processedEntry, err := p.writer.WriteProcessed(p.cfg.ProcessedPath(partner), metadata.KindProcessed, result.Processed)
	if err != nil {
		return fail("output", err)
	}

	pr.Outputs = append(pr.Outputs, processedEntry)

	errorPath := p.cfg.ErrorPath(partner)
	if len(result.Errors) > 0 {
		errorEntry, writeErr := p.writer.WriteErrors(errorPath, result.Errors)
		if writeErr != nil {
			return fail("output", writeErr)
		}

		pr.Outputs = append(pr.Outputs, errorEntry)
	} else if rmErr := p.writer.Remove(errorPath); rmErr != nil {
		log.Warn("Could not remove stale error file", "path", errorPath, "error", rmErr)
	}

	p.metrics.ObservePartner(partner.PartnerCode, pr.Received, pr.Processed, pr.Errors, result.InvalidPhones, result.InvalidDOBs)
	p.metrics.ObserveDuration(start)

	log.Info("Partner processed",
		"received", pr.Received,
		"processed", pr.Processed,
		"errors", pr.Errors,
		"hard_errors", pr.HardErrors,
		"soft_errors", pr.SoftErrors,
	)

	return pr, result.Processed
}

func partnerLabel(code, file string) string {
	if code != "" {
		return code
	}

	return file
}
