package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"eligibility/internal/formatter"
	"eligibility/pkg/metadata"
	"eligibility/pkg/utils"
)

// maxErrorWidth caps error messages in the summary table.
const maxErrorWidth = 60

// PartnerReport is the outcome of one partner.
type PartnerReport struct {
	PartnerCode string
	ConfigFile  string
	FilePath    string

	Received   int
	Processed  int
	Errors     int
	HardErrors int
	SoftErrors int

	Outputs []metadata.FileEntry
	Err     error
}

// Report is the outcome of a pipeline run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Partners []PartnerReport
	Unified  *metadata.FileEntry
}

// Succeeded counts partners that completed.
func (r *Report) Succeeded() int {
	n := 0

	for _, pr := range r.Partners {
		if pr.Err == nil {
			n++
		}
	}

	return n
}

// Failed counts partners that were abandoned.
func (r *Report) Failed() int {
	return len(r.Partners) - r.Succeeded()
}

// Manifest converts the report into a run manifest.
func (r *Report) Manifest() *metadata.Manifest {
	m := &metadata.Manifest{
		RunID:       r.RunID,
		GeneratedAt: r.FinishedAt.UTC(),
	}

	for _, pr := range r.Partners {
		entry := metadata.PartnerEntry{
			PartnerCode: pr.PartnerCode,
			FilePath:    pr.FilePath,
			Received:    pr.Received,
			Processed:   pr.Processed,
			Errors:      pr.Errors,
		}
		if pr.Err != nil {
			entry.Failure = pr.Err.Error()
		}

		m.Partners = append(m.Partners, entry)
		m.Files = append(m.Files, pr.Outputs...)
	}

	if r.Unified != nil {
		m.Files = append(m.Files, *r.Unified)
	}

	return m
}

// WriteSummary prints the per-partner console summary followed by a table.
func (r *Report) WriteSummary(w io.Writer) error {
	ew := &errWriter{w: w}

	for _, pr := range r.Partners {
		if pr.Err != nil {
			ew.printf("\nERROR processing %s: %v\n", displayCode(pr), pr.Err)
			continue
		}

		ew.printf("\nProcessing file: %s\n", pr.FilePath)
		ew.printf("Total records received: %d\n", pr.Received)
		ew.printf("Successfully processed records: %d\n", pr.Processed)
		ew.printf("Records sent to error file: %d\n", pr.Errors)
	}

	header := []string{"Partner", "Received", "Processed", "Errors", "Hard", "Soft", "Status"}
	rows := make([][]string, 0, len(r.Partners)+1)

	for _, pr := range r.Partners {
		status := "ok"
		if pr.Err != nil {
			status = utils.TruncateString(pr.Err.Error(), maxErrorWidth)
		}

		rows = append(rows, []string{
			displayCode(pr),
			strconv.Itoa(pr.Received),
			strconv.Itoa(pr.Processed),
			strconv.Itoa(pr.Errors),
			strconv.Itoa(pr.HardErrors),
			strconv.Itoa(pr.SoftErrors),
			status,
		})
	}

	if r.Unified != nil {
		rows = append(rows, []string{"UNIFIED", "", strconv.Itoa(r.Unified.Rows), "", "", "", r.Unified.Path})
	}

	ew.printf("\nRun %s: %d partner(s) succeeded, %d failed\n", r.RunID, r.Succeeded(), r.Failed())
	ew.printf("%s", formatter.Render(header, rows))

	return ew.err
}

func displayCode(pr PartnerReport) string {
	if pr.PartnerCode != "" {
		return pr.PartnerCode
	}

	return pr.ConfigFile
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}

	_, e.err = fmt.Fprintf(e.w, format, args...)
}
