package models

import "eligibility/pkg/utils"

// RawRecord maps partner column names to raw string values.
type RawRecord map[string]string

// Get returns the value for column, or "" when the column is absent.
func (r RawRecord) Get(column string) string {
	return r[column]
}

// RawBatch is one partner file as read from disk.
type RawBatch struct {
	Header []string
	Rows   []RawRecord
}

// CanonicalBatch is a standardized partner batch awaiting classification.
type CanonicalBatch struct {
	PartnerCode string
	Records     []WorkingRecord
	// HasExternalID is false when the partner file had no column mapped to
	// external_id at all.
	HasExternalID bool
}

// Classification is the verdict for a single record.
type Classification struct {
	Hard   bool
	Soft   bool
	Reason string
}

// IsError reports whether the record belongs in the error stream.
func (c Classification) IsError() bool {
	return c.Hard || c.Soft
}

// Result holds the two output streams for one partner batch.
type Result struct {
	Processed []Record
	Errors    []ErrorRecord

	MissingExternalIDColumn bool

	// Field flag totals over every input record.
	InvalidPhones int
	InvalidDOBs   int
}

// SoftErrorCount counts error rows that are also in the processed stream.
func (r *Result) SoftErrorCount() int {
	return len(r.Errors) - r.HardErrorCount()
}

// HardErrorCount counts error rows excluded from the processed stream.
func (r *Result) HardErrorCount() int {
	if r.MissingExternalIDColumn {
		return len(r.Errors)
	}

	count := 0

	for _, rec := range r.Errors {
		if utils.IsBlank(rec.ExternalID) {
			count++
		}
	}

	return count
}
