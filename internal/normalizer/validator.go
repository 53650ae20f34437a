package normalizer

import (
	"strings"

	"eligibility/internal/models"
	"eligibility/pkg/utils"
)

// Error reasons written to the error_reason column.
const (
	ReasonMissingExternalID       = "Missing External ID"
	ReasonInvalidPhone            = "Invalid Phone Number"
	ReasonInvalidDOB              = "Invalid DOB"
	ReasonMissingExternalIDColumn = "MISSING_EXTERNAL_ID"

	// ReasonSeparator joins multiple reasons for one record.
	ReasonSeparator = " | "
)

type reasonRule struct {
	label string
	hard  bool
	match func(models.WorkingRecord) bool
}

// reasonRules are evaluated in order; that order is the order of error_reason.
var reasonRules = []reasonRule{
	{
		label: ReasonMissingExternalID,
		hard:  true,
		match: func(r models.WorkingRecord) bool { return utils.IsBlank(r.ExternalID) },
	},
	{
		label: ReasonInvalidPhone,
		match: func(r models.WorkingRecord) bool { return r.PhoneInvalid },
	},
	{
		label: ReasonInvalidDOB,
		match: func(r models.WorkingRecord) bool { return r.DOBInvalid },
	},
}

// Validator classifies standardized records into processed and error streams.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Classify evaluates the hard and soft error rules for one record.
func (v *Validator) Classify(rec models.WorkingRecord) models.Classification {
	var (
		c       models.Classification
		reasons []string
	)

	for _, rule := range reasonRules {
		if !rule.match(rec) {
			continue
		}

		if rule.hard {
			c.Hard = true
		} else {
			c.Soft = true
		}

		reasons = append(reasons, rule.label)
	}

	c.Reason = strings.Join(reasons, ReasonSeparator)

	return c
}

// Validate splits a batch into the processed and error streams.
//
// Hard-error records go to the error stream only. Soft-error records go to
// both: annotated in processed, with a reason in errors. A hard error always
// excludes the record from processed, even when it also has soft errors.
// When the batch has no external_id column every record is an error.
func (v *Validator) Validate(batch *models.CanonicalBatch) *models.Result {
	result := &models.Result{
		Processed: []models.Record{},
		Errors:    []models.ErrorRecord{},
	}

	if batch == nil || len(batch.Records) == 0 {
		return result
	}

	for _, rec := range batch.Records {
		if rec.PhoneInvalid {
			result.InvalidPhones++
		}

		if rec.DOBInvalid {
			result.InvalidDOBs++
		}
	}

	if !batch.HasExternalID {
		result.MissingExternalIDColumn = true

		for _, rec := range batch.Records {
			result.Errors = append(result.Errors, models.ErrorRecord{
				Record:      rec.Record,
				ErrorReason: ReasonMissingExternalIDColumn,
			})
		}

		return result
	}

	for _, rec := range batch.Records {
		c := v.Classify(rec)

		if c.IsError() {
			result.Errors = append(result.Errors, models.ErrorRecord{
				Record:      rec.Record,
				ErrorReason: c.Reason,
			})
		}

		if !c.Hard {
			result.Processed = append(result.Processed, rec.Record)
		}
	}

	return result
}

// Revalidate classifies records that have already left the pipeline. Their
// flags are gone, so only the hard error rule can match.
func (v *Validator) Revalidate(records []models.Record) *models.Result {
	batch := &models.CanonicalBatch{
		Records:       make([]models.WorkingRecord, 0, len(records)),
		HasExternalID: true,
	}

	for _, rec := range records {
		batch.Records = append(batch.Records, models.Working(rec))
	}

	return v.Validate(batch)
}
