package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eligibility/internal/models"
)

// Standardization errors.
var (
	ErrNilBatch      = errors.New("invalid data: raw batch is nil")
	ErrMissingColumn = errors.New("required column missing after mapping")
)

// requiredColumns must exist after renaming. external_id is absent on
// purpose: a partner without it is classified by the validator instead.
var requiredColumns = []string{
	models.ColumnFirstName,
	models.ColumnLastName,
	models.ColumnDOB,
	models.ColumnEmail,
	models.ColumnPhone,
}

// Mapping describes how one partner's columns map onto the canonical schema.
type Mapping struct {
	PartnerCode string
	// Columns maps partner column name to canonical column name.
	Columns map[string]string
}

// Transformer standardizes raw partner rows into canonical records.
type Transformer struct {
	now func() time.Time
}

// TransformerOption configures a Transformer.
type TransformerOption func(*Transformer)

// WithClock overrides the clock used for the date of birth year range.
func WithClock(now func() time.Time) TransformerOption {
	return func(t *Transformer) {
		t.now = now
	}
}

// NewTransformer creates a new transformer instance.
func NewTransformer(opts ...TransformerOption) *Transformer {
	t := &Transformer{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Standardize renames the batch columns through the mapping and normalizes
// every field. Unmapped columns are dropped and partner_code always comes
// from the mapping.
func (t *Transformer) Standardize(raw *models.RawBatch, m Mapping) (*models.CanonicalBatch, error) {
	if raw == nil {
		return nil, ErrNilBatch
	}

	sources := sourceColumns(raw.Header, m.Columns)

	var missing []string

	for _, col := range requiredColumns {
		if _, ok := sources[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	_, hasExternalID := sources[models.ColumnExternalID]

	now := t.now()
	batch := &models.CanonicalBatch{
		PartnerCode:   m.PartnerCode,
		Records:       make([]models.WorkingRecord, 0, len(raw.Rows)),
		HasExternalID: hasExternalID,
	}

	for _, row := range raw.Rows {
		batch.Records = append(batch.Records, t.standardizeRow(row, sources, m.PartnerCode, now))
	}

	return batch, nil
}

func (t *Transformer) standardizeRow(row models.RawRecord, sources map[string]string, partnerCode string, now time.Time) models.WorkingRecord {
	get := func(canonical string) string {
		src, ok := sources[canonical]
		if !ok {
			return ""
		}

		return row.Get(src)
	}

	phone := FormatPhone(get(models.ColumnPhone))
	dob := ParseDateAt(get(models.ColumnDOB), now)

	return models.WorkingRecord{
		Record: models.Record{
			ExternalID:  get(models.ColumnExternalID),
			FirstName:   NormalizeName(get(models.ColumnFirstName)),
			LastName:    NormalizeName(get(models.ColumnLastName)),
			DOB:         dob.Value,
			Email:       NormalizeEmail(get(models.ColumnEmail)),
			Phone:       phone.Value,
			PartnerCode: partnerCode,
		},
		PhoneInvalid: phone.Invalid,
		DOBInvalid:   dob.Invalid,
	}
}

// sourceColumns inverts the mapping for the columns actually present in the
// header, giving canonical name -> partner column. partner_code is never
// sourced from the file.
func sourceColumns(header []string, mapping map[string]string) map[string]string {
	sources := make(map[string]string, len(mapping))

	for _, col := range header {
		canonical, ok := mapping[col]
		if !ok || canonical == models.ColumnPartnerCode {
			continue
		}

		if _, taken := sources[canonical]; !taken {
			sources[canonical] = col
		}
	}

	return sources
}
