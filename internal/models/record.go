// Package models contains the record shapes shared by the pipeline stages.
package models

// Canonical column names.
const (
	ColumnExternalID  = "external_id"
	ColumnFirstName   = "first_name"
	ColumnLastName    = "last_name"
	ColumnDOB         = "dob"
	ColumnEmail       = "email"
	ColumnPhone       = "phone"
	ColumnPartnerCode = "partner_code"
	ColumnErrorReason = "error_reason"
)

// CanonicalColumns is the fixed column order of processed and unified output.
var CanonicalColumns = []string{
	ColumnExternalID,
	ColumnFirstName,
	ColumnLastName,
	ColumnDOB,
	ColumnEmail,
	ColumnPhone,
	ColumnPartnerCode,
}

// ErrorColumns is the column order of error output.
var ErrorColumns = append(append([]string{}, CanonicalColumns...), ColumnErrorReason)

// Record is a normalized record in the canonical schema.
type Record struct {
	ExternalID  string `json:"external_id" yaml:"external_id"`
	FirstName   string `json:"first_name" yaml:"first_name"`
	LastName    string `json:"last_name" yaml:"last_name"`
	DOB         string `json:"dob" yaml:"dob"`
	Email       string `json:"email" yaml:"email"`
	Phone       string `json:"phone" yaml:"phone"`
	PartnerCode string `json:"partner_code" yaml:"partner_code"`
}

// Values returns the fields in CanonicalColumns order.
func (r Record) Values() []string {
	return []string{
		r.ExternalID,
		r.FirstName,
		r.LastName,
		r.DOB,
		r.Email,
		r.Phone,
		r.PartnerCode,
	}
}

// WorkingRecord is a Record plus the field flags set during standardization.
// The flags only live between the standardizer and the validator; outputs
// carry the embedded Record.
type WorkingRecord struct {
	Record

	PhoneInvalid bool
	DOBInvalid   bool
}

// Working lifts a persisted record back into a WorkingRecord with clear flags.
func Working(r Record) WorkingRecord {
	return WorkingRecord{Record: r}
}

// ErrorRecord is a Record routed to the error stream.
type ErrorRecord struct {
	Record

	ErrorReason string `json:"error_reason" yaml:"error_reason"`
}

// Values returns the fields in ErrorColumns order.
func (r ErrorRecord) Values() []string {
	return append(r.Record.Values(), r.ErrorReason)
}
