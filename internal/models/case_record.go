// Package models provides data model definitions for the court case cache.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DefaultCourt is stored for records that do not name a court.
const DefaultCourt = "Delhi High Court"

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// CaseRecord is one known court case. CaseNumber is the business key and is
// unique within the store; ID is the opaque storage key.
type CaseRecord struct {
	ID          UUID   `db:"id" json:"id"`
	CaseNumber  string `db:"case_number" json:"case_number"`
	Petitioner  string `db:"petitioner" json:"petitioner,omitempty"`
	Respondent  string `db:"respondent" json:"respondent,omitempty"`
	FilingDate  *Date  `db:"filing_date" json:"filing_date,omitempty"`
	NextHearing *Date  `db:"next_hearing" json:"next_hearing,omitempty"`
	Status      string `db:"status" json:"status,omitempty"`
	Court       string `db:"court" json:"court"`
	CaseType    string `db:"case_type" json:"case_type,omitempty"`
	Judge       string `db:"judge" json:"judge,omitempty"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for CaseRecord.
func (CaseRecord) TableName() string {
	return "court_cases"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (c *CaseRecord) CreatedAtTime() time.Time {
	return time.Unix(c.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (c *CaseRecord) UpdatedAtTime() time.Time {
	return time.Unix(c.UpdatedAt, 0)
}

// FieldValue returns the stored value of f in its canonical string form.
// ok is false when the field is unset.
func (c *CaseRecord) FieldValue(f CaseField) (value string, ok bool) {
	switch f {
	case FieldPetitioner:
		value = c.Petitioner
	case FieldRespondent:
		value = c.Respondent
	case FieldFilingDate:
		value = dateString(c.FilingDate)
	case FieldNextHearing:
		value = dateString(c.NextHearing)
	case FieldStatus:
		value = c.Status
	case FieldCourt:
		value = c.Court
	case FieldCaseType:
		value = c.CaseType
	case FieldJudge:
		value = c.Judge
	default:
		return "", false
	}
	return value, value != ""
}

// Apply sets f to a canonical value as produced by CaseData.Canonical. An
// empty value clears the field.
func (c *CaseRecord) Apply(f CaseField, value string) error {
	switch f {
	case FieldPetitioner:
		c.Petitioner = value
	case FieldRespondent:
		c.Respondent = value
	case FieldFilingDate, FieldNextHearing:
		var d *Date
		if value != "" {
			parsed, err := ParseISODate(value)
			if err != nil {
				return err
			}
			d = &parsed
		}
		if f == FieldFilingDate {
			c.FilingDate = d
		} else {
			c.NextHearing = d
		}
	case FieldStatus:
		c.Status = value
	case FieldCourt:
		c.Court = value
	case FieldCaseType:
		c.CaseType = value
	case FieldJudge:
		c.Judge = value
	default:
		return fmt.Errorf("unknown case field %q", f)
	}
	return nil
}
