package models

import "time"

// CaseUpdate is an append-only audit entry recording one field change on a
// CaseRecord. OldValue and NewValue are nil when the field was or became
// unset.
type CaseUpdate struct {
	ID        UUID    `db:"id" json:"id"`
	CaseID    UUID    `db:"case_id" json:"case_id"`
	FieldName string  `db:"field_name" json:"field_name"`
	OldValue  *string `db:"old_value" json:"old_value"`
	NewValue  *string `db:"new_value" json:"new_value"`
	UpdatedAt int64   `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for CaseUpdate.
func (CaseUpdate) TableName() string {
	return "case_updates"
}

// Time returns the UpdatedAt as time.Time.
func (c *CaseUpdate) Time() time.Time {
	return time.Unix(c.UpdatedAt, 0)
}
