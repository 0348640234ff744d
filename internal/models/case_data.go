package models

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/normalize"
)

// CaseField names a mutable CaseRecord column. Only these fields can be set
// by name; anything else is rejected.
type CaseField string

const (
	FieldPetitioner  CaseField = "petitioner"
	FieldRespondent  CaseField = "respondent"
	FieldFilingDate  CaseField = "filing_date"
	FieldNextHearing CaseField = "next_hearing"
	FieldStatus      CaseField = "status"
	FieldCourt       CaseField = "court"
	FieldCaseType    CaseField = "case_type"
	FieldJudge       CaseField = "judge"
)

// CaseFields lists every mutable field in column order.
var CaseFields = []CaseField{
	FieldPetitioner, FieldRespondent, FieldFilingDate, FieldNextHearing,
	FieldStatus, FieldCourt, FieldCaseType, FieldJudge,
}

// IsDate reports whether f holds a calendar date.
func (f CaseField) IsDate() bool {
	return f == FieldFilingDate || f == FieldNextHearing
}

// ParseCaseField resolves a field name, rejecting unknown names.
func ParseCaseField(name string) (CaseField, error) {
	f := CaseField(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range CaseFields {
		if f == known {
			return f, nil
		}
	}
	return "", apperrors.Newf(apperrors.ErrUnknownField, "unknown case field %q", name)
}

// CaseData is a raw or partial case record as returned by a fetcher or
// supplied for an update. A nil field is absent: it is left untouched on
// update and defaulted on insert.
type CaseData struct {
	CaseNumber  string  `json:"case_number"`
	Petitioner  *string `json:"petitioner,omitempty"`
	Respondent  *string `json:"respondent,omitempty"`
	FilingDate  *string `json:"filing_date,omitempty"`
	NextHearing *string `json:"next_hearing,omitempty"`
	Status      *string `json:"status,omitempty"`
	Court       *string `json:"court,omitempty"`
	CaseType    *string `json:"case_type,omitempty"`
	Judge       *string `json:"judge,omitempty"`
}

// CaseDataFromMap builds CaseData from loosely keyed values. The
// "case_number" key is required; any key that is not a CaseField is an
// ErrUnknownField error.
func CaseDataFromMap(values map[string]string) (CaseData, error) {
	var d CaseData
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), "case_number") {
			d.CaseNumber = values[k]
			continue
		}
		f, err := ParseCaseField(k)
		if err != nil {
			return CaseData{}, err
		}
		d.Set(f, values[k])
	}
	if strings.TrimSpace(d.CaseNumber) == "" {
		return CaseData{}, apperrors.New(apperrors.ErrValidation, "case_number is required")
	}
	return d, nil
}

func (d *CaseData) slot(f CaseField) **string {
	switch f {
	case FieldPetitioner:
		return &d.Petitioner
	case FieldRespondent:
		return &d.Respondent
	case FieldFilingDate:
		return &d.FilingDate
	case FieldNextHearing:
		return &d.NextHearing
	case FieldStatus:
		return &d.Status
	case FieldCourt:
		return &d.Court
	case FieldCaseType:
		return &d.CaseType
	case FieldJudge:
		return &d.Judge
	}
	return nil
}

// Get returns the raw value of f, or nil when absent.
func (d *CaseData) Get(f CaseField) *string {
	if p := d.slot(f); p != nil {
		return *p
	}
	return nil
}

// Set marks f as present with value v.
func (d *CaseData) Set(f CaseField, v string) {
	if p := d.slot(f); p != nil {
		*p = &v
	}
}

// Canonical returns the normalized form of f: whitespace is collapsed for
// text, and dates in any accepted layout become YYYY-MM-DD. present is false
// when f is absent. A date that matches no layout is an ErrValidation error.
func (d *CaseData) Canonical(f CaseField) (value string, present bool, err error) {
	raw := d.Get(f)
	if raw == nil {
		return "", false, nil
	}
	value = strings.Join(strings.Fields(*raw), " ")
	if f.IsDate() && value != "" {
		t, ok := normalize.ParseDate(value)
		if !ok {
			return "", true, apperrors.Newf(apperrors.ErrValidation, "%s: unrecognised date %q", f, *raw)
		}
		value = DateOf(t).String()
	}
	return value, true, nil
}

// Ptr returns a pointer to s. Handy for building CaseData literals.
func Ptr(s string) *string {
	return &s
}

// CaseView is the display form of a case returned by searches.
type CaseView struct {
	CaseNumber  string `json:"case_number"`
	Petitioner  string `json:"petitioner,omitempty"`
	Respondent  string `json:"respondent,omitempty"`
	FilingDate  string `json:"filing_date,omitempty"`
	NextHearing string `json:"next_hearing,omitempty"`
	Status      string `json:"status,omitempty"`
	Court       string `json:"court,omitempty"`
	CaseType    string `json:"case_type,omitempty"`
	Judge       string `json:"judge,omitempty"`
}

func displayDate(d *Date) string {
	if d == nil {
		return ""
	}
	return normalize.FormatDate(d.Time())
}

// ViewFromRecord renders a stored record with display-formatted dates.
func ViewFromRecord(r *CaseRecord) CaseView {
	return CaseView{
		CaseNumber:  r.CaseNumber,
		Petitioner:  r.Petitioner,
		Respondent:  r.Respondent,
		FilingDate:  displayDate(r.FilingDate),
		NextHearing: displayDate(r.NextHearing),
		Status:      r.Status,
		Court:       r.Court,
		CaseType:    r.CaseType,
		Judge:       r.Judge,
	}
}

// ViewFromData renders a raw fetched record as-is.
func ViewFromData(d CaseData) CaseView {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return CaseView{
		CaseNumber:  d.CaseNumber,
		Petitioner:  deref(d.Petitioner),
		Respondent:  deref(d.Respondent),
		FilingDate:  deref(d.FilingDate),
		NextHearing: deref(d.NextHearing),
		Status:      deref(d.Status),
		Court:       deref(d.Court),
		CaseType:    deref(d.CaseType),
		Judge:       deref(d.Judge),
	}
}

// CaseDetail is the full display form of a single case.
type CaseDetail struct {
	CaseView
	StatusLabel string `json:"status_label"`
	StatusClass string `json:"status_class"`
	UpdatedAt   string `json:"updated_at"`
}

// DetailFromRecord renders a stored record for the case detail view.
func DetailFromRecord(r *CaseRecord) CaseDetail {
	return CaseDetail{
		CaseView:    ViewFromRecord(r),
		StatusLabel: normalize.FormatCaseStatus(r.Status),
		StatusClass: normalize.StatusClass(r.Status),
		UpdatedAt:   r.UpdatedAtTime().UTC().Format(time.RFC3339),
	}
}

