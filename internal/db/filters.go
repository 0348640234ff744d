package db

import (
	"fmt"
	"strings"

	"github.com/kimhsiao/courtcache/internal/models"
	"github.com/kimhsiao/courtcache/internal/normalize"
)

// Filter represents a single case query filter condition.
type Filter interface {
	// SQL returns the SQL fragment for this filter
	SQL() string

	// Args returns the arguments for this filter
	Args() []interface{}

	// Valid checks if the filter is valid
	Valid() bool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a substring into a LIKE pattern, escaping the
// wildcard characters it contains.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// CaseNumberFilter matches case numbers containing Substring,
// case-insensitively.
type CaseNumberFilter struct {
	Substring string
}

// Valid checks if the substring is usable.
func (f *CaseNumberFilter) Valid() bool {
	return strings.TrimSpace(f.Substring) != ""
}

// SQL returns the SQL fragment for case number filtering.
func (f *CaseNumberFilter) SQL() string {
	return `case_number LIKE ? ESCAPE '\'`
}

// Args returns the arguments for case number filtering.
func (f *CaseNumberFilter) Args() []interface{} {
	return []interface{}{containsPattern(f.Substring)}
}

// PartyNameFilter matches cases where either party contains Substring,
// comparing Unicode case-folded text.
type PartyNameFilter struct {
	Substring string
}

// Valid checks if the substring is usable.
func (f *PartyNameFilter) Valid() bool {
	return strings.TrimSpace(f.Substring) != ""
}

// SQL returns the SQL fragment for party name filtering.
// Uses OR logic across petitioner and respondent.
func (f *PartyNameFilter) SQL() string {
	return `(fold(petitioner) LIKE ? ESCAPE '\' OR fold(respondent) LIKE ? ESCAPE '\')`
}

// Args returns the arguments for party name filtering.
func (f *PartyNameFilter) Args() []interface{} {
	p := containsPattern(normalize.FoldCase(f.Substring))
	return []interface{}{p, p}
}

// StatusFilter matches an exact status, ignoring case.
type StatusFilter struct {
	Status string
}

// Valid checks if the status is set.
func (f *StatusFilter) Valid() bool {
	return strings.TrimSpace(f.Status) != ""
}

// SQL returns the SQL fragment for status filtering.
func (f *StatusFilter) SQL() string {
	return "status = ? COLLATE NOCASE"
}

// Args returns the arguments for status filtering.
func (f *StatusFilter) Args() []interface{} {
	return []interface{}{f.Status}
}

// FilingDateRangeFilter matches filing dates within [From, To]. Either bound
// may be zero to leave that side open.
type FilingDateRangeFilter struct {
	From models.Date
	To   models.Date
}

// Valid checks if the date range is valid.
func (f *FilingDateRangeFilter) Valid() bool {
	if f.From.IsZero() && f.To.IsZero() {
		return false
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.Time().After(f.To.Time()) {
		return false
	}
	return true
}

// SQL returns the SQL fragment for date range filtering. ISO dates compare
// correctly as text.
func (f *FilingDateRangeFilter) SQL() string {
	var parts []string
	if !f.From.IsZero() {
		parts = append(parts, "filing_date >= ?")
	}
	if !f.To.IsZero() {
		parts = append(parts, "filing_date <= ?")
	}
	return strings.Join(parts, " AND ")
}

// Args returns the arguments for date range filtering.
func (f *FilingDateRangeFilter) Args() []interface{} {
	var args []interface{}
	if !f.From.IsZero() {
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		args = append(args, f.To.String())
	}
	return args
}

// FilterBuilder builds SQL filter conditions from multiple filters.
type FilterBuilder struct {
	filters []Filter
}

// NewFilterBuilder creates a new FilterBuilder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]Filter, 0),
	}
}

func (fb *FilterBuilder) add(f Filter) *FilterBuilder {
	if f.Valid() {
		fb.filters = append(fb.filters, f)
	}
	return fb
}

// CaseNumber adds a case number substring filter.
func (fb *FilterBuilder) CaseNumber(substring string) *FilterBuilder {
	return fb.add(&CaseNumberFilter{Substring: substring})
}

// PartyName adds a party name substring filter.
func (fb *FilterBuilder) PartyName(substring string) *FilterBuilder {
	return fb.add(&PartyNameFilter{Substring: substring})
}

// Status adds an exact status filter.
func (fb *FilterBuilder) Status(status string) *FilterBuilder {
	return fb.add(&StatusFilter{Status: status})
}

// FilingDateRange adds a filing date range filter.
func (fb *FilterBuilder) FilingDateRange(from, to models.Date) *FilterBuilder {
	return fb.add(&FilingDateRangeFilter{From: from, To: to})
}

// HasFilters returns true if any filters have been added.
func (fb *FilterBuilder) HasFilters() bool {
	return len(fb.filters) > 0
}

// Count returns the number of filters.
func (fb *FilterBuilder) Count() int {
	return len(fb.filters)
}

// Build returns the filters ANDed together as a WHERE body, and their
// arguments. The SQL is empty when there are no filters.
func (fb *FilterBuilder) Build() (string, []interface{}) {
	if !fb.HasFilters() {
		return "", nil
	}

	var sqlParts []string
	var args []interface{}

	for _, filter := range fb.filters {
		sqlParts = append(sqlParts, filter.SQL())
		args = append(args, filter.Args()...)
	}

	return strings.Join(sqlParts, " AND "), args
}

// String returns a string representation of the filters (for debugging).
func (fb *FilterBuilder) String() string {
	if !fb.HasFilters() {
		return "(no filters)"
	}

	var parts []string
	for _, filter := range fb.filters {
		parts = append(parts, fmt.Sprintf("%T", filter))
	}
	return strings.Join(parts, ", ")
}
