package models

import "time"

// SearchType identifies which search term drove a lookup.
type SearchType string

const (
	SearchByCaseNumber SearchType = "case_number"
	SearchByPartyName  SearchType = "party_name"
)

// SearchLog is an append-only record of one search attempt, written
// whatever the outcome.
type SearchLog struct {
	ID           UUID       `db:"id" json:"id"`
	SearchType   SearchType `db:"search_type" json:"search_type"`
	SearchQuery  string     `db:"search_query" json:"search_query"`
	ResultsCount int        `db:"results_count" json:"results_count"`
	IPAddress    string     `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string     `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt    int64      `db:"created_at" json:"created_at"`
}

// TableName returns the table name for SearchLog.
func (SearchLog) TableName() string {
	return "search_logs"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (s *SearchLog) CreatedAtTime() time.Time {
	return time.Unix(s.CreatedAt, 0)
}
