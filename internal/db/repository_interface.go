package db

import (
	"context"

	"github.com/kimhsiao/courtcache/internal/models"
)

// CaseRepository defines operations for case record persistence.
// This interface allows mocking for testing.
type CaseRepository interface {
	// FindByCaseNumber retrieves a case by its normalized case number.
	FindByCaseNumber(ctx context.Context, number string) (*models.CaseRecord, error)

	// GetCase retrieves a case by storage id.
	GetCase(ctx context.Context, id string) (*models.CaseRecord, error)

	// Search returns cases matching all supplied substrings.
	Search(ctx context.Context, opts SearchOptions) ([]*models.CaseRecord, error)

	// Upsert inserts or reconciles a case and records field changes.
	Upsert(ctx context.Context, data models.CaseData) (*models.CaseRecord, error)
}

// CaseBrowser defines the listing queries over stored cases.
type CaseBrowser interface {
	RecentCases(ctx context.Context, limit int) ([]*models.CaseRecord, error)
	CasesByStatus(ctx context.Context, status string, limit int) ([]*models.CaseRecord, error)
	CasesByFilingDateRange(ctx context.Context, from, to models.Date, limit int) ([]*models.CaseRecord, error)
	ListCaseUpdates(ctx context.Context, caseID models.UUID) ([]*models.CaseUpdate, error)
}

// SearchLogRepository defines operations for search log persistence.
type SearchLogRepository interface {
	// LogSearch appends a search log entry.
	LogSearch(ctx context.Context, entry *models.SearchLog) error

	// Statistics returns aggregate counts.
	Statistics(ctx context.Context) (*Statistics, error)
}

// Store combines everything the lookup workflow needs from storage.
type Store interface {
	CaseRepository
	CaseBrowser
	SearchLogRepository

	// Ping checks that storage is reachable.
	Ping(ctx context.Context) error
}

// Ensure *Repository implements the interfaces at compile time.
var (
	_ CaseRepository      = (*Repository)(nil)
	_ CaseBrowser         = (*Repository)(nil)
	_ SearchLogRepository = (*Repository)(nil)
	_ Store               = (*Repository)(nil)
)
