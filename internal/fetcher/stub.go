package fetcher

import (
	"context"
	"strings"

	"github.com/kimhsiao/courtcache/internal/models"
)

// StubCaseNumber is the case number the stub reports for party-only queries.
const StubCaseNumber = "W.P.(C) 1234/2023"

// StubFetcher answers every query with one deterministic record. It stands in
// for the court website in development and tests.
type StubFetcher struct{}

// NewStubFetcher creates a StubFetcher.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{}
}

// Name returns "stub".
func (f *StubFetcher) Name() string {
	return ModeStub
}

// Fetch returns the canned record, echoing the query's case number and party
// name so a follow-up search finds it in the store.
func (f *StubFetcher) Fetch(ctx context.Context, q Query) ([]models.CaseData, error) {
	if err := ctx.Err(); err != nil {
		return nil, fetchError(ctx, "stub fetch cancelled", err)
	}

	number := strings.TrimSpace(q.CaseNumber)
	if number == "" {
		number = StubCaseNumber
	}
	petitioner := "Party A"
	if name := strings.TrimSpace(q.PartyName); name != "" {
		petitioner = name
	}

	return []models.CaseData{{
		CaseNumber:  number,
		Petitioner:  models.Ptr(petitioner),
		Respondent:  models.Ptr("Party B"),
		FilingDate:  models.Ptr("2023-04-15"),
		NextHearing: models.Ptr("2025-09-01"),
		Status:      models.Ptr("Pending"),
		Court:       models.Ptr(models.DefaultCourt),
	}}, nil
}
