package lookup

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/courtcache/internal/db"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/fetcher"
	"github.com/kimhsiao/courtcache/internal/logging"
	"github.com/kimhsiao/courtcache/internal/models"
)

// countingFetcher returns fixed records and counts calls.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	queries []fetcher.Query
	records []models.CaseData
	err     error
	block   bool
}

func (f *countingFetcher) Name() string { return "counting" }

func (f *countingFetcher) Fetch(ctx context.Context, q fetcher.Query) ([]models.CaseData, error) {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, apperrors.Wrap(apperrors.ErrFetchTimeout, "fetch timed out", ctx.Err())
	}
	return f.records, f.err
}

// failingStore breaks selected store operations and records logged searches.
type failingStore struct {
	*db.Repository
	failUpsert bool
	failLog    bool
	logged     []models.SearchLog
}

func (s *failingStore) Upsert(ctx context.Context, data models.CaseData) (*models.CaseRecord, error) {
	if s.failUpsert {
		return nil, apperrors.New(apperrors.ErrDatabase, "disk full")
	}
	return s.Repository.Upsert(ctx, data)
}

func (s *failingStore) LogSearch(ctx context.Context, entry *models.SearchLog) error {
	s.logged = append(s.logged, *entry)
	if s.failLog {
		return apperrors.New(apperrors.ErrDatabase, "disk full")
	}
	return s.Repository.LogSearch(ctx, entry)
}

func newRepo(t *testing.T) *db.Repository {
	t.Helper()
	conn, err := db.OpenPath(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn.DB))
	repo := db.NewRepository(conn.DB)
	t.Cleanup(func() {
		repo.Close()
		conn.Close()
	})
	return repo
}

func fetched(number string) models.CaseData {
	return models.CaseData{
		CaseNumber:  number,
		Petitioner:  models.Ptr("Party A"),
		Respondent:  models.Ptr("Party B"),
		FilingDate:  models.Ptr("2023-04-15"),
		NextHearing: models.Ptr("2025-09-01"),
		Status:      models.Ptr("pending"),
	}
}

func searchCounts(t *testing.T, repo *db.Repository) map[string]int {
	t.Helper()
	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	return stats.SearchesByType
}

func init() {
	logging.Init(&bytes.Buffer{}, logging.LevelError)
}

// =====================================================
// Validation
// =====================================================

func TestSearch_Validation(t *testing.T) {
	repo := newRepo(t)
	f := &countingFetcher{}
	svc := NewService(repo, f, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"nothing", Request{}},
		{"blank", Request{CaseNumber: "  ", PartyName: "\t"}},
		{"bad case number", Request{CaseNumber: "hello"}},
		{"bad party name", Request{PartyName: "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(ctx, tt.req)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalid), "got %v", err)
		})
	}
	assert.Zero(t, f.calls)
}

// =====================================================
// Cache miss, fetch, cache hit
// =====================================================

func TestSearch_FetchThenCacheHit(t *testing.T) {
	repo := newRepo(t)
	f := &countingFetcher{records: []models.CaseData{fetched("W.P.(C) 1234/2023")}}
	svc := NewService(repo, f, Config{})
	ctx := context.Background()

	first, err := svc.Search(ctx, Request{CaseNumber: " w.p.(c) 1234/2023 ", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, SourceFetch, first.Source)
	require.Len(t, first.Cases, 1)
	assert.Equal(t, "2023-04-15", first.Cases[0].FilingDate, "fetched data is returned raw")
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "w.p.(c) 1234/2023", f.queries[0].CaseNumber, "fetcher gets the user's spelling")

	second, err := svc.Search(ctx, Request{CaseNumber: "W.P.(C) 1234/2023"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	require.Len(t, second.Cases, 1)
	assert.Equal(t, "15 April 2023", second.Cases[0].FilingDate)
	assert.Equal(t, models.DefaultCourt, second.Cases[0].Court)
	assert.Equal(t, 1, f.calls, "cache hit must not fetch")

	assert.Equal(t, 2, searchCounts(t, repo)["case_number"])
}

func TestSearch_FetchFailureIsEmptyResult(t *testing.T) {
	store := &failingStore{Repository: newRepo(t)}
	f := &countingFetcher{err: apperrors.New(apperrors.ErrFetchFailed, "site down")}
	svc := NewService(store, f, Config{})

	res, err := svc.Search(context.Background(), Request{PartyName: " Sharma ", UserAgent: "curl/8"})
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, NoCasesMessage, res.Message)
	assert.NotNil(t, res.Cases)
	assert.Empty(t, res.Cases)

	require.Len(t, store.logged, 1)
	entry := store.logged[0]
	assert.Equal(t, models.SearchByPartyName, entry.SearchType)
	assert.Equal(t, " Sharma ", entry.SearchQuery, "the raw query is logged")
	assert.Zero(t, entry.ResultsCount)
	assert.Equal(t, "curl/8", entry.UserAgent)
	assert.Equal(t, 1, searchCounts(t, store.Repository)["party_name"])
}

func TestSearch_FetchTimeout(t *testing.T) {
	repo := newRepo(t)
	f := &countingFetcher{block: true}
	svc := NewService(repo, f, Config{FetchTimeout: 20 * time.Millisecond})

	start := time.Now()
	res, err := svc.Search(context.Background(), Request{CaseNumber: "LPA 123/2023"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, 1, searchCounts(t, repo)["case_number"])
}

func TestSearch_SkipsMalformedRecords(t *testing.T) {
	repo := newRepo(t)
	bad := fetched("LPA 7/2024")
	bad.FilingDate = models.Ptr("not a date")
	f := &countingFetcher{records: []models.CaseData{bad, fetched("LPA 8/2024")}}
	svc := NewService(repo, f, Config{})
	ctx := context.Background()

	res, err := svc.Search(ctx, Request{PartyName: "Party"})
	require.NoError(t, err)
	assert.Len(t, res.Cases, 2, "caller sees every fetched record")

	_, err = repo.FindByCaseNumber(ctx, "LPA 7/2024")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = repo.FindByCaseNumber(ctx, "LPA 8/2024")
	assert.NoError(t, err)
}

func TestSearch_StorageFailureStillAnswers(t *testing.T) {
	store := &failingStore{Repository: newRepo(t), failUpsert: true, failLog: true}
	f := &countingFetcher{records: []models.CaseData{fetched("FAO 5/2022")}}
	svc := NewService(store, f, Config{})

	res, err := svc.Search(context.Background(), Request{CaseNumber: "FAO 5/2022"})
	require.NoError(t, err)
	assert.Equal(t, SourceFetch, res.Source)
	require.Len(t, res.Cases, 1)
	assert.Equal(t, "FAO 5/2022", res.Cases[0].CaseNumber)
}

func TestSearch_BothTermsAreANDed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	_, err := repo.Upsert(ctx, models.CaseData{CaseNumber: "LPA 1/2023", Petitioner: models.Ptr("Sharma")})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, models.CaseData{CaseNumber: "LPA 2/2023", Petitioner: models.Ptr("Gupta")})
	require.NoError(t, err)

	f := &countingFetcher{}
	svc := NewService(repo, f, Config{})

	res, err := svc.Search(ctx, Request{CaseNumber: "LPA 2/2023", PartyName: "gupta"})
	require.NoError(t, err)
	require.Len(t, res.Cases, 1)
	assert.Equal(t, "LPA 2/2023", res.Cases[0].CaseNumber)

	res, err = svc.Search(ctx, Request{CaseNumber: "LPA 2/2023", PartyName: "Sharma"})
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	require.Len(t, f.queries, 1)
	assert.Equal(t, fetcher.Query{CaseNumber: "LPA 2/2023", PartyName: "Sharma"}, f.queries[0])
}

func TestSearch_StoreProbeFailure(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, &countingFetcher{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Search(ctx, Request{CaseNumber: "LPA 1/2023"})
	assert.True(t, apperrors.Is(err, apperrors.ErrDatabase))
	assert.Equal(t, 1, searchCounts(t, repo)["case_number"], "failed searches are still logged")
}

// =====================================================
// Case detail, history and listing
// =====================================================

func TestGetCaseAndHistory(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, &countingFetcher{}, Config{})
	ctx := context.Background()

	_, err := svc.GetCase(ctx, "LPA 9/2023")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = svc.GetCase(ctx, " ")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))

	_, err = repo.Upsert(ctx, fetched("LPA 9/2023"))
	require.NoError(t, err)
	update := fetched("LPA 9/2023")
	update.Status = models.Ptr("Disposed")
	_, err = repo.Upsert(ctx, update)
	require.NoError(t, err)

	detail, err := svc.GetCase(ctx, "lpa 9/2023")
	require.NoError(t, err)
	assert.Equal(t, "LPA 9/2023", detail.CaseNumber)
	assert.Equal(t, "01 September 2025", detail.NextHearing)
	assert.Equal(t, "Disposed", detail.StatusLabel)
	assert.Equal(t, "status-disposed", detail.StatusClass)

	history, err := svc.History(ctx, "LPA 9/2023")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "status", history[0].FieldName)
}

func TestList(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, &countingFetcher{}, Config{})
	ctx := context.Background()

	for _, c := range []models.CaseData{fetched("LPA 1/2023"), fetched("LPA 2/2023")} {
		_, err := repo.Upsert(ctx, c)
		require.NoError(t, err)
	}

	recent, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	pending, err := svc.List(ctx, ListOptions{Status: "PENDING"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	filed, err := svc.List(ctx, ListOptions{From: "01/04/2023", To: "30/04/2023"})
	require.NoError(t, err)
	assert.Len(t, filed, 2)

	_, err = svc.List(ctx, ListOptions{From: "yesterday"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))

	_, err = svc.List(ctx, ListOptions{Status: "pending", From: "2023-01-01"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
}

func TestPassThroughs(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, &countingFetcher{}, Config{})
	svc.now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }

	assert.NoError(t, svc.Health(context.Background()))

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCases)

	assert.NotEmpty(t, svc.Suggestions("LP"))
	assert.Empty(t, svc.Suggestions("L"))
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, nil, Config{})
	assert.Equal(t, DefaultConfig(), svc.config)

	custom := NewService(nil, nil, Config{Limit: 3, FetchTimeout: time.Second})
	assert.Equal(t, Config{Limit: 3, FetchTimeout: time.Second}, custom.config)
}
