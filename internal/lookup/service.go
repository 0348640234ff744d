// Package lookup runs case searches against the local store, falling back
// to the external fetcher on a miss.
package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/kimhsiao/courtcache/internal/db"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/fetcher"
	"github.com/kimhsiao/courtcache/internal/logging"
	"github.com/kimhsiao/courtcache/internal/models"
	"github.com/kimhsiao/courtcache/internal/normalize"
)

// Source says where a search answer came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceFetch Source = "fetch"
	SourceNone  Source = "none"
)

// NoCasesMessage accompanies an empty result.
const NoCasesMessage = "No cases found"

// Request is one search as received from a client.
type Request struct {
	CaseNumber string `json:"case_number"`
	PartyName  string `json:"party_name"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// Result is the answer to a search. An empty result carries Message and is
// not an error.
type Result struct {
	Cases   []models.CaseView `json:"cases"`
	Source  Source            `json:"source"`
	Message string            `json:"message,omitempty"`
}

// Config holds lookup tuning.
type Config struct {
	// Limit caps cache probe results.
	Limit int

	// FetchTimeout bounds each fetcher call.
	FetchTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Limit:        db.DefaultSearchLimit,
		FetchTimeout: 30 * time.Second,
	}
}

// Service coordinates the record store and the fetcher.
type Service struct {
	store   db.Store
	fetcher fetcher.Fetcher
	config  Config
	log     *logging.Logger
	now     func() time.Time
}

// NewService creates a new Service. Zero config values take their defaults.
func NewService(store db.Store, f fetcher.Fetcher, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = defaults.Limit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	return &Service{
		store:   store,
		fetcher: f,
		config:  cfg,
		log:     logging.Get(),
		now:     time.Now,
	}
}

// Search answers req from the store when any cached case matches, and
// otherwise from the fetcher, storing what it returns. Fetched records are
// returned as fetched even when storing them fails. Every search that passes
// validation is logged, whatever its outcome.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	caseNumber := normalize.SanitizeInput(req.CaseNumber)
	partyName := normalize.SanitizeInput(req.PartyName)

	if caseNumber == "" && partyName == "" {
		return nil, apperrors.New(apperrors.ErrInvalid, "Please provide either case number or party name")
	}
	if caseNumber != "" && !normalize.ValidateCaseNumber(caseNumber) {
		return nil, apperrors.New(apperrors.ErrInvalid, "Invalid case number format")
	}
	if partyName != "" && !normalize.ValidatePartyName(partyName) {
		return nil, apperrors.New(apperrors.ErrInvalid, "Invalid party name")
	}

	entry := &models.SearchLog{
		SearchType:  models.SearchByPartyName,
		SearchQuery: req.PartyName,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
	}
	if caseNumber != "" {
		entry.SearchType = models.SearchByCaseNumber
		entry.SearchQuery = req.CaseNumber
	}

	result, err := s.search(ctx, req, caseNumber, partyName)
	if result != nil {
		entry.ResultsCount = len(result.Cases)
	}
	s.logSearch(ctx, entry)
	return result, err
}

func (s *Service) search(ctx context.Context, req Request, caseNumber, partyName string) (*Result, error) {
	cached, err := s.store.Search(ctx, db.SearchOptions{
		CaseNumber: caseNumber,
		PartyName:  partyName,
		Limit:      s.config.Limit,
	})
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		s.log.Debug("Cache hit", map[string]interface{}{"case_number": caseNumber, "party_name": partyName, "count": len(cached)})
		views := make([]models.CaseView, len(cached))
		for i, rec := range cached {
			views[i] = models.ViewFromRecord(rec)
		}
		return &Result{Cases: views, Source: SourceCache}, nil
	}

	records := s.fetch(ctx, fetcher.Query{
		CaseNumber: strings.TrimSpace(req.CaseNumber),
		PartyName:  strings.TrimSpace(req.PartyName),
	})
	if len(records) == 0 {
		return &Result{Cases: []models.CaseView{}, Source: SourceNone, Message: NoCasesMessage}, nil
	}

	views := make([]models.CaseView, len(records))
	for i, rec := range records {
		if _, err := s.store.Upsert(ctx, rec); err != nil {
			s.log.Warn("Skipping fetched case", map[string]interface{}{
				"case_number": rec.CaseNumber,
				"error":       err.Error(),
			})
		}
		views[i] = models.ViewFromData(rec)
	}
	return &Result{Cases: views, Source: SourceFetch}, nil
}

// fetch calls the fetcher under the configured timeout. A failure is logged
// and reported as no records.
func (s *Service) fetch(ctx context.Context, q fetcher.Query) []models.CaseData {
	fctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := s.now()
	records, err := s.fetcher.Fetch(fctx, q)
	if err != nil {
		s.log.Warn("Fetch failed", map[string]interface{}{
			"fetcher":     s.fetcher.Name(),
			"case_number": q.CaseNumber,
			"party_name":  q.PartyName,
			"code":        string(apperrors.CodeOf(err)),
			"error":       err.Error(),
		})
		return nil
	}
	s.log.Info("Fetched cases", map[string]interface{}{
		"fetcher":  s.fetcher.Name(),
		"count":    len(records),
		"duration": s.now().Sub(start).String(),
	})
	return records
}

// logSearch records entry. It never fails the search and outlives a
// cancelled request context.
func (s *Service) logSearch(ctx context.Context, entry *models.SearchLog) {
	if err := s.store.LogSearch(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warn("Failed to log search", map[string]interface{}{
			"search_type": string(entry.SearchType),
			"error":       err.Error(),
		})
	}
}

// GetCase returns the stored case with the given number for display.
func (s *Service) GetCase(ctx context.Context, caseNumber string) (*models.CaseDetail, error) {
	number := normalize.SanitizeInput(caseNumber)
	if number == "" {
		return nil, apperrors.New(apperrors.ErrInvalid, "case number is required")
	}
	rec, err := s.store.FindByCaseNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	detail := models.DetailFromRecord(rec)
	return &detail, nil
}

// History returns the recorded field changes of a stored case, oldest first.
func (s *Service) History(ctx context.Context, caseNumber string) ([]*models.CaseUpdate, error) {
	number := normalize.SanitizeInput(caseNumber)
	if number == "" {
		return nil, apperrors.New(apperrors.ErrInvalid, "case number is required")
	}
	rec, err := s.store.FindByCaseNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.store.ListCaseUpdates(ctx, rec.ID)
}

// ListOptions selects stored cases for browsing. Status and the filing date
// range are mutually exclusive; with neither, the most recent cases are
// listed.
type ListOptions struct {
	Status string
	From   string
	To     string
	Limit  int
}

// List returns stored cases for display.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.CaseView, error) {
	status := normalize.SanitizeInput(opts.Status)
	from, err := parseBound("from", opts.From)
	if err != nil {
		return nil, err
	}
	to, err := parseBound("to", opts.To)
	if err != nil {
		return nil, err
	}

	var recs []*models.CaseRecord
	switch {
	case status != "" && (!from.IsZero() || !to.IsZero()):
		return nil, apperrors.New(apperrors.ErrInvalid, "filter by status or by filing date, not both")
	case status != "":
		recs, err = s.store.CasesByStatus(ctx, status, opts.Limit)
	case !from.IsZero() || !to.IsZero():
		recs, err = s.store.CasesByFilingDateRange(ctx, from, to, opts.Limit)
	default:
		recs, err = s.store.RecentCases(ctx, opts.Limit)
	}
	if err != nil {
		return nil, err
	}

	views := make([]models.CaseView, len(recs))
	for i, rec := range recs {
		views[i] = models.ViewFromRecord(rec)
	}
	return views, nil
}

func parseBound(name, s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, nil
	}
	t, ok := normalize.ParseDate(s)
	if !ok {
		return models.Date{}, apperrors.Newf(apperrors.ErrInvalid, "invalid %s date %q", name, s)
	}
	return models.DateOf(t), nil
}

// Statistics returns store-wide counts.
func (s *Service) Statistics(ctx context.Context) (*db.Statistics, error) {
	return s.store.Statistics(ctx)
}

// Suggestions completes a partial search query.
func (s *Service) Suggestions(query string) []string {
	return normalize.SearchSuggestions(normalize.SanitizeInput(query), s.now())
}

// Health reports whether the store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}
