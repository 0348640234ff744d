package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/models"
	"github.com/kimhsiao/courtcache/internal/normalize"
	"github.com/kimhsiao/courtcache/internal/uuid"
)

const (
	// DefaultSearchLimit caps results when the caller does not.
	DefaultSearchLimit = 10
	// MaxSearchLimit is the largest page any query returns.
	MaxSearchLimit = 100
)

const caseColumns = `id, case_number, petitioner, respondent, filing_date, next_hearing,
	status, court, case_type, judge, created_at, updated_at`

// Repository is the record store for cases, their change history and the
// search log.
type Repository struct {
	db  *sql.DB
	now func() time.Time

	// Read statements are prepared on first use and cached. Statements are
	// never prepared inside a transaction: the pool has one connection and
	// the transaction holds it.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	// If another goroutine stored one first, use it and close ours.
	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

// Ping checks that storage is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "database unreachable", err)
	}
	return nil
}

// =====================================================
// Scanning helpers
// =====================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(s rowScanner) (*models.CaseRecord, error) {
	var rec models.CaseRecord
	var petitioner, respondent, filingDate, nextHearing, status, caseType, judge sql.NullString
	err := s.Scan(
		&rec.ID, &rec.CaseNumber, &petitioner, &respondent, &filingDate, &nextHearing,
		&status, &rec.Court, &caseType, &judge, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Petitioner = petitioner.String
	rec.Respondent = respondent.String
	rec.Status = status.String
	rec.CaseType = caseType.String
	rec.Judge = judge.String
	if err := rec.Apply(models.FieldFilingDate, filingDate.String); err != nil {
		return nil, err
	}
	if err := rec.Apply(models.FieldNextHearing, nextHearing.String); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableDate(d *models.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return nullable(d.String())
}

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// =====================================================
// Case lookups
// =====================================================

// FindByCaseNumber returns the case whose number equals number after
// normalization. A missing case is an ErrNotFound error.
func (r *Repository) FindByCaseNumber(ctx context.Context, number string) (*models.CaseRecord, error) {
	key := normalize.NormalizeCaseNumber(number)
	if key == "" {
		return nil, apperrors.New(apperrors.ErrInvalid, "case number is required")
	}

	stmt, err := r.PrepareStmt(ctx, "SELECT "+caseColumns+" FROM court_cases WHERE case_number = ?")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to look up case", err)
	}
	rec, err := scanCase(stmt.QueryRowContext(ctx, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "case %s not found", key)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to look up case", err)
	}
	return rec, nil
}

// GetCase returns the case with the given storage id.
func (r *Repository) GetCase(ctx context.Context, id string) (*models.CaseRecord, error) {
	if err := uuid.Validate("case", id); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "invalid case id", err)
	}

	stmt, err := r.PrepareStmt(ctx, "SELECT "+caseColumns+" FROM court_cases WHERE id = ?")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to load case", err)
	}
	rec, err := scanCase(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "case id %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to load case", err)
	}
	return rec, nil
}

// SearchOptions contains parameters for case searches.
type SearchOptions struct {
	// CaseNumber matches case numbers containing this substring.
	CaseNumber string

	// PartyName matches petitioner or respondent containing this substring.
	PartyName string

	// Limit is the maximum number of results (default 10, max 100).
	Limit int
}

// Search returns cases matching every supplied predicate, case-insensitively.
// Results are in insertion order, which is stable for a fixed store.
func (r *Repository) Search(ctx context.Context, opts SearchOptions) ([]*models.CaseRecord, error) {
	fb := NewFilterBuilder().CaseNumber(opts.CaseNumber).PartyName(opts.PartyName)
	return r.queryCases(ctx, fb, "rowid", opts.Limit)
}

// RecentCases returns the most recently inserted cases.
func (r *Repository) RecentCases(ctx context.Context, limit int) ([]*models.CaseRecord, error) {
	return r.queryCases(ctx, NewFilterBuilder(), "created_at DESC, rowid DESC", limit)
}

// CasesByStatus returns cases whose status equals status, ignoring case.
func (r *Repository) CasesByStatus(ctx context.Context, status string, limit int) ([]*models.CaseRecord, error) {
	fb := NewFilterBuilder().Status(status)
	if !fb.HasFilters() {
		return nil, apperrors.New(apperrors.ErrInvalid, "status is required")
	}
	return r.queryCases(ctx, fb, "rowid", limit)
}

// CasesByFilingDateRange returns cases filed within [from, to].
func (r *Repository) CasesByFilingDateRange(ctx context.Context, from, to models.Date, limit int) ([]*models.CaseRecord, error) {
	fb := NewFilterBuilder().FilingDateRange(from, to)
	if !fb.HasFilters() {
		return nil, apperrors.Newf(apperrors.ErrInvalid, "invalid filing date range %s..%s", from, to)
	}
	return r.queryCases(ctx, fb, "filing_date, rowid", limit)
}

func (r *Repository) queryCases(ctx context.Context, fb *FilterBuilder, orderBy string, limit int) ([]*models.CaseRecord, error) {
	query := "SELECT " + caseColumns + " FROM court_cases"
	where, args := fb.Build()
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + orderBy + " LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "case query failed", err)
	}
	defer rows.Close()

	cases := []*models.CaseRecord{}
	for rows.Next() {
		rec, err := scanCase(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan case", err)
		}
		cases = append(cases, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "case query failed", err)
	}
	return cases, nil
}

// =====================================================
// Upsert
// =====================================================

// Upsert inserts data as a new case, or reconciles it into the existing case
// with the same normalized number. On update, each present field whose
// canonical value differs from the stored one is written and recorded as a
// CaseUpdate; absent fields are untouched. On insert, absent fields take
// their defaults. The whole operation is one transaction.
func (r *Repository) Upsert(ctx context.Context, data models.CaseData) (*models.CaseRecord, error) {
	key := normalize.NormalizeCaseNumber(data.CaseNumber)
	if key == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "case_number is required")
	}

	canonical := make(map[models.CaseField]string, len(models.CaseFields))
	for _, f := range models.CaseFields {
		v, ok, err := data.Canonical(f)
		if err != nil {
			return nil, err
		}
		if ok {
			canonical[f] = v
		}
	}

	var rec *models.CaseRecord
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := findByCaseNumberTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing == nil {
			rec, err = r.insertCase(ctx, tx, key, canonical)
			return err
		}
		rec = existing
		return r.reconcileCase(ctx, tx, rec, canonical)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to upsert case "+key, err)
	}
	return rec, nil
}

func findByCaseNumberTx(ctx context.Context, q querier, key string) (*models.CaseRecord, error) {
	rec, err := scanCase(q.QueryRowContext(ctx, "SELECT "+caseColumns+" FROM court_cases WHERE case_number = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *Repository) insertCase(ctx context.Context, q querier, key string, canonical map[models.CaseField]string) (*models.CaseRecord, error) {
	now := r.now().Unix()
	rec := &models.CaseRecord{
		ID:         models.UUID(uuid.New()),
		CaseNumber: key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, f := range models.CaseFields {
		if v, ok := canonical[f]; ok {
			if err := rec.Apply(f, v); err != nil {
				return nil, err
			}
		}
	}
	if rec.Court == "" {
		rec.Court = models.DefaultCourt
	}
	if rec.CaseType == "" {
		rec.CaseType = normalize.ExtractCaseType(key)
	}

	query := `
	INSERT INTO court_cases (id, case_number, petitioner, respondent, filing_date, next_hearing,
		status, court, case_type, judge, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, rec.ID, rec.CaseNumber,
		nullable(rec.Petitioner), nullable(rec.Respondent),
		nullableDate(rec.FilingDate), nullableDate(rec.NextHearing),
		nullable(rec.Status), rec.Court, nullable(rec.CaseType), nullable(rec.Judge),
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Repository) reconcileCase(ctx context.Context, q querier, rec *models.CaseRecord, canonical map[models.CaseField]string) error {
	now := r.now().Unix()
	if now < rec.CreatedAt {
		now = rec.CreatedAt
	}

	changed := false
	for _, f := range models.CaseFields {
		newValue, ok := canonical[f]
		if !ok {
			continue
		}
		// court is NOT NULL; an empty value keeps the stored court.
		if f == models.FieldCourt && newValue == "" {
			continue
		}
		oldValue, hadOld := rec.FieldValue(f)
		if oldValue == newValue {
			continue
		}

		update := &models.CaseUpdate{
			ID:        models.UUID(uuid.New()),
			CaseID:    rec.ID,
			FieldName: string(f),
			OldValue:  optional(oldValue, hadOld),
			NewValue:  optional(newValue, newValue != ""),
			UpdatedAt: now,
		}
		if err := insertCaseUpdate(ctx, q, update); err != nil {
			return err
		}
		if err := rec.Apply(f, newValue); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return nil
	}

	rec.UpdatedAt = now
	query := `
	UPDATE court_cases
	SET petitioner = ?, respondent = ?, filing_date = ?, next_hearing = ?, status = ?,
		court = ?, case_type = ?, judge = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		nullable(rec.Petitioner), nullable(rec.Respondent),
		nullableDate(rec.FilingDate), nullableDate(rec.NextHearing),
		nullable(rec.Status), rec.Court, nullable(rec.CaseType), nullable(rec.Judge),
		rec.UpdatedAt, rec.ID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("case %s vanished during update", rec.ID)
	}
	return nil
}

// =====================================================
// CaseUpdate Operations
// =====================================================

func insertCaseUpdate(ctx context.Context, q querier, u *models.CaseUpdate) error {
	query := `
	INSERT INTO case_updates (id, case_id, field_name, old_value, new_value, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, u.ID, u.CaseID, u.FieldName, u.OldValue, u.NewValue, u.UpdatedAt)
	return err
}

// ListCaseUpdates returns the change history of a case, oldest first.
func (r *Repository) ListCaseUpdates(ctx context.Context, caseID models.UUID) ([]*models.CaseUpdate, error) {
	query := `
	SELECT id, case_id, field_name, old_value, new_value, updated_at
	FROM case_updates WHERE case_id = ? ORDER BY updated_at, rowid
	`
	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list case updates", err)
	}
	defer rows.Close()

	updates := []*models.CaseUpdate{}
	for rows.Next() {
		var u models.CaseUpdate
		var oldValue, newValue sql.NullString
		if err := rows.Scan(&u.ID, &u.CaseID, &u.FieldName, &oldValue, &newValue, &u.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan case update", err)
		}
		u.OldValue = optional(oldValue.String, oldValue.Valid)
		u.NewValue = optional(newValue.String, newValue.Valid)
		updates = append(updates, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list case updates", err)
	}
	return updates, nil
}

// =====================================================
// SearchLog Operations
// =====================================================

// LogSearch appends a search log entry, assigning its id and timestamp.
// Callers treat failures as non-fatal.
func (r *Repository) LogSearch(ctx context.Context, entry *models.SearchLog) error {
	switch entry.SearchType {
	case models.SearchByCaseNumber, models.SearchByPartyName:
	default:
		return apperrors.Newf(apperrors.ErrValidation, "unknown search type %q", entry.SearchType)
	}

	entry.ID = models.UUID(uuid.New())
	entry.CreatedAt = r.now().Unix()

	query := `
	INSERT INTO search_logs (id, search_type, search_query, results_count, ip_address, user_agent, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, entry.ID, string(entry.SearchType), entry.SearchQuery,
			entry.ResultsCount, nullable(entry.IPAddress), nullable(entry.UserAgent), entry.CreatedAt)
		return err
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to log search", err)
	}
	return nil
}

// Statistics holds aggregate counts over the store.
type Statistics struct {
	TotalCases     int            `json:"total_cases"`
	TotalSearches  int            `json:"total_searches"`
	SearchesByType map[string]int `json:"searches_by_type"`
}

// Statistics returns case and search counts.
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		SearchesByType: map[string]int{
			string(models.SearchByCaseNumber): 0,
			string(models.SearchByPartyName):  0,
		},
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM court_cases").Scan(&stats.TotalCases); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to count cases", err)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT search_type, COUNT(*) FROM search_logs GROUP BY search_type")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to count searches", err)
	}
	defer rows.Close()

	for rows.Next() {
		var searchType string
		var count int
		if err := rows.Scan(&searchType, &count); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to count searches", err)
		}
		stats.SearchesByType[searchType] = count
		stats.TotalSearches += count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to count searches", err)
	}
	return stats, nil
}
