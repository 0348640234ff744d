// Package fetcher retrieves case records from sources outside the local
// store.
package fetcher

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/kimhsiao/courtcache/internal/config"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/models"
)

// Fetcher modes accepted by New.
const (
	ModeStub = "stub"
	ModeHTTP = "http"
)

// Query carries the search terms exactly as the user supplied them.
type Query struct {
	CaseNumber string
	PartyName  string
}

// Fetcher returns zero or more raw case records for a query. Records may be
// partial or malformed; callers validate them before storing.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]models.CaseData, error)

	// Name identifies the implementation in logs.
	Name() string
}

// New builds the Fetcher selected by cfg.Mode.
func New(cfg config.FetcherConfig) (Fetcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", ModeStub:
		return NewStubFetcher(), nil
	case ModeHTTP:
		if cfg.BaseURL == "" {
			return nil, apperrors.New(apperrors.ErrConfig, "http fetcher needs a base url")
		}
		return NewHTTPFetcher(cfg.BaseURL, cfg.UserAgent, cfg.Timeout), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrConfig, "unknown fetcher mode %q", cfg.Mode)
	}
}

// fetchError classifies a failed fetch, telling deadline expiry apart from
// other failures.
func fetchError(ctx context.Context, message string, err error) error {
	var netErr net.Error
	if ctx.Err() == context.DeadlineExceeded || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(apperrors.ErrFetchTimeout, message, err)
	}
	return apperrors.Wrap(apperrors.ErrFetchFailed, message, err)
}
