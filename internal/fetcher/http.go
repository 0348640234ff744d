package fetcher

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/models"
	"github.com/kimhsiao/courtcache/internal/normalize"
)

// maxBodyBytes caps how much of a result page is read.
const maxBodyBytes = 4 << 20

// HTTPFetcher submits the court's case search form and reads the result
// table from the returned page.
type HTTPFetcher struct {
	httpClient *http.Client
	searchURL  string
	userAgent  string
}

// NewHTTPFetcher creates an HTTPFetcher posting to searchURL.
func NewHTTPFetcher(searchURL, userAgent string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		searchURL: searchURL,
		userAgent: userAgent,
	}
}

// Name returns "http".
func (f *HTTPFetcher) Name() string {
	return ModeHTTP
}

// Fetch posts the query as case_type, case_no and year form fields (plus
// party_name when given) and parses every case row out of the response.
func (f *HTTPFetcher) Fetch(ctx context.Context, q Query) ([]models.CaseData, error) {
	form, err := searchForm(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.searchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFetchFailed, "failed to build search request", err)
	}
	setBrowserHeaders(req, f.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fetchError(ctx, "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.ErrFetchFailed, "search returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fetchError(ctx, "failed to read search response", err)
	}
	if contentType, ok := htmlResponse(resp.Header.Get("Content-Type"), body); !ok {
		return nil, apperrors.Newf(apperrors.ErrFetchFailed, "search returned %s, not a results page", contentType)
	}
	if hasCaptcha(string(body)) {
		return nil, apperrors.New(apperrors.ErrFetchFailed, "search page demands a captcha")
	}

	records, err := ParseCaseTables(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFetchFailed, "failed to parse search results", err)
	}
	return records, nil
}

// htmlResponse reports whether a response is an HTML page, trusting the
// declared media type and sniffing the body only when none is declared.
// It also returns the type it judged by.
func htmlResponse(header string, body []byte) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = ""
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return mediaType, true
	case "text/xml", "application/xml":
		// XHTML served with a generic XML type.
		return mediaType, bytes.Contains(bytes.ToLower(body), []byte("<html"))
	case "", "application/octet-stream":
		mt := mimetype.Detect(body)
		return mt.String(), mt.Is("text/html") || mt.Is("application/xhtml+xml")
	default:
		return mediaType, false
	}
}

// searchForm maps a query onto the court's search form fields.
func searchForm(q Query) (url.Values, error) {
	form := url.Values{}
	if number := strings.TrimSpace(q.CaseNumber); number != "" {
		caseType, seq, year, ok := normalize.SplitCaseNumber(number)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrFetchFailed, "cannot split %q into search form fields", number)
		}
		form.Set("case_type", caseType)
		form.Set("case_no", seq)
		form.Set("year", year)
	}
	if name := strings.TrimSpace(q.PartyName); name != "" {
		form.Set("party_name", name)
	}
	if len(form) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalid, "empty fetch query")
	}
	return form, nil
}

// setBrowserHeaders makes requests look like an ordinary browser visit; the
// court site turns away obvious clients.
func setBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func hasCaptcha(page string) bool {
	return strings.Contains(strings.ToLower(page), "captcha")
}
