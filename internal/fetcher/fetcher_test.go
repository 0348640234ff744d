package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/courtcache/internal/config"
	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/models"
)

const resultsTable = `<table>
  <tr><th>S.No.</th><th>Case No.</th><th>Petitioner Vs. Respondent</th><th>Date of Filing</th><th>Next Date</th><th>Status</th></tr>
  <tr><td>1</td><td>W.P.(C) 1234/2023</td><td>Ram Kumar Vs. State of Delhi</td><td>15/04/2023</td><td>01/09/2025</td><td><b>Pending</b></td></tr>
  <tr><td>2</td><td>W.P.(C) 99/2023</td><td>Sunita Devi</td><td></td><td></td><td>Disposed</td></tr>
  <tr><td>3</td><td></td><td>no number</td><td></td><td></td><td></td></tr>
</table>`

const resultsPage = `<!DOCTYPE html>
<html><head><title>Case Status</title></head>
<body>
<table id="layout"><tr><td>menu</td></tr></table>
` + resultsTable + `
</body></html>`

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

// =====================================================
// Stub
// =====================================================

func TestStubFetcher(t *testing.T) {
	f := NewStubFetcher()
	assert.Equal(t, "stub", f.Name())

	got, err := f.Fetch(context.Background(), Query{CaseNumber: "LPA 12/2024"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LPA 12/2024", got[0].CaseNumber)
	assert.Equal(t, "Party A", deref(got[0].Petitioner))
	assert.Equal(t, "Party B", deref(got[0].Respondent))
	assert.Equal(t, "2023-04-15", deref(got[0].FilingDate))
	assert.Equal(t, "2025-09-01", deref(got[0].NextHearing))

	again, err := f.Fetch(context.Background(), Query{CaseNumber: "LPA 12/2024"})
	require.NoError(t, err)
	assert.Equal(t, got, again, "stub output is deterministic")

	byParty, err := f.Fetch(context.Background(), Query{PartyName: "Sharma"})
	require.NoError(t, err)
	assert.Equal(t, StubCaseNumber, byParty[0].CaseNumber)
	assert.Equal(t, "Sharma", deref(byParty[0].Petitioner))
}

func TestStubFetcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStubFetcher().Fetch(ctx, Query{CaseNumber: "LPA 1/2024"})
	assert.True(t, apperrors.Is(err, apperrors.ErrFetchFailed))
}

func TestNew(t *testing.T) {
	f, err := New(config.FetcherConfig{Mode: "stub"})
	require.NoError(t, err)
	assert.IsType(t, &StubFetcher{}, f)

	f, err = New(config.FetcherConfig{Mode: "HTTP", BaseURL: "http://court.example/search", Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	_, err = New(config.FetcherConfig{Mode: "http"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfig))

	_, err = New(config.FetcherConfig{Mode: "selenium"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfig))
}

// =====================================================
// Table parsing
// =====================================================

func TestParseCaseTables(t *testing.T) {
	got, err := ParseCaseTables(strings.NewReader(resultsPage))
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "W.P.(C) 1234/2023", first.CaseNumber)
	assert.Equal(t, "Ram Kumar", deref(first.Petitioner))
	assert.Equal(t, "State of Delhi", deref(first.Respondent))
	assert.Equal(t, "15/04/2023", deref(first.FilingDate))
	assert.Equal(t, "01/09/2025", deref(first.NextHearing))
	assert.Equal(t, "Pending", deref(first.Status))

	second := got[1]
	assert.Equal(t, "Sunita Devi", deref(second.Petitioner))
	assert.Nil(t, second.Respondent)
	assert.Nil(t, second.FilingDate, "empty cells stay absent")
	assert.Equal(t, "Disposed", deref(second.Status))
}

func TestParseCaseTables_NoCaseColumn(t *testing.T) {
	got, err := ParseCaseTables(strings.NewReader(`<html><table><tr><th>Name</th></tr><tr><td>x</td></tr></table></html>`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMapColumns(t *testing.T) {
	cols := mapColumns([]string{"Case Type", "Case Number", "Court", "Coram", "Parties", "Misc"})
	assert.Equal(t, []string{
		string(models.FieldCaseType), colCaseNumber, string(models.FieldCourt),
		string(models.FieldJudge), colParties, "",
	}, cols)

	assert.Nil(t, mapColumns([]string{"Petitioner", "Status"}))
}

// =====================================================
// HTTP fetcher
// =====================================================

func TestHTTPFetcher_PostsFormAndParses(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"full page", "text/html", resultsPage},
		{"form fragment", "text/html", "<form method=\"post\">" + resultsTable + "</form>"},
		{"center fragment", "text/html; charset=iso-8859-1", "<center>" + resultsTable + "</center>"},
		{"xhtml with prolog", "text/html; charset=utf-8", `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html><html xmlns="http://www.w3.org/1999/xhtml"><body>` + resultsTable + `</body></html>`},
		{"xhtml served as xml", "text/xml", `<?xml version="1.0"?><html><body>` + resultsTable + `</body></html>`},
		{"xhtml media type", "application/xhtml+xml", `<html><body>` + resultsTable + `</body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var form url.Values
			var userAgent string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, r.ParseForm())
				form = r.PostForm
				userAgent = r.UserAgent()
				w.Header().Set("Content-Type", tt.contentType)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			f := NewHTTPFetcher(srv.URL, "courtcache-test", 5*time.Second)
			got, err := f.Fetch(context.Background(), Query{CaseNumber: "W.P.(C) 1234/2023", PartyName: "Ram"})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "W.P.(C) 1234/2023", got[0].CaseNumber)

			assert.Equal(t, "W.P.(C)", form.Get("case_type"))
			assert.Equal(t, "1234", form.Get("case_no"))
			assert.Equal(t, "2023", form.Get("year"))
			assert.Equal(t, "Ram", form.Get("party_name"))
			assert.Equal(t, "courtcache-test", userAgent)
		})
	}
}

func TestHTMLResponse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   bool
	}{
		{"declared html", "text/html; charset=utf-8", "<form></form>", true},
		{"declared xhtml", "application/xhtml+xml", "<html/>", true},
		{"xml with html root", "application/xml", "<?xml version=\"1.0\"?><HTML></HTML>", true},
		{"xml without html", "text/xml", "<?xml version=\"1.0\"?><cases/>", false},
		{"no header sniffs html", "", "<!DOCTYPE html><html><body></body></html>", true},
		{"octet stream sniffs html", "application/octet-stream", "<html><body></body></html>", true},
		{"no header and pdf", "", "%PDF-1.4 binary", false},
		{"declared json", "application/json", `{"cases":[]}`, false},
		{"declared plain text", "text/plain", "<table></table>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := htmlResponse(tt.header, []byte(tt.body))
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHTTPFetcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    apperrors.ErrorCode
		timeout time.Duration
		delay   time.Duration
	}{
		{"server error", http.StatusInternalServerError, "<html>oops</html>", apperrors.ErrFetchFailed, time.Second, 0},
		{"captcha", http.StatusOK, "<html><form>Enter the CAPTCHA</form></html>", apperrors.ErrFetchFailed, time.Second, 0},
		{"not html", http.StatusOK, "%PDF-1.4 binary", apperrors.ErrFetchFailed, time.Second, 0},
		{"slow", http.StatusOK, resultsPage, apperrors.ErrFetchTimeout, 50 * time.Millisecond, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			f := NewHTTPFetcher(srv.URL, "", tt.timeout)
			_, err := f.Fetch(context.Background(), Query{CaseNumber: "LPA 1/2024"})
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestHTTPFetcher_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher(srv.URL, "", time.Minute)
	_, err := f.Fetch(ctx, Query{CaseNumber: "LPA 1/2024"})
	assert.True(t, apperrors.Is(err, apperrors.ErrFetchTimeout), "got %v", err)
}

func TestSearchForm(t *testing.T) {
	_, err := searchForm(Query{CaseNumber: "nonsense"})
	assert.True(t, apperrors.Is(err, apperrors.ErrFetchFailed))

	_, err = searchForm(Query{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))

	form, err := searchForm(Query{CaseNumber: "C.M.(M) 123 of 2023"})
	require.NoError(t, err)
	assert.Equal(t, "C.M.(M)", form.Get("case_type"))
	assert.Equal(t, "123", form.Get("case_no"))
	assert.Equal(t, "2023", form.Get("year"))
}

// =====================================================
// Probe
// =====================================================

func TestProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head><title> Case  Status </title></head><body>
			<form><input name="case_no"><input name="year"></form>
			Search civil and criminal appeal matters by case number.</body></html>`)
	})
	mux.HandleFunc("/never", func(w http.ResponseWriter, r *http.Request) {
		t.Error("probe should stop at the first working URL")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	report := Probe(context.Background(), srv.Client(), "probe-test",
		[]string{srv.URL + "/down", srv.URL + "/search", srv.URL + "/never"})

	assert.Equal(t, srv.URL+"/search", report.WorkingURL)
	require.Len(t, report.Results, 2)
	assert.Equal(t, http.StatusServiceUnavailable, report.Results[0].StatusCode)

	ok := report.Results[1]
	assert.Equal(t, "Case Status", ok.Title)
	assert.Equal(t, 1, ok.Forms)
	assert.Equal(t, 2, ok.Inputs)
	assert.False(t, ok.HasCaptcha)
	assert.True(t, ok.HasCaseSearch)
	assert.Equal(t, []string{"civil", "criminal", "appeal", "case number"}, ok.Keywords)
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	report := Probe(context.Background(), http.DefaultClient, "", []string{addr})
	assert.Empty(t, report.WorkingURL)
	require.Len(t, report.Results, 1)
	assert.NotEmpty(t, report.Results[0].Error)
}
