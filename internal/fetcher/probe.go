package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/kimhsiao/courtcache/internal/normalize"
)

// DefaultProbeURLs are the candidate court pages tried, in order, when no
// probe URLs are configured.
var DefaultProbeURLs = []string{
	"https://delhihighcourt.nic.in/case.asp",
	"https://delhihighcourt.nic.in/case_status.asp",
	"https://delhihighcourt.nic.in/case-status",
	"https://delhihighcourt.nic.in/case_status",
	"https://delhihighcourt.nic.in/",
	"https://delhihighcourt.nic.in/case_status.php",
}

const maxTitleLen = 100

var caseKeywords = []string{"writ petition", "civil", "criminal", "appeal", "case number"}

// ProbeResult describes one probed URL.
type ProbeResult struct {
	URL           string   `json:"url"`
	StatusCode    int      `json:"status_code,omitempty"`
	Title         string   `json:"title,omitempty"`
	HasCaptcha    bool     `json:"has_captcha"`
	Forms         int      `json:"forms"`
	Inputs        int      `json:"inputs"`
	HasCaseSearch bool     `json:"has_case_search"`
	Keywords      []string `json:"keywords"`
	Error         string   `json:"error,omitempty"`
}

// ProbeReport is the outcome of a Probe run. WorkingURL is empty when no
// candidate answered 200.
type ProbeReport struct {
	WorkingURL string        `json:"working_url,omitempty"`
	Results    []ProbeResult `json:"results"`
}

// Probe checks which candidate URL serves a usable case search page. URLs
// are tried in order and probing stops at the first 200 response.
func Probe(ctx context.Context, client *http.Client, userAgent string, urls []string) *ProbeReport {
	if len(urls) == 0 {
		urls = DefaultProbeURLs
	}

	report := &ProbeReport{Results: []ProbeResult{}}
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		result := probeURL(ctx, client, userAgent, u)
		report.Results = append(report.Results, result)
		if result.StatusCode == http.StatusOK {
			report.WorkingURL = u
			break
		}
	}
	return report
}

func probeURL(ctx context.Context, client *http.Client, userAgent, u string) ProbeResult {
	result := ProbeResult{URL: u, Keywords: []string{}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	setBrowserHeaders(req, userAgent)

	resp, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	lower := strings.ToLower(string(body))
	result.HasCaptcha = hasCaptcha(lower)
	result.HasCaseSearch = strings.Contains(lower, "case") && strings.Contains(lower, "search")
	for _, kw := range caseKeywords {
		if strings.Contains(lower, kw) {
			result.Keywords = append(result.Keywords, kw)
		}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if titles := findElements(doc, "title"); len(titles) > 0 {
		result.Title = normalize.Truncate(nodeText(titles[0]), maxTitleLen)
	}
	result.Forms = len(findElements(doc, "form"))
	result.Inputs = len(findElements(doc, "input"))
	return result
}
