package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// UnknownStatus is the display label for a missing status.
const UnknownStatus = "Unknown"

var (
	unsafeChars     = regexp.MustCompile(`[<>"']`)
	disallowedChars = regexp.MustCompile(`[^\w\s\-./()]`)
)

type statusLabel struct {
	keyword string
	label   string
}

// Checked in order; the first keyword contained in the status wins.
var statusLabels = []statusLabel{
	{"pending", "Pending"},
	{"disposed", "Disposed"},
	{"dismissed", "Dismissed"},
	{"closed", "Closed"},
	{"inactive", "Inactive"},
	{"active", "Active"},
	{"withdrawn", "Withdrawn"},
	{"settled", "Settled"},
}

// SanitizeInput strips angle brackets and quotes from user input and
// collapses whitespace. Input is NFC-normalized first so visually identical
// strings compare equal in storage.
func SanitizeInput(s string) string {
	if s == "" {
		return ""
	}
	s = unsafeChars.ReplaceAllString(norm.NFC.String(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// FoldCase returns the NFC form of s with Unicode case folding applied, so
// "Émile" and "émile" fold to the same string.
func FoldCase(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// CleanText collapses whitespace and drops characters outside words,
// spaces and the punctuation used in case numbers.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return disallowedChars.ReplaceAllString(s, "")
}

// FormatCaseStatus maps a free-text status onto the controlled display
// vocabulary, falling back to title case.
func FormatCaseStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownStatus
	}
	lower := strings.ToLower(s)
	for _, sl := range statusLabels {
		if strings.Contains(lower, sl.keyword) {
			return sl.label
		}
	}
	// Casers are stateful, so one per call.
	return cases.Title(language.Und).String(s)
}

// StatusClass buckets a status for presentation: status-pending,
// status-disposed, status-dismissed or status-unknown.
func StatusClass(s string) string {
	lower := strings.ToLower(s)
	switch {
	case lower == "":
		return "status-unknown"
	case containsAny(lower, "pending", "active", "ongoing"):
		return "status-pending"
	case containsAny(lower, "disposed", "closed", "settled"):
		return "status-disposed"
	case containsAny(lower, "dismissed", "withdrawn"):
		return "status-dismissed"
	default:
		return "status-unknown"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most maxLen bytes, ending in "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
