// Package normalize validates and canonicalizes user-supplied search terms and
// the loosely formatted values that come back from court websites. Every
// function here is pure.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownCaseType is returned by ExtractCaseType when nothing can be derived.
const UnknownCaseType = "Unknown"

// Accepted case-number grammars, tried in order:
//
//	W.P.(C) 1234/2023
//	LPA 123/2023
//	C.M.(M) 123 of 2023
//	CRL.A. 123-2023
//	generic PREFIX N/YYYY or PREFIX N-YYYY
var caseNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[A-Z.]+\([A-Z]+\)\s+\d+/\d{4}$`),
	regexp.MustCompile(`(?i)^[A-Z.]+\s+\d+/\d{4}$`),
	regexp.MustCompile(`(?i)^[A-Z.]+\([A-Z]+\)\s+\d+\s+of\s+\d{4}$`),
	regexp.MustCompile(`(?i)^[A-Z.]+\s+\d+-\d{4}$`),
	regexp.MustCompile(`(?i)^[A-Z.]+\s+\d+[/\-]\d{4}$`),
}

var caseNumberParts = regexp.MustCompile(`(?i)^(.+?)\s+(\d+)\s*(?:/|-|\s+of\s+)\s*(\d{4})$`)

// KnownCaseTypes lists the case-type abbreviations recognised as prefixes.
var KnownCaseTypes = []string{
	"W.P.(C)", "W.P.(CRL)", "W.P.(MD)", "W.P.(CIVIL)", "W.P.(CRIMINAL)",
	"C.M.(M)", "C.M.(W)", "C.M.(MAIN)", "C.M.(APPL)", "C.M.(NO.)",
	"LPA", "FAO", "RFA", "CRL.A.", "CRL.M.C.", "CRL.REV.P.",
	"C.R.P.", "C.M.", "O.A.", "T.A.", "A.A.", "E.P.",
}

// ValidateCaseNumber reports whether s matches one of the accepted
// case-number grammars. Matching is case-insensitive.
func ValidateCaseNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, p := range caseNumberPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ValidatePartyName reports whether s, once trimmed, has at least two
// characters and at least one letter.
func ValidatePartyName(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// NormalizeCaseNumber trims s, collapses internal whitespace runs to a single
// space and upper-cases the result.
func NormalizeCaseNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ExtractCaseType returns the longest known case-type abbreviation s starts
// with. Without a match it falls back to the first whitespace-delimited token.
func ExtractCaseType(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return UnknownCaseType
	}

	upper := strings.ToUpper(strings.TrimSpace(s))
	best := ""
	for _, ct := range KnownCaseTypes {
		if len(ct) > len(best) && strings.HasPrefix(upper, ct) {
			best = ct
		}
	}
	if best != "" {
		return best
	}
	return fields[0]
}

// SplitCaseNumber breaks a case number into the type, sequence number and
// year fields court search forms ask for.
func SplitCaseNumber(s string) (caseType, number, year string, ok bool) {
	m := caseNumberParts.FindStringSubmatch(strings.Join(strings.Fields(s), " "))
	if m == nil {
		return "", "", "", false
	}
	return strings.ToUpper(m[1]), m[2], m[3], true
}
