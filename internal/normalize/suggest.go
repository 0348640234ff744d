package normalize

import (
	"strconv"
	"strings"
	"time"
)

const maxSuggestions = 5

var suggestedCaseTypes = []string{
	"W.P.(C)", "W.P.(CRL)", "LPA", "FAO", "RFA",
	"CRL.A.", "C.M.(M)", "C.M.(W)",
}

// SearchSuggestions completes a partial query with case-type prefixes and
// the five most recent years relative to now.
func SearchSuggestions(query string, now time.Time) []string {
	suggestions := []string{}
	if len(query) < 2 {
		return suggestions
	}

	lower := strings.ToLower(query)
	for _, ct := range suggestedCaseTypes {
		if strings.HasPrefix(strings.ToLower(ct), lower) {
			suggestions = append(suggestions, ct+" ")
		}
	}

	for year := now.Year(); year > now.Year()-5; year-- {
		y := strconv.Itoa(year)
		if strings.HasPrefix(y, query) {
			suggestions = append(suggestions, y)
		}
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
