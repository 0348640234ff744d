package normalize

import (
	"strings"
	"time"
)

// DisplayDateLayout renders dates as "05 April 2023".
const DisplayDateLayout = "02 January 2006"

// Date layouts accepted by ParseDate, in priority order. Day-first layouts
// win over month-first ones for ambiguous input such as 03/04/2023.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	"2/1/06",
	"2-1-06",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate tries each accepted layout in turn and returns the first
// successful parse as a UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t with DisplayDateLayout. The zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayDateLayout)
}

// FormatDateString formats a date-like string for display. Blank input
// yields "", and input that matches no known layout is returned unchanged.
func FormatDateString(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return FormatDate(t)
}
