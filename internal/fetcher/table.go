package fetcher

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/kimhsiao/courtcache/internal/models"
	"github.com/kimhsiao/courtcache/internal/normalize"
)

// Column targets that are not a single CaseField.
const (
	colCaseNumber = "case_number"
	colParties    = "parties"
)

// headerKeywords maps result table headings onto fields. The first keyword
// contained in a heading wins, so more specific keywords come first.
var headerKeywords = []struct {
	keyword string
	target  string
}{
	{" vs", colParties},
	{"parties", colParties},
	{"party", colParties},
	{"case type", string(models.FieldCaseType)},
	{"next", string(models.FieldNextHearing)},
	{"filing", string(models.FieldFilingDate)},
	{"petitioner", string(models.FieldPetitioner)},
	{"appellant", string(models.FieldPetitioner)},
	{"respondent", string(models.FieldRespondent)},
	{"status", string(models.FieldStatus)},
	{"judge", string(models.FieldJudge)},
	{"bench", string(models.FieldJudge)},
	{"coram", string(models.FieldJudge)},
	{"court", string(models.FieldCourt)},
	{"case", colCaseNumber},
}

var partiesSeparator = regexp.MustCompile(`(?i)\s+(?:vs\.?|v/s\.?|versus)\s+`)

type tableRow struct {
	cells  []string
	header bool
}

// ParseCaseTables reads every table whose heading row names a case number
// column and returns one record per data row. Empty cells are left absent.
func ParseCaseTables(r io.Reader) ([]models.CaseData, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	records := []models.CaseData{}
	for _, table := range findElements(doc, "table") {
		rows := tableRows(table)
		if len(rows) < 2 {
			continue
		}
		columns := mapColumns(rows[0].cells)
		if columns == nil {
			continue
		}
		for _, row := range rows[1:] {
			if row.header {
				continue
			}
			if rec, ok := recordFromRow(columns, row.cells); ok {
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

// mapColumns returns the target of each heading, or nil when no heading is
// a case number column.
func mapColumns(headings []string) []string {
	columns := make([]string, len(headings))
	found := false
	for i, h := range headings {
		h = " " + strings.ToLower(h)
		for _, kw := range headerKeywords {
			if strings.Contains(h, kw.keyword) {
				columns[i] = kw.target
				break
			}
		}
		if columns[i] == colCaseNumber {
			found = true
		}
	}
	if !found {
		return nil
	}
	return columns
}

func recordFromRow(columns, cells []string) (models.CaseData, bool) {
	var rec models.CaseData
	for i, cell := range cells {
		if i >= len(columns) || cell == "" {
			continue
		}
		switch target := columns[i]; target {
		case "":
		case colCaseNumber:
			// Footnote marks and icons are dropped.
			rec.CaseNumber = normalize.CleanText(cell)
		case colParties:
			parts := partiesSeparator.Split(cell, 2)
			rec.Set(models.FieldPetitioner, parts[0])
			if len(parts) == 2 {
				rec.Set(models.FieldRespondent, parts[1])
			}
		default:
			rec.Set(models.CaseField(target), cell)
		}
	}
	return rec, rec.CaseNumber != ""
}

// findElements returns every element named tag under n, in document order.
func findElements(n *html.Node, tag string) []*html.Node {
	var found []*html.Node
	var f func(*html.Node)
	f = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			found = append(found, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return found
}

// tableRows collects the rows belonging to table, skipping nested tables.
func tableRows(table *html.Node) []tableRow {
	var rows []tableRow
	var f func(*html.Node)
	f = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
			case "tr":
				rows = append(rows, rowCells(c))
			default:
				f(c)
			}
		}
	}
	f(table)
	return rows
}

func rowCells(tr *html.Node) tableRow {
	row := tableRow{header: true}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		if c.Data == "td" {
			row.header = false
		}
		row.cells = append(row.cells, nodeText(c))
	}
	return row
}

// nodeText returns the text under n with whitespace collapsed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			b.WriteString(node.Data)
			b.WriteString(" ")
		case node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style"):
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
