// Package format holds the text helpers used to build evaluator summaries.
package format

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Money renders v as dollars with thousands separators and two decimals: $12,345.60.
func Money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Thousands renders v with thousands separators and no trailing zero decimals: 50,000 or 1,250.5.
func Thousands(v float64) string {
	return humanize.Commaf(v)
}

// Title turns a snake_case identifier into Title Case words: meeting_scheduled -> Meeting Scheduled.
func Title(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return cases.Title(language.English).String(s)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Bullets renders items as markdown list lines.
func Bullets(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, "- "+item)
	}
	return out
}

// Normalize lower-cases and trims a categorical input value, substituting fallback when blank.
func Normalize(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	return s
}
