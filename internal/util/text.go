package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NBSP is the non-breaking space the registry page uses inside phone numbers.
const NBSP = "\u00a0"

// CleanCell NFC-normalizes a table cell, turns NBSP into plain spaces and
// collapses runs of whitespace.
func CleanCell(input string) string {
	s := norm.NFC.String(input)
	s = strings.ReplaceAll(s, NBSP, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SplitLines returns the trimmed non-empty lines of text.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = CleanCell(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinCells joins cleaned cells with ", " the way registry rows are
// presented to the recognizer. Empty cells keep their slot. ok is false when
// every cell is empty.
func JoinCells(cells []string) (row string, ok bool) {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		c = CleanCell(c)
		if c != "" {
			ok = true
		}
		out = append(out, c)
	}
	return strings.Join(out, ", "), ok
}

func StringPtr(v string) *string {
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
