// Package format turns raw model output into a chat-safe reply.
//
// The transformations are literal token replacements applied in a fixed order,
// so the output for a given input never depends on markup parsing.
package format

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageChars is the platform hard ceiling for a single outgoing message.
const MaxMessageChars = 4096

const ellipsis = "..."

// listItemTags are replaced before any other tag is removed.
var listItemTags = []struct {
	tag         string
	replacement string
}{
	{"<li>", "\n- "},
	{"</li>", ""},
}

// structuralTags are deleted verbatim. Tags carrying attributes or a different
// case are not matched here; their angle brackets are dropped by the character
// pass that follows.
var structuralTags = []string{
	"<html>", "</html>",
	"<body>", "</body>",
	"<p>", "</p>",
	"<ul>", "</ul>",
}

// escapeChars are removed outright. Entities are not decoded.
var escapeChars = []string{"&", "<", ">"}

// Format strips markup from raw, inserts line breaks before dash bullets and
// after sentence ends, and truncates the result to maxChars characters.
// A maxChars outside [1, MaxMessageChars] is treated as MaxMessageChars.
func Format(raw string, maxChars int) string {
	if maxChars <= 0 || maxChars > MaxMessageChars {
		maxChars = MaxMessageChars
	}

	text := raw
	for _, t := range listItemTags {
		text = strings.ReplaceAll(text, t.tag, t.replacement)
	}
	for _, tag := range structuralTags {
		text = strings.ReplaceAll(text, tag, "")
	}
	for _, c := range escapeChars {
		text = strings.ReplaceAll(text, c, "")
	}

	text = strings.ReplaceAll(text, "- ", "\n-  ")
	text = strings.ReplaceAll(text, ". ", ".\n")

	return Truncate(text, maxChars)
}

// Truncate shortens s to at most maxChars runes, ending with an ellipsis when
// anything was cut. For budgets smaller than the ellipsis itself only the
// leading dots that fit are returned.
func Truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	if maxChars <= len(ellipsis) {
		return ellipsis[:max(maxChars, 0)]
	}
	runes := []rune(s)
	return string(runes[:maxChars-len(ellipsis)]) + ellipsis
}
