package parser

import (
	"regexp"
	"strings"
)

var (
	// "1." / "12." at the start of a line. Checked against the following
	// rune so dates such as "2025.11.24" do not count as list markers.
	listMarkerRe = regexp.MustCompile(`(?m)^[ \t]*\d{1,3}\.`)

	paragraphBreakRe = regexp.MustCompile(`\n(?:[ \t]*\n)+`)
)

// Segment splits raw multi-event text into per-event fragments. The first
// rule that applies wins:
//
//  1. numbered list items ("1. ...", "2. ...")
//  2. blank-line separated paragraphs
//  3. the whole text as one fragment
//
// Fragments are trimmed and never empty. Blank input yields nil.
func Segment(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	if parts := splitNumbered(text); len(parts) > 0 {
		return parts
	}
	if paragraphBreakRe.MatchString(text) {
		return nonEmpty(paragraphBreakRe.Split(text, -1))
	}
	return []string{text}
}

func splitNumbered(text string) []string {
	var cuts [][2]int
	for _, loc := range listMarkerRe.FindAllStringIndex(text, -1) {
		end := loc[1]
		if end < len(text) && text[end] >= '0' && text[end] <= '9' {
			continue
		}
		cuts = append(cuts, [2]int{loc[0], end})
	}
	if len(cuts) == 0 {
		return nil
	}

	parts := make([]string, 0, len(cuts)+1)
	parts = append(parts, text[:cuts[0][0]])
	for i, c := range cuts {
		next := len(text)
		if i+1 < len(cuts) {
			next = cuts[i+1][0]
		}
		parts = append(parts, text[c[1]:next])
	}
	return nonEmpty(parts)
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
