package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spaceRunRe   = regexp.MustCompile(` +`)
	lineBreakRe  = regexp.MustCompile(`[\n\r\t]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	punctuationReplacer = strings.NewReplacer(
		"：", ":",
		"，", ",",
		"；", ";",
		"。", ".",
		"（", "(",
		"）", ")",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

// Glyphs OCR engines commonly emit for table borders and speckles.
const ocrNoise = "|¦‖ॉ"

// Normalize cleans raw (possibly OCR) text for extraction. It is pure and
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.TrimSpace(raw)
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineBreakRe.ReplaceAllString(text, " ")
	text = stripOCRNoise(text)
	text = punctuationReplacer.Replace(text)
	text = collapsePunctuation(text)

	// Earlier steps can leave adjacent spaces behind.
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stripOCRNoise drops noise glyphs that are not touching a word character.
// "a|b" is kept, "a | b" and "||" become spaces.
func stripOCRNoise(s string) string {
	if !strings.ContainsAny(s, ocrNoise) {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i, r := range runes {
		if strings.ContainsRune(ocrNoise, r) {
			prevWord := i > 0 && isWordRune(runes[i-1])
			nextWord := i+1 < len(runes) && isWordRune(runes[i+1])
			if !prevWord && !nextWord {
				out = append(out, ' ')
				continue
			}
		}
		out = append(out, r)
	}
	return string(out)
}

func isCollapsiblePunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?':
		return true
	}
	return false
}

// collapsePunctuation turns runs of the same punctuation mark into one.
func collapsePunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if r == prev && isCollapsiblePunct(r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
