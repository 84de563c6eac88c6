package faq

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lowerer = cases.Lower(language.Spanish)

// Normalize turns free text into the token string used for matching: NFC, lower-case,
// punctuation stripped (not replaced), whitespace collapsed, Spanish stop-words removed.
// Stop-word-only input yields "", which callers must read as "no signal".
func Normalize(text string) string {
	lowered := lowerer.String(norm.NFC.String(text))

	var builder strings.Builder
	builder.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			builder.WriteRune(r)
		}
	}

	fields := strings.Fields(builder.String())
	kept := fields[:0]
	for _, token := range fields {
		if _, stop := spanishStopWords[token]; stop {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// tokenize keeps one-character tokens such as "1" or "b".
func tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}
