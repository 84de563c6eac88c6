package faq

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt sizes.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with a BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (e.g. cl100k_base).
// Loading may need network access the first time; callers fall back to EstimateCounter.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateCounter over-estimates tokens without an encoding table.
type EstimateCounter struct{}

// Count implements TokenCounter: about one token per two runes, never below the word count.
func (EstimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	byRunes := (utf8.RuneCountInString(text) + 1) / 2
	words := len(strings.Fields(text))
	if byRunes < words {
		return words
	}
	return byRunes
}

var (
	_ TokenCounter = (*TiktokenCounter)(nil)
	_ TokenCounter = EstimateCounter{}
)
