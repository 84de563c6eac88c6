package vectorstore

import "strings"

// Chunker splits a document into passages of at most MaxWords words, carrying Overlap
// trailing words of the previous passage into the next one.
type Chunker struct {
	MaxWords int
	Overlap  int
}

// NewChunker constructs a chunker with defaults.
func NewChunker(maxWords, overlap int) *Chunker {
	if maxWords <= 0 {
		maxWords = 200
	}
	if overlap < 0 || overlap >= maxWords {
		overlap = 0
	}
	return &Chunker{MaxWords: maxWords, Overlap: overlap}
}

// Chunk splits by lines and then by word budget. Line breaks inside a passage are kept.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var (
		current strings.Builder
		words   int
		out     []string
	)

	flush := func() {
		content := strings.TrimSpace(current.String())
		current.Reset()
		words = 0
		if content != "" {
			out = append(out, content)
		}
	}

	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		for _, word := range strings.Fields(line) {
			if words >= c.MaxWords {
				flush()
				if c.Overlap > 0 && len(out) > 0 {
					tail := tailWords(out[len(out)-1], c.Overlap)
					current.WriteString(strings.Join(tail, " "))
					current.WriteString(" ")
					words = len(tail)
				}
			}
			current.WriteString(word)
			current.WriteString(" ")
			words++
		}
		current.WriteString("\n")
	}
	flush()
	return out
}

func tailWords(text string, limit int) []string {
	tokens := strings.Fields(text)
	if len(tokens) <= limit {
		return tokens
	}
	return tokens[len(tokens)-limit:]
}
