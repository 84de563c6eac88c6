package faq

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseSeedCSV reads question,answer rows. A header row (question/pregunta) is skipped,
// as are rows with an empty question or answer.
func ParseSeedCSV(r io.Reader) ([]Entry, int, error) {
	buffered := bufio.NewReader(r)
	if first, _, err := buffered.ReadRune(); err == nil && first != '\ufeff' {
		_ = buffered.UnreadRune()
	}
	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		entries []Entry
		skipped int
		line    int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read seed csv: %w", err)
		}
		line++
		if line == 1 && isSeedHeader(record) {
			continue
		}
		if len(record) < 2 {
			skipped++
			continue
		}
		question := strings.TrimSpace(record[0])
		answer := strings.TrimSpace(record[1])
		if question == "" || answer == "" {
			skipped++
			continue
		}
		entries = append(entries, Entry{Question: question, Answer: answer})
	}
	return entries, skipped, nil
}

func isSeedHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return first == "question" || first == "pregunta"
}
