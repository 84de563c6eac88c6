package vectorstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Passage is one chunk of a source document.
type Passage struct {
	Source  string
	Content string
}

// Ingester accepts passages into a vector store.
type Ingester interface {
	Ingest(ctx context.Context, passages []Passage) error
}

var documentExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// LoadDocuments reads every .txt/.md file under root and chunks it. Files are visited
// in lexical order so passage order is stable across runs.
func LoadDocuments(root string, chunker *Chunker) ([]Passage, error) {
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !documentExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk documents %s: %w", root, err)
	}
	sort.Strings(paths)

	var passages []Passage
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", path, err)
		}
		source, _ := filepath.Rel(root, path)
		for _, chunk := range chunker.Chunk(string(raw)) {
			passages = append(passages, Passage{Source: source, Content: chunk})
		}
	}
	return passages, nil
}
