package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// FileSource reads the seed CSV from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource constructs a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Open implements faq.SeedSource.
func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	return f, nil
}

// Describe implements faq.SeedSource.
func (s *FileSource) Describe() string {
	return "file:" + s.path
}

var _ faq.SeedSource = (*FileSource)(nil)
