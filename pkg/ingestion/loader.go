package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"offline-llm-be/pkg/store"
)

// ErrNoExtractableText rejects documents that yield no usable content.
var ErrNoExtractableText = errors.New("no extractable text")

// UploadedSource is the source identifier attached to passages ingested from
// request bodies rather than files on disk.
const UploadedSource = "uploaded"

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// DocumentLoader turns a source document into embeddable passages with page
// metadata. Implementations own the extraction format.
type DocumentLoader interface {
	Load(path string) ([]store.Passage, error)
	LoadBytes(data []byte, source string) ([]store.Passage, error)
}

// FileLoader loads text-like documents. Pages are separated by form feeds
// (the convention of text renderings of paginated documents); documents
// without form feeds produce passages with no page number.
type FileLoader struct {
	chunkSize int
	overlap   int
}

var _ DocumentLoader = &FileLoader{}

func NewFileLoader(chunkSize, overlap int) *FileLoader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}
	return &FileLoader{chunkSize: chunkSize, overlap: overlap}
}

func (l *FileLoader) Load(path string) ([]store.Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", path, err)
	}
	return l.LoadBytes(data, filepath.Base(path))
}

func (l *FileLoader) LoadBytes(data []byte, source string) ([]store.Passage, error) {
	if source == "" {
		source = UploadedSource
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, fmt.Errorf("failed to load document %q: %w", source, ErrNoExtractableText)
	}

	now := time.Now().UTC()
	pages := strings.Split(content, "\f")
	paginated := len(pages) > 1

	var passages []store.Passage
	for i, pageText := range pages {
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		var page *int
		if paginated {
			n := i + 1
			page = &n
		}
		for _, chunk := range SplitText(pageText, l.chunkSize, l.overlap) {
			passages = append(passages, store.Passage{
				Text:      chunk,
				Source:    source,
				Page:      page,
				IndexedAt: now,
			})
		}
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("failed to load document %q: %w", source, ErrNoExtractableText)
	}
	return passages, nil
}
