package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short", 100, 10)
	assert.Equal(t, []string{"short"}, chunks)
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := SplitText(text, 10, 3)

	assert.Len(t, chunks, 4)
	for _, c := range chunks[:3] {
		assert.Len(t, c, 10)
	}
	// step is chunkSize-overlap = 7, so the last chunk starts at 21
	assert.Len(t, chunks[3], 4)
}

func TestLoadBytesPaginated(t *testing.T) {
	l := NewFileLoader(100, 0)
	data := []byte("first page text\fsecond page text")

	passages, err := l.LoadBytes(data, "doc.txt")

	assert.NoError(t, err)
	assert.Len(t, passages, 2)
	if assert.NotNil(t, passages[0].Page) {
		assert.Equal(t, 1, *passages[0].Page)
	}
	if assert.NotNil(t, passages[1].Page) {
		assert.Equal(t, 2, *passages[1].Page)
	}
	assert.Equal(t, "doc.txt", passages[0].Source)
}

func TestLoadBytesSinglePageHasNoPageNumber(t *testing.T) {
	l := NewFileLoader(100, 0)

	passages, err := l.LoadBytes([]byte("just one block of text"), "")

	assert.NoError(t, err)
	assert.Len(t, passages, 1)
	assert.Nil(t, passages[0].Page)
	assert.Equal(t, UploadedSource, passages[0].Source)
}

func TestLoadBytesEmptyDocument(t *testing.T) {
	l := NewFileLoader(100, 0)

	_, err := l.LoadBytes([]byte("   \n\f  "), "empty.txt")

	assert.Error(t, err)
}
