package chunker

import (
	"strings"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
)

// Splitter cuts document text into overlapping chunks. Cuts prefer the
// largest boundary available inside the size budget: paragraph, then
// sentence, then word, then a raw character cut. The trailing Overlap
// characters of every chunk are repeated as the prefix of the next one so
// context survives the cut.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// separators ordered from best to worst for semantic meaning
var separators = []string{"\n\n", ". ", " "}

// Split returns at least one chunk for any non-empty input. Whitespace-only
// input counts as empty. Concatenating the chunks with each one's overlap
// prefix removed reproduces the input exactly.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, docModel.ErrEmptyDocument
	}

	var chunks []string
	start := 0
	for start < len(text) {
		prefixStart := start - s.Overlap
		if prefixStart < 0 {
			prefixStart = 0
		}
		prefix := text[prefixStart:start]

		budget := s.ChunkSize - len(prefix)
		if budget < 1 {
			budget = 1
		}

		if start+budget >= len(text) {
			chunks = append(chunks, prefix+text[start:])
			break
		}

		end := cutPoint(text, start, start+budget)
		chunks = append(chunks, prefix+text[start:end])
		start = end
	}
	return chunks, nil
}

// cutPoint picks the end of the current chunk body inside (start, limit],
// preferring the latest occurrence of the best separator class. The cut lands
// just after the separator so no characters are lost.
func cutPoint(text string, start, limit int) int {
	window := text[start:limit]
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx <= 0 {
			continue
		}
		return start + idx + len(sep)
	}
	return limit
}
