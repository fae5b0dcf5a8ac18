package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
)

func sampleText() string {
	var b strings.Builder
	paragraphs := []string{
		"Go is an open source programming language. It makes it easy to build simple software.",
		"The gopher mascot was designed in 1999. It remains one of the most recognizable mascots in tech.",
		"Concurrency is handled with goroutines. Channels let goroutines communicate safely.",
	}
	for i := 0; i < 20; i++ {
		b.WriteString(paragraphs[i%len(paragraphs)])
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestSplit_EmptyInput(t *testing.T) {
	s := NewSplitter(1000, 200)
	for _, input := range []string{"", "   ", "\n\t\n"} {
		if _, err := s.Split(input); !errors.Is(err, docModel.ErrEmptyDocument) {
			t.Errorf("Split(%q) error = %v; want ErrEmptyDocument", input, err)
		}
	}
}

func TestSplit_SingleChunkForShortText(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks, err := s.Split("just a small note")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "just a small note" {
		t.Errorf("expected the input back as one chunk, got %q", chunks)
	}
}

func TestSplit_ChunkSizeRespected(t *testing.T) {
	s := NewSplitter(200, 40)
	chunks, err := s.Split(sampleText())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if len(c) > s.ChunkSize {
			t.Errorf("chunk %d has %d chars, budget is %d", i, len(c), s.ChunkSize)
		}
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	s := NewSplitter(200, 40)
	chunks, err := s.Split(sampleText())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	for i := 0; i < len(chunks)-1; i++ {
		if len(chunks[i]) < s.Overlap {
			continue
		}
		tail := chunks[i][len(chunks[i])-s.Overlap:]
		if !strings.HasPrefix(chunks[i+1], tail) {
			t.Fatalf("chunk %d does not start with the tail of chunk %d:\ntail: %q\nnext: %q",
				i+1, i, tail, chunks[i+1][:s.Overlap])
		}
	}
}

func TestSplit_Reconstruction(t *testing.T) {
	text := sampleText()
	s := NewSplitter(150, 30)
	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	var b strings.Builder
	consumed := 0
	for _, c := range chunks {
		prefixLen := s.Overlap
		if consumed < prefixLen {
			prefixLen = consumed
		}
		body := c[prefixLen:]
		b.WriteString(body)
		consumed += len(body)
	}
	if b.String() != text {
		t.Error("concatenating chunk bodies did not reproduce the input text")
	}
}

func TestSplit_MonotoneChunkCount(t *testing.T) {
	text := sampleText()
	prevCount := 0
	for _, size := range []int{800, 400, 200, 100} {
		s := NewSplitter(size, 20)
		chunks, err := s.Split(text)
		if err != nil {
			t.Fatalf("Split(size=%d) failed: %v", size, err)
		}
		if len(chunks) < prevCount {
			t.Errorf("chunk count decreased from %d to %d when size shrank to %d",
				prevCount, len(chunks), size)
		}
		prevCount = len(chunks)
	}
}

func TestSplit_NoSeparators(t *testing.T) {
	// one long token forces raw character cuts
	text := strings.Repeat("x", 500)
	s := NewSplitter(100, 10)
	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) < 5 {
		t.Errorf("expected at least 5 raw-cut chunks, got %d", len(chunks))
	}
}
