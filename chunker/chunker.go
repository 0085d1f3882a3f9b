// Package chunker splits extracted text into overlapping, bounded chunks.
//
// Cuts prefer a paragraph break, then a line break, then a sentence end,
// then any whitespace, looking only in the back half of the window so no
// chunk is shorter than half the target size. With no boundary in range the
// cut is made at exactly the target size. Consecutive chunks of one source
// share exactly Overlap characters. Lengths and offsets count runes.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/extract"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// separators in order of preference.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", " "}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the target chunk length in characters.
func WithChunkSize(n int) Option {
	return func(c *Chunker) error {
		if n <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d", n)
		}
		c.size = n
		return nil
	}
}

// WithOverlap sets the number of characters shared by consecutive chunks.
func WithOverlap(n int) Option {
	return func(c *Chunker) error {
		if n < 0 {
			return fmt.Errorf("overlap must not be negative, got %d", n)
		}
		c.overlap = n
		return nil
	}
}

// Chunker splits text into core.Chunks.
type Chunker struct {
	size    int
	overlap int
}

var _ textsplitter.TextSplitter = (*Chunker)(nil)

// New creates a Chunker. The overlap must be smaller than half the chunk
// size; a zero overlap is always accepted.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := CheckOverlap(c.size, c.overlap); err != nil {
		return nil, err
	}
	return c, nil
}

// CheckOverlap reports whether overlap suits chunks of size characters.
// Every chunk but the last is at least half the size long, so a larger
// overlap could stop the split from advancing.
func CheckOverlap(size, overlap int) error {
	if overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap > 0 && overlap >= size/2 {
		return fmt.Errorf("overlap must be less than half the chunk size (%d), got %d", size/2, overlap)
	}
	return nil
}

// Size returns the target chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks one source text. Empty text yields no chunks.
func (c *Chunker) Split(sourceID core.ID, text string) []core.Chunk {
	runes := []rune(text)
	spans := c.spans(runes)

	chunks := make([]core.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, core.Chunk{
			SourceID: sourceID,
			Index:    i,
			Text:     string(runes[s.start:s.end]),
			Start:    s.start,
			End:      s.end,
		})
	}
	return chunks
}

// SplitSources chunks every source in order. Indexes restart at zero for
// each source.
func (c *Chunker) SplitSources(sources []extract.Source) []core.Chunk {
	var chunks []core.Chunk
	for _, src := range sources {
		chunks = append(chunks, c.Split(src.ID, src.Text)...)
	}
	return chunks
}

// SplitText implements textsplitter.TextSplitter.
func (c *Chunker) SplitText(text string) ([]string, error) {
	chunks := c.Split(0, text)
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out, nil
}

type span struct {
	start, end int
}

func (c *Chunker) spans(runes []rune) []span {
	n := len(runes)
	if n == 0 {
		return nil
	}

	var spans []span
	start := 0
	for {
		if n-start <= c.size {
			spans = append(spans, span{start, n})
			return spans
		}
		end := c.cut(runes, start)
		spans = append(spans, span{start, end})
		start = end - c.overlap
	}
}

// cut picks the end of the chunk that begins at start. The result lies in
// (start+size/2, start+size], which keeps every cut past the overlap.
func (c *Chunker) cut(runes []rune, start int) int {
	limit := start + c.size
	floor := start + max(c.size/2, c.overlap+1)

	window := string(runes[start:limit])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		end := start + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
		if end > floor {
			return end
		}
	}
	return limit
}
