package ai

import (
	"fmt"
	"strings"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	minChunkIterations  = 10000
)

var sentenceMarkers = []string{". ", ".\n", "! ", "!\n", "? ", "?\n"}

// Chunker splits cleaned text into overlapping windows measured in runes,
// preferring to cut after a sentence end, then at whitespace.
type Chunker struct {
	size    int
	overlap int
	// maxIterations overrides the loop ceiling when positive.
	maxIterations int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int {
	return c.size
}

func (c *Chunker) Overlap() int {
	return c.overlap
}

func (c *Chunker) Split(text string) ([]string, error) {
	runes := []rune(text)
	n := len(runes)
	if n <= c.size {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}, nil
		}
		return nil, nil
	}
	limit := c.maxIterations
	if limit <= 0 {
		limit = n + 1
		if limit < minChunkIterations {
			limit = minChunkIterations
		}
	}
	var chunks []string
	start := 0
	for iter := 0; start < n; iter++ {
		if iter >= limit {
			return nil, appErr.Consistency("split text", fmt.Errorf("chunking did not converge after %d iterations", iter))
		}
		end := start + c.size
		if end >= n {
			if s := strings.TrimSpace(string(runes[start:])); s != "" {
				chunks = append(chunks, s)
			}
			break
		}
		split := c.findSplit(runes, start, end)
		if s := strings.TrimSpace(string(runes[start:split])); s != "" {
			chunks = append(chunks, s)
		}
		next := split - c.overlap
		if next <= start {
			step := c.size / 2
			if step < 1 {
				step = 1
			}
			next = start + step
			if next > split {
				next = split
			}
		}
		start = next
	}
	return chunks, nil
}

// findSplit returns the exclusive end of the window starting at start. The
// result is always in (start, end].
func (c *Chunker) findSplit(runes []rune, start, end int) int {
	for _, marker := range sentenceMarkers {
		if pos := lastIndexIn(runes, []rune(marker), start, end); pos > start {
			return pos + len([]rune(marker))
		}
	}
	lower := start + c.size/2
	for i := end - 1; i >= lower && i > start; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i + 1
		}
	}
	return end
}

// lastIndexIn finds the last position p with start <= p and p+len(sub) <= end
// where sub occurs, or -1.
func lastIndexIn(runes, sub []rune, start, end int) int {
	for p := end - len(sub); p >= start; p-- {
		match := true
		for j, r := range sub {
			if runes[p+j] != r {
				match = false
				break
			}
		}
		if match {
			return p
		}
	}
	return -1
}
