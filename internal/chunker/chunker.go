package chunker

import "pdfrag/internal/models"

// Chunker splits text into fixed-size windows that share overlap characters
// with their neighbor, so a sentence spanning a boundary stays intact in at
// least one chunk.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. overlap must be smaller than size; callers validate
// at config load, but a bad pair is clamped here rather than looping forever.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split slides the window over text and returns the chunks in order, tagged
// with source. The final partial chunk is kept. Empty input yields nil.
func (c *Chunker) Split(text, source string) []models.Chunk {
	if len(text) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]models.Chunk, 0, len(text)/step+1)
	pos := 0
	for {
		end := min(pos+c.size, len(text))
		chunks = append(chunks, models.Chunk{
			Text:   text[pos:end],
			Source: source,
			Order:  len(chunks),
		})
		if end >= len(text) {
			break
		}
		pos += step
	}
	return chunks
}
