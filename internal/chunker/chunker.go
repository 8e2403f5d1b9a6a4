package chunker

import (
	"strings"
)

// SentenceChunker splits extracted text into bounded chunks on sentence
// boundaries, with a fixed-width fallback for text that has none.
type SentenceChunker struct {
	chunkSize    int
	chunkOverlap int
}

func NewSentenceChunker(chunkSize, chunkOverlap int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = 300
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &SentenceChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk is a pure function of (text, chunkSize, chunkOverlap). Sentences
// accumulate greedily into a buffer until the next one would push it past
// chunkSize; the buffer is then flushed and the overflowing sentence
// starts a new chunk. A single sentence longer than chunkSize is kept
// whole rather than force-split. Empty or whitespace-only input yields no
// chunks. Output preserves source order.
func (c *SentenceChunker) Chunk(text string) []string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if flat == "" {
		return nil
	}

	var chunks []string
	var current string
	for _, raw := range strings.Split(flat, ".") {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		sentence += "."
		switch {
		case current == "":
			current = sentence
		case len(current)+1+len(sentence) <= c.chunkSize:
			current += " " + sentence
		default:
			chunks = append(chunks, current)
			current = sentence
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	// No sentence content at all: slide fixed windows over the raw text.
	if len(chunks) == 0 {
		stride := c.chunkSize - c.chunkOverlap
		if stride <= 0 {
			stride = c.chunkSize
		}
		for i := 0; i < len(flat); i += stride {
			end := i + c.chunkSize
			if end > len(flat) {
				end = len(flat)
			}
			if window := strings.TrimSpace(flat[i:end]); window != "" {
				chunks = append(chunks, window)
			}
			if end == len(flat) {
				break
			}
		}
	}
	return chunks
}
