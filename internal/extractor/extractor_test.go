package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docq/internal/domain"
)

func TestSummarizeFiltersLowConfidenceBlocks(t *testing.T) {
	ex := domain.Extraction{
		Blocks: []domain.TextBlock{
			{Text: "Total: R$ 150,00", Confidence: 0.95},
			{Text: "smudge", Confidence: 0.1},
			{Text: "venceu em 10/05/2024", Confidence: 0.85},
		},
	}
	text, summary := Summarize(ex, 0.3)
	assert.Equal(t, "Total: R$ 150,00 venceu em 10/05/2024", text)
	assert.Equal(t, 2, summary["blocks"])
	assert.Equal(t, 1, summary["discarded"])
	assert.InDelta(t, 0.9, summary["mean_confidence"].(float64), 1e-9)
}

func TestSummarizePassThroughWithoutBlocks(t *testing.T) {
	text, summary := Summarize(domain.Extraction{Text: "plain body"}, 0.3)
	assert.Equal(t, "plain body", text)
	assert.Equal(t, 0, summary["blocks"])
}

func TestSelectorRouting(t *testing.T) {
	s := NewSelector(NewPDFExtractor(), NewPlainExtractor(), nil)

	ex, err := s.Select("upload/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", ex.Name())

	ex, err = s.Select("upload/abc.TXT")
	require.NoError(t, err)
	assert.Equal(t, "plain", ex.Name())

	_, err = s.Select("upload/abc.png")
	assert.Error(t, err, "image without OCR backend must be rejected")

	_, err = s.Select("upload/abc.docx")
	assert.Error(t, err)
}

func TestPlainExtractorReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello extractor"), 0o644))

	ex, err := NewPlainExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello extractor", ex.Text)
	assert.Empty(t, ex.Blocks)
}
