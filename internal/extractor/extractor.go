// Package extractor adapts text-extraction backends behind one
// capability boundary: file in, text plus confidence blocks out.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"docq/internal/domain"
)

// Selector routes a stored file to the extractor that can read it.
type Selector struct {
	pdf   domain.Extractor
	plain domain.Extractor
	ocr   domain.Extractor
}

// NewSelector wires the available backends. ocr may be nil when no OCR
// service is configured; image uploads then fail with a clear reason
// instead of silently producing empty text.
func NewSelector(pdf, plain, ocr domain.Extractor) *Selector {
	return &Selector{pdf: pdf, plain: plain, ocr: ocr}
}

// Select picks an extractor by file extension.
func (s *Selector) Select(path string) (domain.Extractor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return s.pdf, nil
	case ".txt":
		return s.plain, nil
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif":
		if s.ocr == nil {
			return nil, fmt.Errorf("no OCR backend configured for %s", filepath.Ext(path))
		}
		return s.ocr, nil
	default:
		return nil, fmt.Errorf("no extractor for %s", filepath.Ext(path))
	}
}

// Names lists the configured backends, for health reporting.
func (s *Selector) Names() []string {
	names := []string{s.pdf.Name(), s.plain.Name()}
	if s.ocr != nil {
		names = append(names, s.ocr.Name())
	}
	return names
}

// Summarize drops blocks below the confidence threshold, rebuilds the
// text from the surviving blocks and returns a confidence summary for
// the document record. Extractions without blocks pass through as-is.
func Summarize(ex domain.Extraction, threshold float64) (string, map[string]any) {
	if len(ex.Blocks) == 0 {
		return ex.Text, map[string]any{
			"blocks":    0,
			"discarded": 0,
		}
	}
	var kept []string
	var sum float64
	discarded := 0
	for _, b := range ex.Blocks {
		if b.Confidence < threshold {
			discarded++
			continue
		}
		kept = append(kept, b.Text)
		sum += b.Confidence
	}
	summary := map[string]any{
		"blocks":    len(kept),
		"discarded": discarded,
	}
	if len(kept) > 0 {
		summary["mean_confidence"] = sum / float64(len(kept))
	}
	return strings.Join(kept, " "), summary
}
