package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"docq/internal/domain"
)

// PDFExtractor reads the embedded text layer of digital PDFs. Scanned
// PDFs without a text layer yield empty text, which is not an error.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) Extract(ctx context.Context, path string) (domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return domain.Extraction{}, fmt.Errorf("read pdf text: %w", err)
	}
	return domain.Extraction{Text: buf.String()}, nil
}
