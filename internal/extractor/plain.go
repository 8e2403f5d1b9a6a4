package extractor

import (
	"context"
	"os"

	"docq/internal/domain"
)

// PlainExtractor reads a text file verbatim.
type PlainExtractor struct{}

func NewPlainExtractor() *PlainExtractor { return &PlainExtractor{} }

func (e *PlainExtractor) Name() string { return "plain" }

func (e *PlainExtractor) Extract(ctx context.Context, path string) (domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Extraction{}, err
	}
	return domain.Extraction{Text: string(data)}, nil
}
