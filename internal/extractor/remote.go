package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"docq/internal/domain"
)

// RemoteOCR sends the file to an external OCR HTTP service and maps the
// response into confidence blocks. The OCR engine itself is a black box
// to this service.
type RemoteOCR struct {
	url    string
	client *http.Client
}

type RemoteOCRConfig struct {
	URL     string
	Timeout time.Duration
}

func NewRemoteOCR(cfg RemoteOCRConfig) *RemoteOCR {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &RemoteOCR{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *RemoteOCR) Name() string { return "remote-ocr" }

func (e *RemoteOCR) Extract(ctx context.Context, path string) (domain.Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Extraction{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return domain.Extraction{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return domain.Extraction{}, err
	}
	if err := writer.Close(); err != nil {
		return domain.Extraction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/ocr", &body)
	if err != nil {
		return domain.Extraction{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.Extraction{}, fmt.Errorf("ocr request failed: %s", resp.Status)
	}

	var out struct {
		Text   string `json:"text"`
		Blocks []struct {
			Text       string      `json:"text"`
			Confidence float64     `json:"confidence"`
			BBox       [][]float64 `json:"bbox"`
		} `json:"blocks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Extraction{}, fmt.Errorf("decode ocr response: %w", err)
	}
	ex := domain.Extraction{Text: out.Text}
	for _, b := range out.Blocks {
		ex.Blocks = append(ex.Blocks, domain.TextBlock{Text: b.Text, Confidence: b.Confidence, Region: b.BBox})
	}
	return ex, nil
}
