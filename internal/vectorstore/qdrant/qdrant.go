// Package qdrant is a minimal REST client to Qdrant with cosine
// distance, payload filtering on document_id and delete-by-filter.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"docq/internal/domain"
)

type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "documents"
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Ensure creates the collection if it does not exist yet.
func (s *Storage) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil, nil); err == nil {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

func (s *Storage) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     r.ID,
			"vector": r.Vector,
			"payload": map[string]any{
				"document_id": r.Payload.DocumentID,
				"chunk_text":  r.Payload.ChunkText,
				"chunk_index": r.Payload.ChunkIndex,
				"metadata":    r.Payload.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float64, limit int, scoreThreshold float64, filter domain.IndexFilter) ([]domain.SearchHit, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		req["score_threshold"] = scoreThreshold
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, domain.SearchHit{
			ChunkID: r.ID,
			Score:   r.Score,
			Payload: payloadFromMap(r.Payload),
		})
	}
	return hits, nil
}

// DeleteDocument removes every point whose payload carries the document
// id, in one delete-by-filter call.
func (s *Storage) DeleteDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": buildFilter(domain.IndexFilter{DocumentID: documentID}),
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection), body, nil)
}

// DocumentIDs scrolls the collection and returns the distinct document
// ids present in point payloads. Used by the reconciliation sweep.
func (s *Storage) DocumentIDs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var ids []string
	var offset any
	for {
		req := map[string]any{
			"limit":        256,
			"with_payload": []string{"document_id"},
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collection), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			id, _ := p.Payload["document_id"].(string)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	return ids, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, fmt.Sprintf("%s/collections", s.url), nil, nil)
}

func buildFilter(filter domain.IndexFilter) map[string]any {
	var match map[string]any
	switch {
	case filter.DocumentID != "":
		match = map[string]any{"value": filter.DocumentID}
	case len(filter.DocumentIDs) > 0:
		match = map[string]any{"any": filter.DocumentIDs}
	default:
		return nil
	}
	return map[string]any{
		"must": []map[string]any{
			{"key": "document_id", "match": match},
		},
	}
}

func payloadFromMap(m map[string]any) domain.ChunkPayload {
	p := domain.ChunkPayload{}
	if v, ok := m["document_id"].(string); ok {
		p.DocumentID = v
	}
	if v, ok := m["chunk_text"].(string); ok {
		p.ChunkText = v
	}
	if v, ok := m["chunk_index"].(float64); ok {
		p.ChunkIndex = int(v)
	}
	if v, ok := m["metadata"].(map[string]any); ok {
		p.Metadata = v
	}
	return p
}

func (s *Storage) do(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
