package challsrvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HttpVectorIndex talks to the similarity index over HTTP. Constructing
// it with an empty base URL yields a permanently unavailable index,
// which the retrieval path treats as "bypass the cache tier".
type HttpVectorIndex struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHttpVectorIndex(baseURL, apiKey string, timeout time.Duration) *HttpVectorIndex {
	return &HttpVectorIndex{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (v *HttpVectorIndex) Available() bool {
	return v != nil && v.baseURL != ""
}

type indexUpsertRequest struct {
	ID       string        `json:"id"`
	Values   []float32     `json:"values"`
	Metadata IndexMetadata `json:"metadata"`
}

type indexQueryRequest struct {
	Vector []float32        `json:"vector"`
	TopK   int              `json:"topK"`
	Filter indexQueryFilter `json:"filter"`
}

type indexQueryFilter struct {
	Topic       string `json:"topic"`
	Difficulty  string `json:"difficulty"`
	NotSolvedBy string `json:"notSolvedBy,omitempty"`
}

type indexQueryResponse struct {
	Matches []struct {
		ID       string        `json:"id"`
		Score    float64       `json:"score"`
		Metadata IndexMetadata `json:"metadata"`
	} `json:"matches"`
}

type indexUpdateRequest struct {
	ID          string        `json:"id"`
	SetMetadata IndexMetadata `json:"setMetadata"`
}

func (v *HttpVectorIndex) Upsert(ctx context.Context, id string, vector []float32, md IndexMetadata) error {
	return v.post(ctx, "/vectors/upsert", indexUpsertRequest{
		ID:       id,
		Values:   vector,
		Metadata: md,
	}, nil)
}

func (v *HttpVectorIndex) Query(ctx context.Context, vector []float32, topK int, filter IndexFilter) ([]IndexMatch, error) {
	var out indexQueryResponse
	err := v.post(ctx, "/query", indexQueryRequest{
		Vector: vector,
		TopK:   topK,
		Filter: indexQueryFilter{
			Topic:       filter.Topic,
			Difficulty:  filter.Difficulty,
			NotSolvedBy: filter.NotSolvedBy,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	matches := make([]IndexMatch, len(out.Matches))
	for i, m := range out.Matches {
		matches[i] = IndexMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}

func (v *HttpVectorIndex) Update(ctx context.Context, id string, md IndexMetadata) error {
	return v.post(ctx, "/vectors/update", indexUpdateRequest{
		ID:          id,
		SetMetadata: md,
	}, nil)
}

func (v *HttpVectorIndex) post(ctx context.Context, path string, reqBody any, respBody any) error {
	if !v.Available() {
		return fmt.Errorf("similarity index is unavailable")
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal index request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Api-Key", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("index returned status %d for %s", resp.StatusCode, path)
	}
	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("failed to decode index response: %w", err)
		}
	}
	return nil
}
