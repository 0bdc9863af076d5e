package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"offline-llm-be/pkg/rerank"
)

// JinaReranker calls the Jina rerank API (cross-encoder scoring as a service).
type JinaReranker struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
		Document       *struct {
			Text string `json:"text"`
		} `json:"document,omitempty"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var _ rerank.Reranker = &JinaReranker{}

func NewJinaReranker(apiKey string) *JinaReranker {
	return &JinaReranker{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/rerank",
		model:   "jina-reranker-v2-base-multilingual",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewJinaRerankerWithURL points the client at a self-hosted rerank endpoint.
func NewJinaRerankerWithURL(apiKey, baseURL string) *JinaReranker {
	r := NewJinaReranker(apiKey)
	if baseURL != "" {
		r.baseURL = baseURL
	}
	return r
}

func (r *JinaReranker) Rerank(ctx context.Context, query string, docs []string, topK int) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(docs) {
		topK = len(docs)
	}

	reqBody := rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
		TopN:      topK,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.apiKey))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rerank.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: rerank api status %d: %s", rerank.ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var rr rerankResponse
	if err := json.Unmarshal(bodyBytes, &rr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rr.Error != nil {
		return nil, fmt.Errorf("%w: %s", rerank.ErrUnavailable, rr.Error.Message)
	}

	ranked := make([]string, 0, len(rr.Results))
	for _, res := range rr.Results {
		if res.Document != nil {
			ranked = append(ranked, res.Document.Text)
			continue
		}
		if res.Index >= 0 && res.Index < len(docs) {
			ranked = append(ranked, docs[res.Index])
		}
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
