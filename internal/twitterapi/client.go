// Package twitterapi is a small client for the twitterapi.io advanced search endpoint.
package twitterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.twitterapi.io"
	DefaultQueryType = "Top"
)

type Client struct {
	baseURL   string
	apiKey    string
	queryType string
	client    *http.Client
}

func NewClient(baseURL, apiKey, queryType string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if queryType == "" {
		queryType = DefaultQueryType
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		queryType: queryType,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SearchResult is one page of raw search hits. Tweets are left undecoded for the normalizer.
type SearchResult struct {
	Tweets      []json.RawMessage
	HasNextPage bool
	NextCursor  string
}

type searchResponse struct {
	Tweets      *[]json.RawMessage `json:"tweets"`
	HasNextPage bool               `json:"has_next_page"`
	NextCursor  string             `json:"next_cursor"`
}

// Search runs one advanced search.
// API: GET /twitter/tweet/advanced_search?query={q}&queryType=Top[&cursor={c}]
func (c *Client) Search(ctx context.Context, query, cursor string) (SearchResult, error) {
	endpoint := fmt.Sprintf("%s/twitter/tweet/advanced_search", c.baseURL)
	q := url.Values{"query": {query}, "queryType": {c.queryType}}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return SearchResult{}, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("twitterapi: search %q: %w", query, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return SearchResult{}, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return SearchResult{}, &RateLimitError{RetryAfter: resp.Header.Get("Retry-After")}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return SearchResult{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var raw searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Tweets == nil {
		return SearchResult{}, fmt.Errorf("%w: no tweets array", ErrMalformedResponse)
	}
	return SearchResult{
		Tweets:      *raw.Tweets,
		HasNextPage: raw.HasNextPage,
		NextCursor:  raw.NextCursor,
	}, nil
}
