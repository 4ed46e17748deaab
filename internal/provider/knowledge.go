package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// KnowledgeResult is the normalized answer for one lookup.
type KnowledgeResult struct {
	Query     string         `json:"query"`
	Heading   string         `json:"heading"`
	Summary   string         `json:"summary"`
	SourceURL string         `json:"sourceUrl,omitempty"`
	Related   []RelatedTopic `json:"related"`
}

// RelatedTopic is one related entry from the knowledge provider.
type RelatedTopic struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// KnowledgeClient queries the DuckDuckGo Instant Answer API.
type KnowledgeClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewKnowledgeClient creates a knowledge client. baseURL defaults to the
// public DuckDuckGo API.
func NewKnowledgeClient(baseURL string, httpClient *http.Client) *KnowledgeClient {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &KnowledgeClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type duckDuckGoTopic struct {
	Text     string            `json:"Text"`
	FirstURL string            `json:"FirstURL"`
	Topics   []duckDuckGoTopic `json:"Topics"`
}

type duckDuckGoResponse struct {
	Abstract      string            `json:"Abstract"`
	AbstractText  string            `json:"AbstractText"`
	Heading       string            `json:"Heading"`
	AbstractURL   string            `json:"AbstractURL"`
	RelatedTopics []duckDuckGoTopic `json:"RelatedTopics"`
}

// Lookup fetches and normalizes an instant answer for query.
func (c *KnowledgeClient) Lookup(ctx context.Context, query string) (*KnowledgeResult, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_redirect=1&no_html=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "canvas-agent/1.0 (knowledge lookup)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call knowledge provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Knowledge provider returned %d", resp.StatusCode)}
	}

	var data duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode knowledge response: %w", err)
	}

	heading := data.Heading
	if heading == "" {
		heading = query
	}

	var related []RelatedTopic
	for _, topic := range data.RelatedTopics {
		if topic.Text != "" {
			related = append(related, RelatedTopic{Text: topic.Text, URL: topic.FirstURL})
		}
		for _, sub := range topic.Topics {
			if sub.Text != "" {
				related = append(related, RelatedTopic{Text: sub.Text, URL: sub.FirstURL})
			}
		}
	}

	abstract := data.AbstractText
	if abstract == "" {
		abstract = data.Abstract
	}
	summary := abstract
	if summary == "" && len(related) > 0 {
		summary = related[0].Text
	}
	if summary == "" {
		summary = fmt.Sprintf("No summary found for %q.", query)
	}

	if len(related) > 10 {
		related = related[:10]
	}

	return &KnowledgeResult{
		Query:     query,
		Heading:   heading,
		Summary:   summary,
		SourceURL: data.AbstractURL,
		Related:   related,
	}, nil
}
