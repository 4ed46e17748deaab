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

// Inspiration is one visual reference returned by the search.
type Inspiration struct {
	ID        string  `json:"id"`
	Prompt    string  `json:"prompt"`
	Thumbnail string  `json:"thumbnail"`
	Src       string  `json:"src"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// InspirationResult is the normalized search result.
type InspirationResult struct {
	Query        string        `json:"query"`
	Inspirations []Inspiration `json:"inspirations"`
}

// InspirationClient queries the Lexica image search API.
type InspirationClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewInspirationClient creates an inspiration client. baseURL defaults
// to the public Lexica API.
func NewInspirationClient(baseURL string, httpClient *http.Client) *InspirationClient {
	if baseURL == "" {
		baseURL = "https://lexica.art"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &InspirationClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type lexicaImage struct {
	ID       string  `json:"id"`
	Prompt   string  `json:"prompt"`
	Src      string  `json:"src"`
	SrcSmall string  `json:"srcSmall"`
	SrcTiny  string  `json:"srcTiny"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

type lexicaResponse struct {
	Images []lexicaImage `json:"images"`
}

// Search fetches up to eight inspiration references for query.
func (c *InspirationClient) Search(ctx context.Context, query string) (*InspirationResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "canvas-agent/1.0 (inspiration lookup)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call inspiration provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Inspiration provider returned %d", resp.StatusCode)}
	}

	var data lexicaResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode inspiration response: %w", err)
	}

	images := data.Images
	if len(images) > 8 {
		images = images[:8]
	}

	inspirations := make([]Inspiration, 0, len(images))
	for _, image := range images {
		thumbnail := image.SrcSmall
		if thumbnail == "" {
			thumbnail = image.SrcTiny
		}
		if thumbnail == "" {
			thumbnail = image.Src
		}
		inspirations = append(inspirations, Inspiration{
			ID:        image.ID,
			Prompt:    image.Prompt,
			Thumbnail: thumbnail,
			Src:       image.Src,
			Width:     image.Width,
			Height:    image.Height,
		})
	}

	return &InspirationResult{Query: query, Inspirations: inspirations}, nil
}
