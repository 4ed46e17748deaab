package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GenerateImagePayload is the request body for POST /images/generate.
type GenerateImagePayload struct {
	Provider       string        `json:"provider"`
	Mode           string        `json:"mode"`
	Prompt         string        `json:"prompt"`
	EditPrompt     string        `json:"editPrompt,omitempty"`
	Reference      *Reference    `json:"reference,omitempty"`
	TargetMimeType string        `json:"targetMimeType,omitempty"`
	MaxOutputSize  *OutputBounds `json:"maxOutputSize,omitempty"`
}

// OutputBounds caps the dimensions of a generated image.
type OutputBounds struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// GeneratedImage is the success body of POST /images/generate.
type GeneratedImage struct {
	DataURL string  `json:"dataUrl"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
}

type routeError struct {
	Error string `json:"error"`
}

// RouteClient is the engine-side client for the backend routes. The
// action handlers depend on narrow interfaces this client satisfies, so
// tests substitute fakes without any transport.
type RouteClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRouteClient creates a client for the backend at baseURL.
func NewRouteClient(baseURL string, httpClient *http.Client) *RouteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RouteClient{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// GenerateImage calls POST /images/generate.
func (c *RouteClient) GenerateImage(ctx context.Context, payload GenerateImagePayload) (*GeneratedImage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call image route: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var re routeError
		if err := json.Unmarshal(data, &re); err == nil && re.Error != "" {
			return nil, &APIError{Status: resp.StatusCode, Message: re.Error}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: "The image service returned an error."}
	}

	var result struct {
		GeneratedImage
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return nil, &APIError{Status: resp.StatusCode, Message: result.Error}
	}
	if result.DataURL == "" {
		return nil, &APIError{Status: resp.StatusCode, Message: "The image service returned an empty response. Please reissue the request with clear generation instructions."}
	}
	return &result.GeneratedImage, nil
}

// AnalyzeImage calls POST /analyze-image.
func (c *RouteClient) AnalyzeImage(ctx context.Context, dataURL, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"dataUrl": dataURL, "prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze-image", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call analyze route: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("Analyze route returned %d", resp.StatusCode)}
	}

	var result struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Description, nil
}

// Knowledge calls GET /knowledge.
func (c *RouteClient) Knowledge(ctx context.Context, query string) (*KnowledgeResult, error) {
	var result KnowledgeResult
	if err := c.getJSON(ctx, "/knowledge", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Inspiration calls GET /inspiration.
func (c *RouteClient) Inspiration(ctx context.Context, query string) (*InspirationResult, error) {
	var result InspirationResult
	if err := c.getJSON(ctx, "/inspiration", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *RouteClient) getJSON(ctx context.Context, route, query string, out any) error {
	endpoint := fmt.Sprintf("%s%s?q=%s", c.baseURL, route, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s route: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("%s route returned %d", route, resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
