package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nanobanana123/tldraw-agent/internal/retry"
)

func inlineImageResponse(data, mimeType string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{
				{"inlineData": map[string]string{"data": data, "mimeType": mimeType}},
			}}},
		},
	})
	return string(body)
}

func newTestGemini(t *testing.T, apiKey string, handler http.HandlerFunc) (*Gemini, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	g := NewGemini(GeminiConfig{APIKey: apiKey, BaseURL: server.URL})
	g.retryCfg = retry.Config{MaxAttempts: 1}
	return g, server
}

func TestGenerateImageReturnsDataURL(t *testing.T) {
	var gotKey string
	var gotPath string
	g, _ := newTestGemini(t, "custom-key", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(inlineImageResponse("BASE64DATA", "image/png")))
	})

	dataURL, err := g.GenerateImage(context.Background(), ImageRequest{Mode: "generate", Prompt: "a banana"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if dataURL != "data:image/png;base64,BASE64DATA" {
		t.Errorf("dataURL = %q", dataURL)
	}
	if gotKey != "custom-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash-image-preview:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestGenerateImageFallsBackToDefaultKey(t *testing.T) {
	var gotKey string
	g, _ := newTestGemini(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		_, _ = w.Write([]byte(inlineImageResponse("AAA=", "image/png")))
	})

	if _, err := g.GenerateImage(context.Background(), ImageRequest{Mode: "generate", Prompt: "banana"}); err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if gotKey != DefaultGoogleAPIKey {
		t.Errorf("api key header = %q, want built-in default", gotKey)
	}
}

func TestGenerateImageForwardsProviderError(t *testing.T) {
	g, _ := newTestGemini(t, "key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	})

	_, err := g.GenerateImage(context.Background(), ImageRequest{Mode: "generate", Prompt: "invalid"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.Status)
	}
	if apiErr.Message != "bad prompt" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestGenerateImageMissingInlineData(t *testing.T) {
	g, _ := newTestGemini(t, "key", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no image"}]}}]}`))
	})

	_, err := g.GenerateImage(context.Background(), ImageRequest{Mode: "generate", Prompt: "banana"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.Status)
	}
}

func TestGenerateImageEditSendsReference(t *testing.T) {
	var gotBody geminiRequest
	g, _ := newTestGemini(t, "key", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(inlineImageResponse("EDITED", "image/webp")))
	})

	dataURL, err := g.GenerateImage(context.Background(), ImageRequest{
		Mode:       "edit",
		Prompt:     "original prompt",
		EditPrompt: "make it blue",
		Reference:  &Reference{Base64: "REFDATA", MimeType: "image/png"},
	})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if dataURL != "data:image/webp;base64,EDITED" {
		t.Errorf("dataURL = %q", dataURL)
	}

	parts := gotBody.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected reference + text parts, got %d", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.Data != "REFDATA" {
		t.Errorf("first part = %+v, want inline reference", parts[0])
	}
	if parts[1].Text != "make it blue" {
		t.Errorf("edit prompt = %q", parts[1].Text)
	}
}

func TestAnalyzeImageUsesDefaultPrompt(t *testing.T) {
	var gotBody geminiRequest
	g, _ := newTestGemini(t, "key", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" a red square "}]}}]}`))
	})

	description, err := g.AnalyzeImage(context.Background(), "IMGDATA", "image/png", "")
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if description != "a red square" {
		t.Errorf("description = %q", description)
	}

	parts := gotBody.Contents[0].Parts
	if parts[1].Text != defaultAnalysisPrompt {
		t.Errorf("expected default analysis prompt, got %q", parts[1].Text)
	}
}
