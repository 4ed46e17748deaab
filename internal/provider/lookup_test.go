package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKnowledgeLookupMapsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go language" {
			t.Errorf("query = %q", got)
		}
		_, _ = w.Write([]byte(`{
			"AbstractText": "Go is a programming language.",
			"Heading": "Go",
			"AbstractURL": "https://example.com/go",
			"RelatedTopics": [
				{"Text": "Golang", "FirstURL": "https://example.com/golang"},
				{"Topics": [{"Text": "Gopher", "FirstURL": "https://example.com/gopher"}]}
			]
		}`))
	}))
	defer server.Close()

	client := NewKnowledgeClient(server.URL, nil)
	result, err := client.Lookup(context.Background(), "go language")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if result.Heading != "Go" || result.Summary != "Go is a programming language." {
		t.Errorf("result = %+v", result)
	}
	if len(result.Related) != 2 {
		t.Fatalf("expected nested topics to be flattened, got %d", len(result.Related))
	}
	if result.Related[1].Text != "Gopher" {
		t.Errorf("related[1] = %+v", result.Related[1])
	}
}

func TestKnowledgeLookupFallsBackToRelated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RelatedTopics": [{"Text": "Only topic"}]}`))
	}))
	defer server.Close()

	client := NewKnowledgeClient(server.URL, nil)
	result, err := client.Lookup(context.Background(), "obscure")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if result.Summary != "Only topic" {
		t.Errorf("summary = %q", result.Summary)
	}
	if result.Heading != "obscure" {
		t.Errorf("heading = %q", result.Heading)
	}
}

func TestKnowledgeLookupProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewKnowledgeClient(server.URL, nil)
	if _, err := client.Lookup(context.Background(), "q"); err == nil {
		t.Fatal("expected error for provider failure")
	}
}

func TestInspirationSearchMapsAndCaps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images": [
			{"id": "1", "prompt": "sunset", "src": "big1", "srcSmall": "small1", "width": 512, "height": 512},
			{"id": "2", "prompt": "sunrise", "src": "big2", "srcTiny": "tiny2", "width": 256, "height": 256},
			{"id": "3", "prompt": "noon", "src": "big3", "width": 128, "height": 128},
			{"id": "4", "src": "x"}, {"id": "5", "src": "x"}, {"id": "6", "src": "x"},
			{"id": "7", "src": "x"}, {"id": "8", "src": "x"}, {"id": "9", "src": "x"}
		]}`))
	}))
	defer server.Close()

	client := NewInspirationClient(server.URL, nil)
	result, err := client.Search(context.Background(), "sky")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Inspirations) != 8 {
		t.Fatalf("expected cap of 8, got %d", len(result.Inspirations))
	}
	if result.Inspirations[0].Thumbnail != "small1" {
		t.Errorf("thumbnail[0] = %q, want srcSmall", result.Inspirations[0].Thumbnail)
	}
	if result.Inspirations[1].Thumbnail != "tiny2" {
		t.Errorf("thumbnail[1] = %q, want srcTiny fallback", result.Inspirations[1].Thumbnail)
	}
	if result.Inspirations[2].Thumbnail != "big3" {
		t.Errorf("thumbnail[2] = %q, want src fallback", result.Inspirations[2].Thumbnail)
	}
}
