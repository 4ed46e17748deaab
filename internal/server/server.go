// Package server exposes the backend routes consumed by the canvas
// engine: image generation/editing, image analysis, and the knowledge
// and inspiration lookups.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanobanana123/tldraw-agent/internal/media"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
	"github.com/nanobanana123/tldraw-agent/internal/provider"
)

// GenerationProvider is the vision provider surface the routes need.
type GenerationProvider interface {
	GenerateImage(ctx context.Context, req provider.ImageRequest) (string, error)
	AnalyzeImage(ctx context.Context, base64Data, mimeType, prompt string) (string, error)
}

// KnowledgeProvider answers instant-answer lookups.
type KnowledgeProvider interface {
	Lookup(ctx context.Context, query string) (*provider.KnowledgeResult, error)
}

// InspirationProvider searches for visual references.
type InspirationProvider interface {
	Search(ctx context.Context, query string) (*provider.InspirationResult, error)
}

// Server hosts the backend routes.
type Server struct {
	gemini      GenerationProvider
	knowledge   KnowledgeProvider
	inspiration InspirationProvider
	logger      *observability.Logger
	metrics     *observability.Metrics

	httpServer *http.Server
}

// Config wires a Server.
type Config struct {
	Addr        string
	Gemini      GenerationProvider
	Knowledge   KnowledgeProvider
	Inspiration InspirationProvider
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	s := &Server{
		gemini:      cfg.Gemini,
		knowledge:   cfg.Knowledge,
		inspiration: cfg.Inspiration,
		logger:      logger,
		metrics:     cfg.Metrics,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the route mux. Exposed separately so tests can drive
// the routes without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /images/generate", s.handleGenerateImage)
	mux.HandleFunc("POST /analyze-image", s.handleAnalyzeImage)
	mux.HandleFunc("GET /knowledge", s.handleKnowledge)
	mux.HandleFunc("GET /inspiration", s.handleInspiration)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// ListenAndServe runs the server until Shutdown or a listener error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Info(ctx, "starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn(context.Background(), "failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, route string, status int, message string) {
	s.metrics.RecordRoute(route, strconv.Itoa(status))
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	const route = "/images/generate"
	ctx := r.Context()

	var payload provider.GenerateImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.jsonError(w, route, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if payload.Provider == "" {
		payload.Provider = "google-gemini"
	}
	if payload.Mode == "" {
		payload.Mode = "generate"
	}

	if payload.Provider != "google-gemini" {
		s.jsonError(w, route, http.StatusBadRequest, "Unsupported provider: "+payload.Provider)
		return
	}
	if payload.Prompt == "" {
		s.jsonError(w, route, http.StatusBadRequest, "prompt is required")
		return
	}
	if payload.Mode == "edit" && payload.Reference == nil {
		s.jsonError(w, route, http.StatusBadRequest, "Edit requests must include `reference` image data.")
		return
	}

	dataURL, err := s.gemini.GenerateImage(ctx, provider.ImageRequest{
		Mode:           payload.Mode,
		Prompt:         payload.Prompt,
		EditPrompt:     payload.EditPrompt,
		Reference:      payload.Reference,
		TargetMimeType: payload.TargetMimeType,
	})
	if err != nil {
		s.metrics.RecordProviderError("gemini-image")
		s.logger.Error(ctx, "image generation failed", "mode", payload.Mode, "error", err)
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			s.jsonError(w, route, apiErr.Status, apiErr.Message)
			return
		}
		s.jsonError(w, route, http.StatusInternalServerError, "Unexpected error generating image.")
		return
	}

	result := provider.GeneratedImage{DataURL: dataURL}
	if bounded, width, height, ok := s.applyOutputBounds(ctx, dataURL, payload.MaxOutputSize); ok {
		result.DataURL = bounded
		result.Width = width
		result.Height = height
	}

	s.metrics.RecordRoute(route, "200")
	s.jsonResponse(w, http.StatusOK, result)
}

// applyOutputBounds downscales the generated image when the request
// caps its dimensions, and reports the final pixel size. Failures to
// decode are tolerated: the unbounded image is still a usable result.
func (s *Server) applyOutputBounds(ctx context.Context, dataURL string, bounds *provider.OutputBounds) (string, float64, float64, bool) {
	blob, err := media.ParseDataURL(dataURL)
	if err != nil {
		s.logger.Warn(ctx, "generated image is not a parseable data URL", "error", err)
		return "", 0, 0, false
	}

	data, mimeType := blob.Data, blob.MimeType
	if bounds != nil && (bounds.Width > 0 || bounds.Height > 0) {
		scaled, scaledMime, err := media.Downscale(data, mimeType, int(bounds.Width), int(bounds.Height))
		if err != nil {
			s.logger.Warn(ctx, "failed to downscale generated image", "error", err)
		} else {
			data, mimeType = scaled, scaledMime
		}
	}

	width, height, err := media.Measure(data)
	if err != nil {
		s.logger.Warn(ctx, "failed to measure generated image", "error", err)
		return "", 0, 0, false
	}
	return media.EncodeDataURL(mimeType, data), float64(width), float64(height), true
}

var dataURLPattern = regexp.MustCompile(`^data:(.*?);base64,(.*)$`)

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	const route = "/analyze-image"
	ctx := r.Context()

	var payload struct {
		DataURL string `json:"dataUrl"`
		Prompt  string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.jsonError(w, route, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if payload.DataURL == "" {
		s.jsonError(w, route, http.StatusBadRequest, "Missing dataUrl")
		return
	}
	match := dataURLPattern.FindStringSubmatch(payload.DataURL)
	if match == nil {
		s.jsonError(w, route, http.StatusBadRequest, "dataUrl must be a base64-encoded image data URL")
		return
	}
	mimeType, base64Data := match[1], match[2]

	description, err := s.gemini.AnalyzeImage(ctx, base64Data, mimeType, payload.Prompt)
	if err != nil {
		s.metrics.RecordProviderError("gemini-analyze")
		s.logger.Error(ctx, "image analysis failed", "error", err)
		s.jsonError(w, route, http.StatusBadGateway, "Image analysis failed")
		return
	}
	if description == "" {
		description = "No analysis available."
	}

	s.metrics.RecordRoute(route, "200")
	s.jsonResponse(w, http.StatusOK, map[string]string{"description": description})
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	const route = "/knowledge"
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		s.jsonError(w, route, http.StatusBadRequest, `Missing query parameter "q"`)
		return
	}

	result, err := s.knowledge.Lookup(ctx, query)
	if err != nil {
		s.metrics.RecordProviderError("knowledge")
		s.logger.Error(ctx, "knowledge lookup failed", "query", query, "error", err)
		s.jsonError(w, route, http.StatusBadGateway, "Knowledge lookup failed")
		return
	}

	s.metrics.RecordRoute(route, "200")
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleInspiration(w http.ResponseWriter, r *http.Request) {
	const route = "/inspiration"
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		s.jsonError(w, route, http.StatusBadRequest, `Missing query parameter "q"`)
		return
	}

	result, err := s.inspiration.Search(ctx, query)
	if err != nil {
		s.metrics.RecordProviderError("inspiration")
		s.logger.Error(ctx, "inspiration search failed", "query", query, "error", err)
		s.jsonError(w, route, http.StatusBadGateway, "Inspiration search failed")
		return
	}

	s.metrics.RecordRoute(route, "200")
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
