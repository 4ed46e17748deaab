package action

import (
	"context"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nanobanana123/tldraw-agent/internal/document"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
)

// ImageAnalyzer is the capability the analysis handler needs from the
// backend.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, dataURL, prompt string) (string, error)
}

// AnalyzeImageAction asks for a description of an existing image shape.
type AnalyzeImageAction struct {
	ShapeID string `json:"shapeId"`
	Prompt  string `json:"prompt,omitempty"`
}

// AnalyzeImageHandler resolves a shape's inline image bytes and asks
// the vision backend to describe them. Resolution failures are logged
// and skipped; backend failures degrade to an inline apology.
type AnalyzeImageHandler struct {
	baseHandler
	doc     document.Store
	client  ImageAnalyzer
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewAnalyzeImageHandler(doc document.Store, client ImageAnalyzer, logger *observability.Logger, metrics *observability.Metrics) *AnalyzeImageHandler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AnalyzeImageHandler{doc: doc, client: client, logger: logger, metrics: metrics}
}

func (*AnalyzeImageHandler) Kind() Kind { return KindAnalyzeImage }

func (*AnalyzeImageHandler) Schema() *jsonschema.Schema { return schemaFor(KindAnalyzeImage) }

func (*AnalyzeImageHandler) Info(_ context.Context, env *Envelope) Info {
	description := "Analyzing selected image…"
	if env.Complete {
		description = "Analyzed selected image"
	}
	return Info{Icon: "eye", Description: description}
}

func (h *AnalyzeImageHandler) Apply(ctx context.Context, env *Envelope, helpers *Helpers) error {
	if !env.Complete {
		return nil
	}

	analysis, err := Decode[AnalyzeImageAction](env)
	if err != nil {
		return err
	}

	shapeID := document.QualifyShapeID(analysis.ShapeID)
	shape, err := h.doc.GetShape(ctx, shapeID)
	if err != nil || shape.Type != "image" {
		h.logger.Warn(ctx, "analysis target not found or not an image", "shape_id", shapeID)
		return nil
	}

	var dataURL string
	if shape.Props.AssetID != "" {
		if asset, err := h.doc.GetAsset(ctx, shape.Props.AssetID); err == nil {
			dataURL = asset.Src
		}
	}
	if !strings.HasPrefix(dataURL, "data:image/") {
		h.logger.Warn(ctx, "analysis target has no inline image data", "shape_id", shapeID)
		return nil
	}

	description, err := h.client.AnalyzeImage(ctx, dataURL, analysis.Prompt)
	if err != nil {
		h.logger.Warn(ctx, "image analysis failed", "shape_id", shapeID, "error", err)
		h.metrics.RecordProviderError("analyze")
		helpers.Schedule(Schedule{Messages: []string{
			"I was unable to analyze the selected image due to an error.",
		}})
		return nil
	}

	message := "Image analysis returned no insights."
	if description != "" {
		message = "Image analysis results:\n" + description
	}
	helpers.Schedule(Schedule{Messages: []string{message}})
	return nil
}
