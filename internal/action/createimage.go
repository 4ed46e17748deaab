package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nanobanana123/tldraw-agent/internal/document"
	"github.com/nanobanana123/tldraw-agent/internal/media"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
	"github.com/nanobanana123/tldraw-agent/internal/provider"
)

// ImageGenerator is the capability the image pipeline needs from the
// backend generation route.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, payload provider.GenerateImagePayload) (*provider.GeneratedImage, error)
}

// CreateImageHandler runs the image acquisition pipeline: resolve the
// final bytes (inline data URL or generator call), materialize and
// measure them, then commit the asset and shape in one transactional
// scope. Every failure schedules a corrective retry hint and aborts
// this action only; the turn continues.
type CreateImageHandler struct {
	doc        document.Store
	generator  ImageGenerator
	logger     *observability.Logger
	metrics    *observability.Metrics
	newAssetID func() string
}

func NewCreateImageHandler(doc document.Store, generator ImageGenerator, logger *observability.Logger, metrics *observability.Metrics) *CreateImageHandler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &CreateImageHandler{doc: doc, generator: generator, logger: logger, metrics: metrics, newAssetID: uuid.NewString}
}

func (*CreateImageHandler) Kind() Kind { return KindCreateImage }

func (*CreateImageHandler) Schema() *jsonschema.Schema { return schemaFor(KindCreateImage) }

func (h *CreateImageHandler) Info(ctx context.Context, env *Envelope) Info {
	intent, _ := env.Fields["intent"].(string)
	description := "Creating image…"
	if intent != "" {
		description = "Creating image: " + intent
	}
	if env.Complete {
		description = "Created image"
		if intent != "" {
			description = "Created image: " + intent
		}
	}

	info := Info{Icon: "image", Description: description}
	altText, _ := env.Fields["altText"].(string)
	if dataURL, _ := env.Fields["dataUrl"].(string); dataURL != "" {
		info.Preview = &ImagePreview{DataURL: dataURL, AltText: altText}
	} else if env.Complete {
		// Recover the preview from the committed shape when the
		// action itself carried no inline bytes.
		if dataURL := h.committedPreview(ctx, env); dataURL != "" {
			info.Preview = &ImagePreview{DataURL: dataURL, AltText: altText}
		}
	}
	return info
}

func (h *CreateImageHandler) committedPreview(ctx context.Context, env *Envelope) string {
	shapeID, _ := env.Fields["shapeId"].(string)
	if shapeID == "" || h.doc == nil {
		return ""
	}
	shape, err := h.doc.GetShape(ctx, document.QualifyShapeID(shapeID))
	if err != nil || shape.Props.AssetID == "" {
		return ""
	}
	asset, err := h.doc.GetAsset(ctx, shape.Props.AssetID)
	if err != nil {
		return ""
	}
	return asset.Src
}

// Sanitize remaps the incoming shape id to a collision-free one before
// the action is applied or displayed.
func (h *CreateImageHandler) Sanitize(ctx context.Context, env *Envelope, helpers *Helpers) {
	if !env.Complete {
		return
	}
	original, _ := env.Fields["shapeId"].(string)
	if original == "" {
		return
	}
	sanitized := helpers.EnsureShapeIDIsUnique(ctx, original)
	if sanitized != original {
		h.logger.Info(ctx, "remapped shape id for uniqueness", "original_id", original, "sanitized_id", sanitized)
		env.Fields["shapeId"] = sanitized
	}
}

func (h *CreateImageHandler) Apply(ctx context.Context, env *Envelope, helpers *Helpers) error {
	if !env.Complete {
		return nil
	}

	act, err := Decode[CreateImageAction](env)
	if err != nil {
		return err
	}

	shapeID := document.QualifyShapeID(act.ShapeID)
	x, y := helpers.RemoveOffset(act.X, act.Y)

	h.logger.Info(ctx, "creating image",
		"shape_id", shapeID,
		"intent", act.Intent,
		"has_inline_data", act.DataURL != "",
		"has_generator", act.Generator != nil)

	resolved := act.DataURL
	if resolved == "" && act.Generator != nil {
		fetched := h.fetchFromGenerator(ctx, &act, helpers)
		if fetched == nil {
			h.logger.Warn(ctx, "generator request failed, aborting image creation", "shape_id", shapeID)
			return nil
		}
		resolved = fetched.DataURL
		if act.W == 0 && fetched.Width > 0 {
			act.W = fetched.Width
		}
		if act.H == 0 && fetched.Height > 0 {
			act.H = fetched.Height
		}
		// Keep the generated bytes on the envelope so transcript
		// previews can render them.
		env.Fields["dataUrl"] = resolved
	}

	if resolved == "" {
		h.scheduleRetry(ctx, helpers,
			"The generated image data was missing. Please resend using a `createImage` action that either includes a base64 `dataUrl` or a valid `generator` description.")
		return nil
	}

	blob, err := media.ParseDataURL(resolved)
	if err != nil {
		h.logger.Warn(ctx, "failed to materialize image data", "shape_id", shapeID, "error", err)
		h.scheduleRetry(ctx, helpers,
			"There was an error downloading the generated image. Please resend it as a `createImage` action with a base64 `dataUrl`.")
		return nil
	}
	if len(blob.Data) == 0 {
		h.scheduleRetry(ctx, helpers,
			"The generated image data was empty. Please resend the image as a `createImage` action with a valid base64 `dataUrl`.")
		return nil
	}

	width, height := act.W, act.H
	if width == 0 || height == 0 {
		measuredW, measuredH, err := media.Measure(blob.Data)
		if err != nil {
			h.logger.Warn(ctx, "failed to measure image", "shape_id", shapeID, "error", err)
			h.scheduleRetry(ctx, helpers,
				"Could not determine the size of the generated image. Please resend it with a valid base64 `dataUrl`.")
			return nil
		}
		if width == 0 {
			width = float64(measuredW)
		}
		if height == 0 {
			height = float64(measuredH)
		}
	}
	if width == 0 || height == 0 {
		h.scheduleRetry(ctx, helpers,
			"The generated image dimensions were invalid. Please resend the image using a `createImage` action with a proper base64 `dataUrl`.")
		return nil
	}
	if width <= 1 && height <= 1 {
		h.logger.Warn(ctx, "image dimensions appear blank, rendering anyway", "width", width, "height", height)
	}

	mimeType := blob.MimeType
	if mimeType == "" && act.Generator != nil {
		mimeType = act.Generator.TargetMimeType
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	fileName := fmt.Sprintf("agent-image-%d.%s", time.Now().UnixMilli(), media.ExtensionFor(mimeType))

	asset := document.Asset{
		ID:       document.QualifyAssetID(h.newAssetID()),
		Type:     "image",
		W:        width,
		H:        height,
		MimeType: mimeType,
		Name:     fileName,
		Src:      resolved,
	}

	err = h.doc.Run(ctx, func(tx document.Tx) error {
		// The asset may already exist when the id was reused; the
		// shape then binds to the existing payload.
		exists, err := tx.HasAsset(asset.ID)
		if err != nil {
			return err
		}
		if !exists {
			if err := tx.CreateAssets([]document.Asset{asset}); err != nil {
				return err
			}
		}
		return tx.CreateShape(document.Shape{
			ID:      shapeID,
			Type:    "image",
			X:       x,
			Y:       y,
			Opacity: 1,
			Props: document.ImageProps{
				AssetID: asset.ID,
				W:       width,
				H:       height,
				AltText: act.AltText,
				URL:     "",
			},
		})
	})
	if err != nil {
		h.logger.Error(ctx, "failed to commit image asset and shape", "shape_id", shapeID, "error", err)
		h.scheduleRetry(ctx, helpers,
			"The generated image could not be processed. Please resend it as a `createImage` action with a base64 `dataUrl`.")
		return nil
	}

	h.logger.Info(ctx, "image shape created",
		"shape_id", shapeID,
		"asset_id", asset.ID,
		"width", width,
		"height", height,
		"alt_text", act.AltText)
	helpers.MarkImageCreated()
	h.metrics.RecordImageCreated()
	return nil
}

// fetchFromGenerator resolves image bytes via the backend generation
// route. A nil return means the failure was already translated into a
// retry hint.
func (h *CreateImageHandler) fetchFromGenerator(ctx context.Context, act *CreateImageAction, helpers *Helpers) *provider.GeneratedImage {
	gen := act.Generator

	mode := gen.Mode
	if mode == "" {
		mode = "generate"
	}
	prompt := gen.Prompt
	if prompt == "" {
		prompt = act.Intent
	}
	editPrompt := gen.EditPrompt
	if editPrompt == "" && mode == "edit" {
		editPrompt = act.Intent
	}

	var reference *provider.Reference
	if mode == "edit" {
		reference = h.resolveEditReference(ctx, gen, helpers)
		if reference == nil {
			return nil
		}
	}

	result, err := h.generator.GenerateImage(ctx, provider.GenerateImagePayload{
		Provider:       gen.Provider,
		Mode:           mode,
		Prompt:         prompt,
		EditPrompt:     editPrompt,
		Reference:      reference,
		TargetMimeType: gen.TargetMimeType,
		MaxOutputSize:  gen.MaxOutputSize,
	})
	if err != nil {
		h.metrics.RecordProviderError("image-generate")
		var apiErr *provider.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status == 200:
			// An error-shaped success body carries its own
			// correction hint.
			h.logger.Error(ctx, "image generator reported error", "error", apiErr.Message)
			h.scheduleRetry(ctx, helpers, apiErr.Message)
		case errors.As(err, &apiErr):
			h.logger.Error(ctx, "image generator request failed", "status", apiErr.Status, "error", apiErr.Message)
			h.scheduleRetry(ctx, helpers,
				"The image service returned an error. Please try again with a simpler description or different edit instructions.")
		default:
			h.logger.Error(ctx, "failed to call image generator", "error", err)
			h.scheduleRetry(ctx, helpers,
				"The image generator could not be reached. Please try again shortly.")
		}
		return nil
	}
	return result
}

// resolveEditReference locates the image being edited and extracts its
// inline bytes. A nil return means a retry hint was scheduled.
func (h *CreateImageHandler) resolveEditReference(ctx context.Context, gen *Generator, helpers *Helpers) *provider.Reference {
	descriptor := gen.ReferenceAssetID
	if descriptor == "" {
		descriptor = gen.ReferenceShapeID
	}
	if descriptor == "" {
		h.logger.Warn(ctx, "generator missing reference for edit request")
		h.scheduleRetry(ctx, helpers,
			"The edit request did not specify which image to modify. Please resend the `createImage` action with `generator.referenceShapeId` pointing to the existing image.")
		return nil
	}

	var asset *document.Asset
	if document.IsAssetRef(descriptor) {
		asset, _ = h.doc.GetAsset(ctx, descriptor)
	} else {
		shapeID := document.QualifyShapeID(descriptor)
		shape, err := h.doc.GetShape(ctx, shapeID)
		if err != nil || shape.Type != "image" {
			h.logger.Warn(ctx, "edit reference shape not found or not an image", "reference", descriptor)
			h.scheduleRetry(ctx, helpers,
				"Couldn't locate the image to edit. Please resend the `createImage` action with a valid `referenceShapeId`.")
			return nil
		}
		if shape.Props.AssetID != "" {
			asset, _ = h.doc.GetAsset(ctx, shape.Props.AssetID)
		}
	}

	if asset == nil {
		h.logger.Warn(ctx, "unable to load asset for edit request", "reference", descriptor)
		h.scheduleRetry(ctx, helpers,
			"Couldn't retrieve the original image. Please resend the request after ensuring the image still exists.")
		return nil
	}

	src := asset.Src
	if !strings.HasPrefix(src, "data:image/") {
		h.logger.Warn(ctx, "edit reference asset has no inline data URL", "reference", descriptor)
		h.scheduleRetry(ctx, helpers,
			"The runtime could not read the original image data. Please resend the edit request including an inline base64 `dataUrl`.")
		return nil
	}

	base64Payload := src
	if comma := strings.IndexByte(src, ','); comma >= 0 {
		base64Payload = src[comma+1:]
	}
	mimeType := asset.MimeType
	if mimeType == "" {
		mimeType = gen.MimeType
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &provider.Reference{Base64: base64Payload, MimeType: mimeType}
}

func (h *CreateImageHandler) scheduleRetry(ctx context.Context, helpers *Helpers, message string) {
	helpers.ScheduleImageRetry(message)
	h.metrics.RecordRetryScheduled()
	h.logger.Debug(ctx, "scheduled image retry hint", "message", message)
}
