// Package action defines the canvas action contract: the streaming
// envelope, the per-kind handler capability set, and the handlers
// themselves, including the image acquisition pipeline.
package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nanobanana123/tldraw-agent/internal/provider"
)

// Kind tags one action variant.
type Kind string

const (
	KindMessage         Kind = "message"
	KindPlan            Kind = "plan"
	KindCreateImage     Kind = "createImage"
	KindAnalyzeImage    Kind = "analyzeImage"
	KindInspiration     Kind = "inspiration"
	KindKnowledge       Kind = "knowledge"
	KindDesignDirection Kind = "designDirection"
	KindDesignGuidance  Kind = "designGuidance"
	KindDelete          Kind = "delete"
)

// Envelope is one merged streaming snapshot of a logical action. Fields
// holds the merged JSON payload; partial envelopes may be missing any
// field. Once Complete is true the envelope is final.
type Envelope struct {
	Kind     Kind
	Time     float64
	Complete bool
	// Index is the positional identity of the action within its stream.
	Index  int
	Fields map[string]any
}

// Identity uniquely names a logical action within one turn.
func (e *Envelope) Identity() string {
	return fmt.Sprintf("%s#%d", e.Kind, e.Index)
}

// Decode unmarshals the merged fields into a typed action value.
func Decode[T any](env *Envelope) (T, error) {
	var out T
	data, err := json.Marshal(env.Fields)
	if err != nil {
		return out, fmt.Errorf("encode envelope: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s action: %w", env.Kind, err)
	}
	return out, nil
}

// ImagePreview is a transcript-displayable image.
type ImagePreview struct {
	DataURL string
	AltText string
}

// Info is the human-readable projection of an envelope for transcript
// display. It must be derivable from partial envelopes.
type Info struct {
	Icon        string
	Description string
	Preview     *ImagePreview
}

// Schedule carries messages (and optional structured data) a handler
// wants injected into the ongoing conversation.
type Schedule struct {
	Messages []string
	Data     []any
}

// Scheduler receives scheduled conversation entries.
type Scheduler interface {
	Schedule(s Schedule)
}

// Handler is the capability set every action kind implements. Sanitize
// may rewrite envelope fields but must not reach external services;
// Apply is the only operation allowed to mutate the document or call a
// provider, and must be a no-op on incomplete envelopes.
type Handler interface {
	Kind() Kind
	Schema() *jsonschema.Schema
	Info(ctx context.Context, env *Envelope) Info
	Sanitize(ctx context.Context, env *Envelope, helpers *Helpers)
	Apply(ctx context.Context, env *Envelope, helpers *Helpers) error
}

// baseHandler provides the no-op Sanitize shared by most kinds.
type baseHandler struct{}

func (baseHandler) Sanitize(context.Context, *Envelope, *Helpers) {}

// Validate checks a completed envelope against its kind's schema.
func Validate(h Handler, env *Envelope) error {
	schema := h.Schema()
	if schema == nil {
		return nil
	}
	if err := schema.Validate(map[string]any(env.Fields)); err != nil {
		return fmt.Errorf("%s action failed validation: %w", env.Kind, err)
	}
	return nil
}

// Registry maps kind tags to handlers. It is built once at startup;
// lookups are O(1) and adding a kind never touches the dispatch path.
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry builds a registry from the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[Kind]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Kind()] = h
	}
	return r
}

// Lookup returns the handler registered for kind.
func (r *Registry) Lookup(kind Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds lists the registered kind tags.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Generator describes how to obtain image bytes when they are not sent
// inline.
type Generator struct {
	Provider         string                 `json:"provider,omitempty"`
	Mode             string                 `json:"mode,omitempty"`
	Prompt           string                 `json:"prompt"`
	EditPrompt       string                 `json:"editPrompt,omitempty"`
	ReferenceShapeID string                 `json:"referenceShapeId,omitempty"`
	ReferenceAssetID string                 `json:"referenceAssetId,omitempty"`
	MimeType         string                 `json:"mimeType,omitempty"`
	TargetMimeType   string                 `json:"targetMimeType,omitempty"`
	MaxOutputSize    *provider.OutputBounds `json:"maxOutputSize,omitempty"`
}

// CreateImageAction is the typed payload of a createImage envelope.
type CreateImageAction struct {
	Intent    string     `json:"intent"`
	ShapeID   string     `json:"shapeId"`
	DataURL   string     `json:"dataUrl,omitempty"`
	Generator *Generator `json:"generator,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	W         float64    `json:"w,omitempty"`
	H         float64    `json:"h,omitempty"`
	AltText   string     `json:"altText,omitempty"`
}
