package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nanobanana123/tldraw-agent/internal/document"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
)

// DeleteAction removes one shape from the canvas.
type DeleteAction struct {
	ShapeID string `json:"shapeId"`
	Intent  string `json:"intent,omitempty"`
}

// DeleteHandler deletes a shape by id. A missing shape is logged and
// skipped rather than failing the turn.
type DeleteHandler struct {
	baseHandler
	doc     document.Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewDeleteHandler(doc document.Store, logger *observability.Logger, metrics *observability.Metrics) *DeleteHandler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &DeleteHandler{doc: doc, logger: logger, metrics: metrics}
}

func (*DeleteHandler) Kind() Kind { return KindDelete }

func (*DeleteHandler) Schema() *jsonschema.Schema { return schemaFor(KindDelete) }

func (*DeleteHandler) Info(_ context.Context, env *Envelope) Info {
	id, _ := env.Fields["shapeId"].(string)
	if !env.Complete {
		return Info{Icon: "trash", Description: "Deleting shape…"}
	}
	return Info{Icon: "trash", Description: fmt.Sprintf("Deleted shape %s", id)}
}

func (h *DeleteHandler) Apply(ctx context.Context, env *Envelope, _ *Helpers) error {
	if !env.Complete {
		return nil
	}

	del, err := Decode[DeleteAction](env)
	if err != nil {
		return err
	}
	shapeID := document.QualifyShapeID(del.ShapeID)

	err = h.doc.Run(ctx, func(tx document.Tx) error {
		return tx.DeleteShape(shapeID)
	})
	if errors.Is(err, document.ErrNotFound) {
		h.logger.Warn(ctx, "delete target not found", "shape_id", shapeID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete shape %s: %w", shapeID, err)
	}

	h.logger.Info(ctx, "shape deleted", "shape_id", shapeID, "intent", del.Intent)
	return nil
}
