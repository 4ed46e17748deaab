package action

import (
	"context"
	"testing"

	"github.com/nanobanana123/tldraw-agent/internal/document"
)

func seedImageShape(t *testing.T, store document.Store, shapeID, assetID, src string) {
	t.Helper()
	err := store.Run(context.Background(), func(tx document.Tx) error {
		if err := tx.CreateAssets([]document.Asset{{
			ID:       assetID,
			Type:     "image",
			W:        4,
			H:        4,
			MimeType: "image/png",
			Src:      src,
		}}); err != nil {
			return err
		}
		return tx.CreateShape(document.Shape{
			ID:      shapeID,
			Type:    "image",
			Opacity: 1,
			Props:   document.ImageProps{AssetID: assetID, W: 4, H: 4},
		})
	})
	if err != nil {
		t.Fatalf("seed shape: %v", err)
	}
}

func TestEnsureShapeIDIsUniqueSuffixesCollisions(t *testing.T) {
	store := document.NewMemoryStore()
	seedImageShape(t, store, "shape:banana", "asset:banana", "data:image/png;base64,AA==")
	helpers := NewHelpers(store, Vec{})
	ctx := context.Background()

	if got := helpers.EnsureShapeIDIsUnique(ctx, "shape:fresh"); got != "shape:fresh" {
		t.Errorf("fresh id remapped to %q", got)
	}
	if got := helpers.EnsureShapeIDIsUnique(ctx, "shape:banana"); got != "shape:banana-2" {
		t.Errorf("document collision remapped to %q, want shape:banana-2", got)
	}
	// The ledger remembers ids claimed earlier in the same turn.
	if got := helpers.EnsureShapeIDIsUnique(ctx, "shape:fresh"); got != "shape:fresh-2" {
		t.Errorf("turn collision remapped to %q, want shape:fresh-2", got)
	}
	if got := helpers.EnsureShapeIDIsUnique(ctx, "shape:fresh"); got != "shape:fresh-3" {
		t.Errorf("second turn collision remapped to %q, want shape:fresh-3", got)
	}
}

func TestOffsetTransformRoundTrip(t *testing.T) {
	helpers := NewHelpers(nil, Vec{X: 100, Y: -40})

	x, y := helpers.RemoveOffset(10, 10)
	if x != 110 || y != -30 {
		t.Errorf("RemoveOffset = (%v, %v), want (110, -30)", x, y)
	}
	backX, backY := helpers.AddOffset(x, y)
	if backX != 10 || backY != 10 {
		t.Errorf("AddOffset = (%v, %v), want (10, 10)", backX, backY)
	}
}

func TestScheduleImageRetryLastWins(t *testing.T) {
	helpers := NewHelpers(nil, Vec{})

	if _, ok := helpers.ImageRetry(); ok {
		t.Fatal("retry pending before any schedule")
	}
	helpers.ScheduleImageRetry("first reason")
	helpers.ScheduleImageRetry("second reason")

	msg, ok := helpers.ImageRetry()
	if !ok || msg != "second reason" {
		t.Errorf("ImageRetry = (%q, %v), want latest reason", msg, ok)
	}
}

func TestSuggestedImageSearchSuppressedAfterImage(t *testing.T) {
	helpers := NewHelpers(nil, Vec{})

	helpers.ObserveMessageForImageFollowup("Let me find a picture of a lighthouse")
	if query, ok := helpers.SuggestedImageSearch(); !ok || query == "" {
		t.Fatal("expected follow-up query after image-intent message")
	}

	helpers.MarkImageCreated()
	if _, ok := helpers.SuggestedImageSearch(); ok {
		t.Error("follow-up should be suppressed once an image was created")
	}
}

func TestObserveMessageIgnoresPlainText(t *testing.T) {
	helpers := NewHelpers(nil, Vec{})
	helpers.ObserveMessageForImageFollowup("Sure, I renamed the layer for you")
	if _, ok := helpers.SuggestedImageSearch(); ok {
		t.Error("plain message should not record a follow-up query")
	}
}
