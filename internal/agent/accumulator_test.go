package agent

import (
	"context"
	"testing"

	"github.com/nanobanana123/tldraw-agent/internal/action"
)

func ingest(t *testing.T, a *Accumulator, raw map[string]any) *action.Envelope {
	t.Helper()
	env, err := a.Ingest(context.Background(), raw)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return env
}

func TestAccumulatorMergesDeltasInOrder(t *testing.T) {
	acc := NewAccumulator(nil)

	env := ingest(t, acc, map[string]any{
		"_type": "message",
		"time":  float64(1),
		"text":  "Hel",
	})
	if env.Complete {
		t.Error("first delta should be partial")
	}
	if env.Fields["text"] != "Hel" {
		t.Errorf("text = %v", env.Fields["text"])
	}

	env = ingest(t, acc, map[string]any{
		"_type": "message",
		"time":  float64(2),
		"text":  "Hello there",
	})
	if env.Fields["text"] != "Hello there" {
		t.Error("later field value should override the earlier one")
	}

	env = ingest(t, acc, map[string]any{
		"_type":    "message",
		"time":     float64(3),
		"complete": true,
	})
	if !env.Complete || env.Time != 3 {
		t.Errorf("final snapshot = complete %v, time %v", env.Complete, env.Time)
	}
	if env.Fields["text"] != "Hello there" {
		t.Error("completion delta without fields must keep merged state")
	}
}

func TestAccumulatorMergesNestedObjects(t *testing.T) {
	acc := NewAccumulator(nil)

	ingest(t, acc, map[string]any{
		"_type": "createImage",
		"time":  float64(1),
		"generator": map[string]any{
			"prompt": "a yellow banana",
		},
	})
	env := ingest(t, acc, map[string]any{
		"_type": "createImage",
		"time":  float64(2),
		"generator": map[string]any{
			"mode": "generate",
		},
	})

	gen, ok := env.Fields["generator"].(map[string]any)
	if !ok {
		t.Fatalf("generator = %T", env.Fields["generator"])
	}
	if gen["prompt"] != "a yellow banana" || gen["mode"] != "generate" {
		t.Errorf("nested merge = %v", gen)
	}
}

func TestAccumulatorNilLeavesNeverErase(t *testing.T) {
	acc := NewAccumulator(nil)

	ingest(t, acc, map[string]any{
		"_type": "message",
		"time":  float64(1),
		"text":  "keep me",
	})
	env := ingest(t, acc, map[string]any{
		"_type": "message",
		"time":  float64(2),
		"text":  nil,
	})
	if env.Fields["text"] != "keep me" {
		t.Errorf("nil leaf erased prior value: %v", env.Fields["text"])
	}
}

func TestAccumulatorKindChangeStartsNewIdentity(t *testing.T) {
	acc := NewAccumulator(nil)

	first := ingest(t, acc, map[string]any{
		"_type": "message",
		"time":  float64(1),
		"text":  "hi",
	})
	second := ingest(t, acc, map[string]any{
		"_type": "plan",
		"time":  float64(2),
	})

	if first.Identity() == second.Identity() {
		t.Error("kind change must start a new identity")
	}
	if _, ok := second.Fields["text"]; ok {
		t.Error("new identity must not inherit prior fields")
	}
}

func TestAccumulatorCompleteIsMonotonic(t *testing.T) {
	acc := NewAccumulator(nil)

	ingest(t, acc, map[string]any{
		"_type":    "message",
		"time":     float64(1),
		"text":     "done",
		"complete": true,
	})

	// A later delta of the same kind with a later time is a fresh
	// action, not a reopening of the completed one.
	next := ingest(t, acc, map[string]any{
		"_type": "message",
		"time":  float64(2),
		"text":  "another",
	})
	if next.Complete {
		t.Error("new action must start incomplete")
	}
	if next.Index == 0 {
		t.Error("new action must take a new index")
	}
}

func TestAccumulatorDropsLateDeltaForCompletedAction(t *testing.T) {
	acc := NewAccumulator(nil)

	done := ingest(t, acc, map[string]any{
		"_type":    "message",
		"time":     float64(5),
		"text":     "final",
		"complete": true,
	})

	// Same kind, time not after the completed snapshot: protocol
	// violation, dropped.
	late, err := acc.Ingest(context.Background(), map[string]any{
		"_type": "message",
		"time":  float64(4),
		"text":  "stale",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if late != nil {
		t.Error("late delta for a completed action should be dropped")
	}
	if done.Fields["text"] != "final" {
		t.Error("dropped delta must not mutate the completed snapshot")
	}
}

func TestAccumulatorRejectsMissingKind(t *testing.T) {
	acc := NewAccumulator(nil)
	if _, err := acc.Ingest(context.Background(), map[string]any{"time": float64(1)}); err == nil {
		t.Error("delta without _type should be a protocol error")
	}
}
