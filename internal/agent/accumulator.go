// Package agent runs one conversational turn: it folds the producer's
// streaming deltas into merged action snapshots, dispatches them to the
// registered handlers, and collects the turn's conversational output.
package agent

import (
	"context"
	"fmt"

	"github.com/nanobanana123/tldraw-agent/internal/action"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
)

// Accumulator folds successive partial payloads for the same logical
// action into a single evolving snapshot. Actions carry no explicit id,
// so identity is the kind tag plus the positional index in the stream.
// Only the latest snapshot is retained.
type Accumulator struct {
	logger    *observability.Logger
	current   *action.Envelope
	nextIndex int
}

func NewAccumulator(logger *observability.Logger) *Accumulator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Accumulator{logger: logger}
}

// Ingest merges one raw delta and returns the up-to-date snapshot for
// its action. A nil envelope with nil error means the delta was dropped
// as a protocol violation.
func (a *Accumulator) Ingest(ctx context.Context, raw map[string]any) (*action.Envelope, error) {
	kindTag, _ := raw["_type"].(string)
	if kindTag == "" {
		return nil, fmt.Errorf("delta missing _type tag")
	}
	kind := action.Kind(kindTag)

	deltaTime, _ := raw["time"].(float64)
	complete, _ := raw["complete"].(bool)

	fields := make(map[string]any, len(raw))
	for key, value := range raw {
		if key == "time" || key == "complete" {
			continue
		}
		fields[key] = value
	}

	if a.startsNewAction(kind, deltaTime) {
		a.current = &action.Envelope{
			Kind:   kind,
			Index:  a.nextIndex,
			Fields: make(map[string]any),
		}
		a.nextIndex++
	} else if a.current != nil && a.current.Complete {
		// A trailing delta for an already-completed action.
		a.logger.Warn(ctx, "dropping late delta for completed action",
			"identity", a.current.Identity(), "delta_time", deltaTime)
		return nil, nil
	}

	mergeFields(a.current.Fields, fields)
	if deltaTime > a.current.Time {
		a.current.Time = deltaTime
	}
	if complete {
		a.current.Complete = true
	}
	return a.current, nil
}

// startsNewAction decides whether a delta opens a fresh logical action:
// the first delta ever, a kind change, or any delta arriving after the
// current action completed with a later timestamp.
func (a *Accumulator) startsNewAction(kind action.Kind, deltaTime float64) bool {
	if a.current == nil {
		return true
	}
	if kind != a.current.Kind {
		return true
	}
	return a.current.Complete && deltaTime > a.current.Time
}

// mergeFields deep-merges src over dst. Nested objects merge key-wise;
// any other value, including arrays, replaces the prior one. Nil leaves
// in src never erase prior data.
func mergeFields(dst, src map[string]any) {
	for key, value := range src {
		if value == nil {
			continue
		}
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeFields(dstMap, srcMap)
				continue
			}
			nested := make(map[string]any, len(srcMap))
			mergeFields(nested, srcMap)
			dst[key] = nested
			continue
		}
		dst[key] = value
	}
}
