package agent

import (
	"context"
	"errors"
	"io"

	"github.com/nanobanana123/tldraw-agent/internal/action"
	"github.com/nanobanana123/tldraw-agent/internal/document"
	"github.com/nanobanana123/tldraw-agent/internal/observability"
)

// TranscriptEntry pairs an action identity with its latest display
// projection. Entries for the same identity are updated in place as the
// stream refines the action.
type TranscriptEntry struct {
	Identity string
	Kind     action.Kind
	Complete bool
	Info     action.Info
}

// TurnResult is everything one turn produced besides document effects.
type TurnResult struct {
	Transcript []TranscriptEntry
	Scheduled  []action.Schedule
	// RetryMessage carries the corrective hint to surface back to
	// the producer as the next conversational turn.
	RetryMessage string
	RetryPending bool
	// SuggestedImageSearch is a follow-up query recorded from
	// image-intent messages when no image was actually created.
	SuggestedImageSearch string
}

// Agent executes conversational turns against the shared document.
type Agent struct {
	registry *action.Registry
	doc      document.Store
	logger   *observability.Logger
	metrics  *observability.Metrics
}

func New(registry *action.Registry, doc document.Store, logger *observability.Logger, metrics *observability.Metrics) *Agent {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Agent{registry: registry, doc: doc, logger: logger, metrics: metrics}
}

// TurnOptions configure one turn.
type TurnOptions struct {
	// Offset translates model-space coordinates into canvas space.
	Offset action.Vec
}

// scheduleCollector gathers handler-scheduled conversation entries for
// the turn result.
type scheduleCollector struct {
	schedules []action.Schedule
}

func (c *scheduleCollector) Schedule(s action.Schedule) {
	c.schedules = append(c.schedules, s)
}

// RunTurn drives one turn to completion: it folds the stream into
// merged snapshots, sanitizes and projects every snapshot, and applies
// each completed action exactly once. No single action failure aborts
// the stream; only a transport error ends the turn early.
func (a *Agent) RunTurn(ctx context.Context, stream *StreamReader, opts TurnOptions) (*TurnResult, error) {
	helpers := action.NewHelpers(a.doc, opts.Offset)
	collector := &scheduleCollector{}
	helpers.SetScheduler(collector)

	accumulator := NewAccumulator(a.logger)
	applied := make(map[string]bool)
	result := &TurnResult{}
	entryIndex := make(map[string]int)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var malformed *ErrMalformedEvent
		if errors.As(err, &malformed) {
			a.logger.Warn(ctx, "dropping malformed stream event", "error", err)
			a.metrics.RecordDropped()
			continue
		}
		if err != nil {
			return nil, err
		}

		env, err := accumulator.Ingest(ctx, raw)
		if err != nil {
			a.logger.Warn(ctx, "dropping protocol-violating delta", "error", err)
			a.metrics.RecordDropped()
			continue
		}
		if env == nil {
			a.metrics.RecordDropped()
			continue
		}
		a.metrics.RecordReceived()

		handler, ok := a.registry.Lookup(env.Kind)
		if !ok {
			a.logger.Warn(ctx, "no handler registered for action kind", "kind", env.Kind)
			a.metrics.RecordDropped()
			continue
		}

		handler.Sanitize(ctx, env, helpers)

		if env.Complete && !applied[env.Identity()] {
			applied[env.Identity()] = true
			if err := action.Validate(handler, env); err != nil {
				a.logger.Warn(ctx, "action failed validation", "identity", env.Identity(), "error", err)
				a.metrics.RecordDropped()
			} else if err := handler.Apply(ctx, env, helpers); err != nil {
				a.logger.Error(ctx, "action apply failed", "identity", env.Identity(), "error", err)
			} else {
				a.metrics.RecordApplied(string(env.Kind))
			}
		}

		// Project after apply so completed image actions can show
		// their committed bytes.
		entry := TranscriptEntry{
			Identity: env.Identity(),
			Kind:     env.Kind,
			Complete: env.Complete,
			Info:     handler.Info(ctx, env),
		}
		if i, ok := entryIndex[env.Identity()]; ok {
			result.Transcript[i] = entry
		} else {
			entryIndex[env.Identity()] = len(result.Transcript)
			result.Transcript = append(result.Transcript, entry)
		}
	}

	result.Scheduled = collector.schedules
	result.RetryMessage, result.RetryPending = helpers.ImageRetry()
	if result.RetryPending {
		a.logger.Info(ctx, "turn ended with pending retry hint", "message", result.RetryMessage)
	}
	if query, ok := helpers.SuggestedImageSearch(); ok {
		result.SuggestedImageSearch = query
	}
	return result, nil
}
