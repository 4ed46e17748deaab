package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nanobanana123/tldraw-agent/internal/observability"
	"github.com/nanobanana123/tldraw-agent/internal/provider"
)

// KnowledgeLookup is the capability the knowledge handler needs from
// the backend.
type KnowledgeLookup interface {
	Knowledge(ctx context.Context, query string) (*provider.KnowledgeResult, error)
}

// KnowledgeAction requests background information for the current task.
type KnowledgeAction struct {
	Query string `json:"query"`
}

// KnowledgeHandler fetches an instant answer and schedules the findings
// back into the conversation. A failed lookup degrades to an inline
// apology; it never aborts the turn.
type KnowledgeHandler struct {
	baseHandler
	client  KnowledgeLookup
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewKnowledgeHandler(client KnowledgeLookup, logger *observability.Logger, metrics *observability.Metrics) *KnowledgeHandler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &KnowledgeHandler{client: client, logger: logger, metrics: metrics}
}

func (*KnowledgeHandler) Kind() Kind { return KindKnowledge }

func (*KnowledgeHandler) Schema() *jsonschema.Schema { return schemaFor(KindKnowledge) }

func (*KnowledgeHandler) Info(_ context.Context, env *Envelope) Info {
	query, _ := env.Fields["query"].(string)
	description := "Looking up: " + query
	if env.Complete {
		description = "Knowledge lookup: " + query
	}
	return Info{Icon: "search", Description: description}
}

func (h *KnowledgeHandler) Apply(ctx context.Context, env *Envelope, helpers *Helpers) error {
	if !env.Complete {
		return nil
	}

	lookup, err := Decode[KnowledgeAction](env)
	if err != nil {
		return err
	}

	result, err := h.client.Knowledge(ctx, lookup.Query)
	if err != nil {
		h.logger.Warn(ctx, "knowledge lookup failed", "query", lookup.Query, "error", err)
		h.metrics.RecordProviderError("knowledge")
		helpers.Schedule(Schedule{Messages: []string{
			fmt.Sprintf("I tried to look up %q but the request failed. I'll continue with the available information.", lookup.Query),
		}})
		helpers.ObserveMessageForImageFollowup(lookup.Query)
		return nil
	}

	heading := result.Heading
	if heading == "" {
		heading = lookup.Query
	}
	summary := strings.TrimSpace(result.Summary)
	message := fmt.Sprintf("No relevant knowledge found for %q.", heading)
	if summary != "" {
		message = fmt.Sprintf("Knowledge findings for %q:\n%s", heading, summary)
	}

	helpers.Schedule(Schedule{Messages: []string{message}, Data: []any{result}})
	helpers.ObserveMessageForImageFollowup(lookup.Query)
	return nil
}
