package action

import (
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nanobanana123/tldraw-agent/internal/observability"
	"github.com/nanobanana123/tldraw-agent/internal/provider"
)

// InspirationSearch is the capability the inspiration handler needs
// from the backend.
type InspirationSearch interface {
	Inspiration(ctx context.Context, query string) (*provider.InspirationResult, error)
}

// InspirationAction requests visual references for a theme.
type InspirationAction struct {
	Query string `json:"query"`
}

// InspirationHandler searches for visual references and schedules a
// summary plus the structured results into the conversation.
type InspirationHandler struct {
	baseHandler
	client  InspirationSearch
	logger  *observability.Logger
	metrics *observability.Metrics
}

func NewInspirationHandler(client InspirationSearch, logger *observability.Logger, metrics *observability.Metrics) *InspirationHandler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &InspirationHandler{client: client, logger: logger, metrics: metrics}
}

func (*InspirationHandler) Kind() Kind { return KindInspiration }

func (*InspirationHandler) Schema() *jsonschema.Schema { return schemaFor(KindInspiration) }

func (*InspirationHandler) Info(_ context.Context, env *Envelope) Info {
	query, _ := env.Fields["query"].(string)
	description := "Searching inspiration: " + query
	if env.Complete {
		description = "Collected inspiration: " + query
	}
	return Info{Icon: "eye", Description: description}
}

func (h *InspirationHandler) Apply(ctx context.Context, env *Envelope, helpers *Helpers) error {
	if !env.Complete {
		return nil
	}

	search, err := Decode[InspirationAction](env)
	if err != nil {
		return err
	}

	result, err := h.client.Inspiration(ctx, search.Query)
	if err != nil {
		h.logger.Warn(ctx, "inspiration search failed", "query", search.Query, "error", err)
		h.metrics.RecordProviderError("inspiration")
		helpers.Schedule(Schedule{Messages: []string{
			fmt.Sprintf("I tried to find inspiration for %q but the request failed. I'll continue with the current references.", search.Query),
		}})
		helpers.ObserveMessageForImageFollowup(search.Query)
		return nil
	}

	message := fmt.Sprintf("No inspiration references found for %q.", search.Query)
	switch n := len(result.Inspirations); {
	case n == 1:
		message = fmt.Sprintf("Collected 1 inspiration reference for %q.", search.Query)
	case n > 1:
		message = fmt.Sprintf("Collected %d inspiration references for %q.", n, search.Query)
	}

	helpers.Schedule(Schedule{Messages: []string{message}, Data: []any{result}})
	helpers.ObserveMessageForImageFollowup(search.Query)
	return nil
}
