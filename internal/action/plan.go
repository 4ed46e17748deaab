package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// PlanHandler records the assistant's plan in the transcript. The plan
// itself has no document effect.
type PlanHandler struct {
	baseHandler
}

// PlanAction is the typed payload of a plan envelope.
type PlanAction struct {
	Steps     []string `json:"steps"`
	Objective string   `json:"objective,omitempty"`
}

func NewPlanHandler() *PlanHandler { return &PlanHandler{} }

func (*PlanHandler) Kind() Kind { return KindPlan }

func (*PlanHandler) Schema() *jsonschema.Schema { return schemaFor(KindPlan) }

func (*PlanHandler) Info(_ context.Context, env *Envelope) Info {
	plan, err := Decode[PlanAction](env)
	if err != nil || len(plan.Steps) == 0 {
		return Info{Icon: "note", Description: "Planning next steps…"}
	}

	var b strings.Builder
	if plan.Objective != "" {
		fmt.Fprintf(&b, "Objective: %s\n", plan.Objective)
	}
	b.WriteString("Plan:\n")
	for i, step := range plan.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return Info{Icon: "note", Description: strings.TrimRight(b.String(), "\n")}
}

func (*PlanHandler) Apply(context.Context, *Envelope, *Helpers) error {
	// The plan is transcript-only.
	return nil
}
