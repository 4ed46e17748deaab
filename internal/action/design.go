package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DesignDirectionAction communicates a high-level creative direction.
type DesignDirectionAction struct {
	Title   string   `json:"title,omitempty"`
	Summary string   `json:"summary"`
	Pillars []string `json:"pillars,omitempty"`
}

// DesignDirectionHandler renders creative direction into the
// transcript. There are no document side effects.
type DesignDirectionHandler struct {
	baseHandler
}

func NewDesignDirectionHandler() *DesignDirectionHandler { return &DesignDirectionHandler{} }

func (*DesignDirectionHandler) Kind() Kind { return KindDesignDirection }

func (*DesignDirectionHandler) Schema() *jsonschema.Schema { return schemaFor(KindDesignDirection) }

func (*DesignDirectionHandler) Info(_ context.Context, env *Envelope) Info {
	dir, err := Decode[DesignDirectionAction](env)
	if err != nil {
		return Info{Icon: "target", Description: "Design direction"}
	}

	header := "Design direction"
	if dir.Title != "" {
		header = "Design direction: " + dir.Title
	}
	lines := []string{header}
	if dir.Summary != "" {
		lines = append(lines, dir.Summary)
	}
	for _, pillar := range dir.Pillars {
		lines = append(lines, "- "+pillar)
	}
	return Info{Icon: "target", Description: strings.Join(lines, "\n")}
}

func (*DesignDirectionHandler) Apply(context.Context, *Envelope, *Helpers) error {
	// The direction lives in the transcript only.
	return nil
}

// DesignGuidanceAction carries actionable creative recommendations.
type DesignGuidanceAction struct {
	Recommendations []string `json:"recommendations"`
	Notes           string   `json:"notes,omitempty"`
}

// DesignGuidanceHandler renders creative recommendations into the
// transcript.
type DesignGuidanceHandler struct {
	baseHandler
}

func NewDesignGuidanceHandler() *DesignGuidanceHandler { return &DesignGuidanceHandler{} }

func (*DesignGuidanceHandler) Kind() Kind { return KindDesignGuidance }

func (*DesignGuidanceHandler) Schema() *jsonschema.Schema { return schemaFor(KindDesignGuidance) }

func (*DesignGuidanceHandler) Info(_ context.Context, env *Envelope) Info {
	guidance, err := Decode[DesignGuidanceAction](env)
	if err != nil || len(guidance.Recommendations) == 0 {
		return Info{Icon: "pencil", Description: "Design guidance"}
	}

	var b strings.Builder
	b.WriteString("Design guidance:\n")
	for i, rec := range guidance.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}
	if guidance.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", guidance.Notes)
	}
	return Info{Icon: "pencil", Description: strings.TrimRight(b.String(), "\n")}
}

func (*DesignGuidanceHandler) Apply(context.Context, *Envelope, *Helpers) error {
	return nil
}
