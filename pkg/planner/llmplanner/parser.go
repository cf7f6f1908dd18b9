package llmplanner

import (
	"encoding/json"
	"strings"

	"github.com/entrhq/pilot/pkg/types"
)

// defaultSummary is used when the model omits the summary field.
const defaultSummary = "Plan generated."

// parseErrorKind is the error value carried by responses whose raw text
// could not be parsed per the JSON contract.
const parseErrorKind = "invalid JSON in response"

// extractJSON pulls the JSON payload out of raw model output. Models are
// not trusted to return bare JSON; they routinely wrap it in markdown code
// fences. Policy, in order: a fence marked json, then any fence, then the
// trimmed raw text as-is.
func extractJSON(text string) string {
	if interior, ok := fencedBlock(text, "```json"); ok {
		return interior
	}
	if interior, ok := fencedBlock(text, "```"); ok {
		return interior
	}
	return strings.TrimSpace(text)
}

// fencedBlock extracts the interior of the first code fence opened by the
// given marker. Returns false when the marker is absent or unclosed.
func fencedBlock(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)
	end := strings.Index(text[start:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// rawStep mirrors the step object shape mandated by the system prompt.
// All fields are optional in the source; conversion applies defaults.
type rawStep struct {
	Tool     string `json:"tool"`
	Selector string `json:"selector"`
	Text     string `json:"text"`
	DeltaY   int    `json:"deltaY"`
	URL      string `json:"url"`
	Note     string `json:"note"`
}

type rawPlan struct {
	Summary string    `json:"summary"`
	Steps   []rawStep `json:"steps"`
}

// parsePlan converts raw model output into a PlanResponse.
//
// Parse failure is a recoverable outcome, not a fault: the result carries
// empty steps and the parse-error kind in Error, which is the signal the
// orchestrator uses to trigger fallback. On success, an absent tool defaults
// to CLICK - malformed model output degrades rather than rejects at this
// layer - and an absent summary gets a generic placeholder.
func parsePlan(text string) *types.PlanResponse {
	var plan rawPlan
	if err := json.Unmarshal([]byte(extractJSON(text)), &plan); err != nil {
		return &types.PlanResponse{
			Summary: "Failed to parse model response.",
			Steps:   []types.Step{},
			Error:   parseErrorKind,
		}
	}

	steps := make([]types.Step, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		tool := types.Tool(s.Tool)
		if s.Tool == "" {
			tool = types.ToolClick
		}
		steps = append(steps, types.Step{
			Tool:     tool,
			Selector: s.Selector,
			Text:     s.Text,
			DeltaY:   s.DeltaY,
			URL:      s.URL,
			Note:     s.Note,
		})
	}

	summary := plan.Summary
	if summary == "" {
		summary = defaultSummary
	}

	return &types.PlanResponse{
		Summary: summary,
		Steps:   steps,
	}
}
