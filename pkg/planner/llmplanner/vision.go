package llmplanner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// PageObservation is the structured document the vision pre-pass extracts
// from a screenshot before the main planning call.
type PageObservation struct {
	PageType         string   `json:"pageType"`
	Headings         []string `json:"headings,omitempty"`
	FormFields       []string `json:"formFields,omitempty"`
	ClickableTargets []string `json:"clickableTargets,omitempty"`
	Modals           []string `json:"modals,omitempty"`
	Blockers         []string `json:"blockers,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
	Confidence       float64  `json:"confidence"`

	// RawObservation holds the model's output verbatim when it could not
	// be validated as an observation document.
	RawObservation string `json:"rawObservation,omitempty"`
}

// observePage runs the perception sub-call: the screenshot goes to the
// vision completer with the observation prompt, and the resulting document
// is re-serialized to compact JSON for the planning prompt.
//
// A capability failure here propagates as an error so the caller's catch-all
// converts it like any other capability error; it is never silently
// swallowed. A parse failure, by contrast, degrades to a raw-text wrapper -
// a sloppy observation is still context worth planning with.
func (p *Planner) observePage(ctx context.Context, req *types.PlanRequest) (string, error) {
	user := fmt.Sprintf("Page URL: %s\nPage Title: %s\n\nDescribe this page.", req.Page.URL, req.Page.Title)

	raw, err := p.vision.Complete(ctx, &llm.CompletionRequest{
		System:       observationPrompt,
		User:         user,
		ImageDataURL: req.ScreenshotDataURL,
	})
	if err != nil {
		return "", fmt.Errorf("vision observation failed: %w", err)
	}

	var obs PageObservation
	if err := json.Unmarshal([]byte(extractJSON(raw)), &obs); err != nil {
		obs = PageObservation{RawObservation: raw}
	}

	compact, err := json.Marshal(obs)
	if err != nil {
		return "", fmt.Errorf("failed to serialize observation: %w", err)
	}
	return string(compact), nil
}
