// Package llmplanner implements the model-backed planning strategy family.
//
// One Planner instance serves one remote provider; the differences between
// providers live entirely in the injected llm.Completer. The planner owns
// everything around the completion call: prompt shaping, fence-stripping
// JSON parsing, and the never-raises failure contract.
package llmplanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/planner"
	"github.com/entrhq/pilot/pkg/types"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// maxCandidates caps the element digest so prompt size is bounded
	// regardless of page complexity.
	maxCandidates = 30

	// maxPageTextTokens caps the page-text excerpt embedded in the prompt.
	maxPageTextTokens = 1000

	// tokenEncoding is the tiktoken encoding used for the excerpt budget.
	// Exact counts per backend vary; this is a budget, not accounting.
	tokenEncoding = "cl100k_base"
)

// Planner is a model-backed strategy delegating to an injected completion
// capability. It is safe for concurrent use: all per-request state lives on
// the stack.
type Planner struct {
	provider  types.Provider
	completer llm.Completer
	vision    llm.Completer // nil unless the two-stage pre-pass is enabled
	encoder   *tiktoken.Tiktoken
}

// Option configures a Planner.
type Option func(*Planner)

// WithVision enables the two-stage vision pre-pass using the given
// completer. The caller is responsible for ensuring it targets a model
// distinct from the planning model; the factory enforces that precondition.
func WithVision(v llm.Completer) Option {
	return func(p *Planner) {
		p.vision = v
	}
}

// New creates a model-backed planner for the given provider identifier.
func New(provider types.Provider, completer llm.Completer, opts ...Option) *Planner {
	p := &Planner{
		provider:  provider,
		completer: completer,
	}
	for _, opt := range opts {
		opt(p)
	}

	// Best-effort: without an encoder the excerpt falls back to a
	// character budget.
	if enc, err := tiktoken.GetEncoding(tokenEncoding); err == nil {
		p.encoder = enc
	}

	return p
}

// Name returns the provider identifier this strategy serves.
func (p *Planner) Name() types.Provider {
	return p.provider
}

// Plan sends the goal and page context to the completion backend and parses
// the structured plan out of the raw response.
//
// Plan never returns an error for capability or parse failures; both are
// communicated through the response's Error field so the orchestrator can
// fall back. The returned error is reserved for faults outside the
// strategy's contract.
func (p *Planner) Plan(ctx context.Context, req *types.PlanRequest) (*types.PlanResponse, error) {
	userMessage := p.buildUserMessage(req)

	if req.ScreenshotDataURL != "" && p.vision != nil {
		observation, err := p.observePage(ctx, req)
		if err != nil {
			return p.failure(err), nil
		}
		userMessage += "\n\nVisual Observation (from screenshot):\n" + observation
	}

	raw, err := p.completer.Complete(ctx, &llm.CompletionRequest{
		System: planningPrompt,
		User:   userMessage,
	})
	if err != nil {
		return p.failure(err), nil
	}

	return parsePlan(raw), nil
}

// failure converts a capability-level error into the response shape the
// orchestrator's fallback policy expects: empty steps, the failure embedded
// in the summary, and the error field set.
func (p *Planner) failure(err error) *types.PlanResponse {
	return &types.PlanResponse{
		Summary: fmt.Sprintf("%s planning failed: %v", p.completer.Name(), err),
		Steps:   []types.Step{},
		Error:   err.Error(),
	}
}

// buildUserMessage renders the goal and page context. The candidate digest
// is capped at maxCandidates entries and the page-text excerpt at
// maxPageTextTokens tokens.
func (p *Planner) buildUserMessage(req *types.PlanRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User Goal: %s\n\n", req.UserRequest)
	fmt.Fprintf(&b, "Current Page:\n- URL: %s\n- Title: %s\n\n", req.Page.URL, req.Page.Title)

	b.WriteString("Available Elements:\n")
	candidates := req.Page.Candidates
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s: selector='%s' text='%s' aria='%s' placeholder='%s'\n",
			c.Tag, c.Selector, c.Text, c.AriaLabel, c.Placeholder)
	}

	if excerpt := p.truncate(req.Page.Text); excerpt != "" {
		fmt.Fprintf(&b, "\nPage Text (excerpt):\n%s\n", excerpt)
	}

	b.WriteString("\nGenerate a plan to achieve the user's goal.")
	return b.String()
}

// truncate bounds the page text to the token budget, falling back to a
// rough character budget when no encoder is available.
func (p *Planner) truncate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if p.encoder == nil {
		const charBudget = maxPageTextTokens * 4 // ~4 chars per token
		if len(text) > charBudget {
			return text[:charBudget]
		}
		return text
	}

	tokens := p.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxPageTextTokens {
		return text
	}
	return p.encoder.Decode(tokens[:maxPageTextTokens])
}

var _ planner.Planner = (*Planner)(nil)
