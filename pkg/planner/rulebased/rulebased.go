// Package rulebased implements the heuristic planning strategy. It needs no
// credentials and no network, which makes it the service's fallback of last
// resort: every other strategy degrades to this one.
//
// Supported command forms:
//
//   - "search <query>"          - focus the search box, type, submit
//   - "scroll down" / "go down" - scroll the page down
//   - "click <target text>"     - click the best-matching element
package rulebased

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/entrhq/pilot/pkg/matcher"
	"github.com/entrhq/pilot/pkg/planner"
	"github.com/entrhq/pilot/pkg/types"
)

// scrollDelta is the fixed downward scroll distance in pixels.
const scrollDelta = 900

// AdvisorySummary is returned when no command form matches; it names the
// supported forms so the user can rephrase.
const AdvisorySummary = "No confident automation plan. Try: 'search <term>', 'click <button text>', or 'scroll down'."

// Planner is the rule-based strategy. It is stateless; the zero value is
// ready to use.
type Planner struct{}

// New creates a rule-based planner.
func New() *Planner {
	return &Planner{}
}

// Name returns the provider identifier.
func (p *Planner) Name() types.Provider {
	return types.ProviderRuleBased
}

// Plan dispatches on the goal text, first match wins: search intent, then
// scroll, then click, then the advisory fallback.
//
// The order is deliberate: "search" is a substring check evaluated before
// the "click " prefix check, so "search for click-here button" plans a
// search rather than a click.
func (p *Planner) Plan(_ context.Context, req *types.PlanRequest) (*types.PlanResponse, error) {
	goal := strings.TrimSpace(req.UserRequest)
	goalLower := strings.ToLower(goal)
	candidates := req.Page.Candidates

	if strings.Contains(goalLower, "search") {
		return p.planSearch(goal, goalLower, candidates), nil
	}

	if containsAny(goalLower, "scroll", "go down", "down") {
		return p.planScroll(), nil
	}

	if strings.HasPrefix(goalLower, "click ") {
		return p.planClick(goal, candidates), nil
	}

	return &types.PlanResponse{
		Summary: AdvisorySummary,
		Steps:   []types.Step{},
	}, nil
}

// planSearch extracts the query after the first "search" occurrence and
// builds click-type-submit steps. The submit click is optional; a plan may
// legitimately end after typing.
func (p *Planner) planSearch(goal, goalLower string, candidates []types.Candidate) *types.PlanResponse {
	// The offset is found in the lowered goal, so it cannot slice the
	// original directly: lowering preserves rune counts but not byte
	// lengths. Map the offset across by rune count.
	idx := strings.Index(goalLower, "search")
	after := utf8.RuneCountInString(goalLower[:idx+len("search")])
	query := strings.Trim(skipRunes(goal, after), " :,-")
	if query == "" {
		query = goal
	}

	searchInput := matcher.FindSearchInput(candidates)
	if searchInput == nil {
		return &types.PlanResponse{
			Summary: "Could not find a search input on this page.",
			Steps:   []types.Step{},
		}
	}

	steps := []types.Step{
		{
			Tool:     types.ToolClick,
			Selector: searchInput.Selector,
			Note:     "Focus the search box",
		},
		{
			Tool:     types.ToolType,
			Selector: searchInput.Selector,
			Text:     query,
			Note:     fmt.Sprintf("Type: %q", query),
		},
	}

	if submit := matcher.FindSubmitButton(candidates); submit != nil {
		steps = append(steps, types.Step{
			Tool:     types.ToolClick,
			Selector: submit.Selector,
			Note:     "Submit search",
		})
	}

	return &types.PlanResponse{
		Summary: fmt.Sprintf("Planned search for %q.", query),
		Steps:   steps,
	}
}

func (p *Planner) planScroll() *types.PlanResponse {
	return &types.PlanResponse{
		Summary: "Scrolling down.",
		Steps: []types.Step{{
			Tool:   types.ToolScroll,
			DeltaY: scrollDelta,
			Note:   "Scroll down",
		}},
	}
}

func (p *Planner) planClick(goal string, candidates []types.Candidate) *types.PlanResponse {
	// The prefix was matched against the lowered goal; skip it by rune
	// count so a multi-byte rune whose lowercase ends the prefix (e.g. the
	// Kelvin sign) is not split mid-sequence.
	target := strings.TrimSpace(skipRunes(goal, utf8.RuneCountInString("click ")))

	btn := matcher.FindClickable(candidates, target)
	if btn == nil {
		return &types.PlanResponse{
			Summary: fmt.Sprintf("Could not find element matching %q.", target),
			Steps:   []types.Step{},
		}
	}

	return &types.PlanResponse{
		Summary: fmt.Sprintf("Clicking %q.", target),
		Steps: []types.Step{{
			Tool:     types.ToolClick,
			Selector: btn.Selector,
			Note:     fmt.Sprintf("Click something matching %q", target),
		}},
	}
}

// skipRunes returns s with its first n runes removed.
func skipRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var _ planner.Planner = (*Planner)(nil)
