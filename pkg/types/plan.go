// Package types defines the shared value types that flow through the
// planning service: page snapshots and their interactive element candidates
// on the way in, plans and their steps on the way out.
//
// JSON field names follow the wire format used by the browser extension
// (camelCase: userRequest, ariaLabel, deltaY, screenshotDataUrl).
package types

import "fmt"

// Tool identifies one of the browser actions a Step can perform.
type Tool string

const (
	// ToolClick clicks an element. Requires Selector.
	ToolClick Tool = "CLICK"

	// ToolType types text into an element. Requires Selector and Text.
	ToolType Tool = "TYPE"

	// ToolScroll scrolls the page. Requires DeltaY (positive = down).
	ToolScroll Tool = "SCROLL"

	// ToolNavigate navigates to a URL. Requires URL.
	ToolNavigate Tool = "NAVIGATE"
)

// Provider identifies which planning strategy handles a request.
// The set is closed; extending it means adding a strategy and a
// factory entry, never injecting arbitrary strings at runtime.
type Provider string

const (
	ProviderRuleBased Provider = "rule_based"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderLocal     Provider = "local"
)

// Providers returns the closed set of provider identifiers in a stable order.
func Providers() []Provider {
	return []Provider{
		ProviderRuleBased,
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGemini,
		ProviderLocal,
	}
}

// Valid reports whether p is a member of the closed provider set.
func (p Provider) Valid() bool {
	switch p {
	case ProviderRuleBased, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderLocal:
		return true
	}
	return false
}

// Candidate is one interactable element extracted from the page by the
// content script. Selector is an opaque locator assumed unique on the page
// at plan time; all descriptive fields default to empty.
type Candidate struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	Text        string `json:"text,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Href        string `json:"href,omitempty"`
}

// PageSnapshot is the state of the current page, supplied fresh per request.
// Candidate order is significant: the matcher's tie-break favors first-seen.
type PageSnapshot struct {
	URL        string      `json:"url"`
	Title      string      `json:"title"`
	Text       string      `json:"text"`
	Candidates []Candidate `json:"candidates"`
}

// PlanRequest is one planning call: the user's goal plus the page it applies
// to. ScreenshotDataURL is opaque to the core and only forwarded to
// model-backed strategies with vision support. Provider, when non-empty,
// overrides the configured default.
type PlanRequest struct {
	UserRequest       string       `json:"userRequest"`
	Page              PageSnapshot `json:"page"`
	ScreenshotDataURL string       `json:"screenshotDataUrl,omitempty"`
	Provider          Provider     `json:"provider,omitempty"`
}

// Step is a single action in an execution plan. Which parameter fields are
// required depends on Tool.
type Step struct {
	Tool     Tool   `json:"tool"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	DeltaY   int    `json:"deltaY,omitempty"`
	URL      string `json:"url,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Validate checks that the step's parameter fields match its tool.
// The planners only construct well-formed steps and the service returns
// plans as-is; this is for consumers that execute plans and want to reject
// a malformed step before dispatching it as a browser action.
func (s Step) Validate() error {
	switch s.Tool {
	case ToolClick:
		if s.Selector == "" {
			return fmt.Errorf("CLICK step requires a selector")
		}
	case ToolType:
		if s.Selector == "" {
			return fmt.Errorf("TYPE step requires a selector")
		}
		if s.Text == "" {
			return fmt.Errorf("TYPE step requires text")
		}
	case ToolScroll:
		if s.DeltaY == 0 {
			return fmt.Errorf("SCROLL step requires a non-zero deltaY")
		}
	case ToolNavigate:
		if s.URL == "" {
			return fmt.Errorf("NAVIGATE step requires a url")
		}
	default:
		return fmt.Errorf("unknown tool %q", s.Tool)
	}
	return nil
}

// PlanResponse is the outcome of one planning call. Summary is always
// present, even in total failure. If Error is set, Steps should be empty.
type PlanResponse struct {
	Summary string `json:"summary"`
	Steps   []Step `json:"steps"`
	Error   string `json:"error,omitempty"`
}
