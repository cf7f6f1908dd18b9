package matcher

import (
	"testing"

	"github.com/entrhq/pilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buttonAndInput = map[string]bool{"button": true, "input": true}

func TestBestMatch_TagFilter(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#div", Tag: "div", Text: "search everything"},
		{Selector: "#btn", Tag: "button", Text: "search"},
	}

	got := BestMatch(candidates, map[string]bool{"button": true}, []string{"search"})
	require.NotNil(t, got)
	assert.Equal(t, "#btn", got.Selector, "excluded tags must never be selected, even with a higher score")
}

func TestBestMatch_TagFilterCaseInsensitive(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#btn", Tag: "BUTTON", Text: "search"},
	}

	got := BestMatch(candidates, map[string]bool{"button": true}, []string{"search"})
	require.NotNil(t, got)
	assert.Equal(t, "#btn", got.Selector)
}

func TestBestMatch_EmptyKeywords(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#btn", Tag: "button", Text: "go"},
	}

	assert.Nil(t, BestMatch(candidates, buttonAndInput, nil))
	assert.Nil(t, BestMatch(candidates, buttonAndInput, []string{"", "   "}))
}

func TestBestMatch_NoCandidatePassesFilter(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#div", Tag: "div", Text: "search"},
	}

	assert.Nil(t, BestMatch(candidates, buttonAndInput, []string{"search"}))
}

func TestBestMatch_ZeroScoreStillReturned(t *testing.T) {
	// No keyword hit, no labels: score 0. Still better than the -1 sentinel.
	candidates := []types.Candidate{
		{Selector: "#plain", Tag: "button"},
	}

	got := BestMatch(candidates, buttonAndInput, []string{"unrelated"})
	require.NotNil(t, got)
	assert.Equal(t, "#plain", got.Selector)
}

func TestBestMatch_TieBreakFavorsFirst(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#first", Tag: "button", Text: "search"},
		{Selector: "#second", Tag: "button", Text: "search"},
	}

	got := BestMatch(candidates, buttonAndInput, []string{"search"})
	require.NotNil(t, got)
	assert.Equal(t, "#first", got.Selector)
}

func TestBestMatch_Scoring(t *testing.T) {
	tests := []struct {
		name       string
		candidates []types.Candidate
		keywords   []string
		want       string
	}{
		{
			name: "keyword match beats label bonus",
			candidates: []types.Candidate{
				// 3 presence bonuses = 3 points
				{Selector: "#labeled", Tag: "button", Text: "a", AriaLabel: "b", Placeholder: "c"},
				// 2 keyword matches = 4 points
				{Selector: "#matched", Tag: "button", Href: "/search?find=1"},
			},
			keywords: []string{"search", "find"},
			want:     "#matched",
		},
		{
			name: "well-labeled bonus breaks keyword tie",
			candidates: []types.Candidate{
				{Selector: "#anon", Tag: "input", Name: "search"},
				{Selector: "#labeled", Tag: "input", Name: "search", Placeholder: "Search here"},
			},
			keywords: []string{"search"},
			want:     "#labeled",
		},
		{
			name: "keyword matching is case-insensitive substring",
			candidates: []types.Candidate{
				{Selector: "#a", Tag: "button", Text: "Go somewhere"},
				{Selector: "#b", Tag: "button", AriaLabel: "Google Search"},
			},
			keywords: []string{"SEARCH"},
			want:     "#b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestMatch(tt.candidates, buttonAndInput, tt.keywords)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Selector)
		})
	}
}

func TestFindSearchInput(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#btn", Tag: "button", AriaLabel: "Google Search"},
		{Selector: "#q", Tag: "input", Placeholder: "Search"},
	}

	got := FindSearchInput(candidates)
	require.NotNil(t, got)
	assert.Equal(t, "#q", got.Selector, "buttons are not search inputs")
}

func TestFindSearchInput_NoInputs(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#btn", Tag: "button", Text: "Search"},
	}
	assert.Nil(t, FindSearchInput(candidates))
}

func TestFindSubmitButton(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#q", Tag: "textarea", Placeholder: "Search"},
		{Selector: "#go", Tag: "button", Text: "Go"},
	}

	got := FindSubmitButton(candidates)
	require.NotNil(t, got)
	assert.Equal(t, "#go", got.Selector)
}

func TestFindClickable(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#signin", Tag: "a", Text: "Sign in"},
		{Selector: "#other", Tag: "a", Text: "Help"},
	}

	got := FindClickable(candidates, "sign in")
	require.NotNil(t, got)
	assert.Equal(t, "#signin", got.Selector)
}

func TestFindClickable_EmptyTarget(t *testing.T) {
	candidates := []types.Candidate{
		{Selector: "#a", Tag: "a", Text: "Anything"},
	}
	assert.Nil(t, FindClickable(candidates, "   "), "empty target must signal no match, not pick arbitrarily")
}
