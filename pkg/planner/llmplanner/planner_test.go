package llmplanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter records the requests it receives and replays canned
// responses.
type fakeCompleter struct {
	name     string
	response string
	err      error
	requests []*llm.CompletionRequest
}

func (f *fakeCompleter) Name() string {
	return f.name
}

func (f *fakeCompleter) Complete(_ context.Context, req *llm.CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testRequest() *types.PlanRequest {
	candidates := []types.Candidate{
		{Selector: "input[name=q]", Tag: "input", Placeholder: "Search"},
		{Selector: "#go", Tag: "button", Text: "Go"},
	}
	return &types.PlanRequest{
		UserRequest: "search cats",
		Page: types.PageSnapshot{
			URL:        "https://example.com",
			Title:      "Example",
			Text:       "Welcome to example.com",
			Candidates: candidates,
		},
	}
}

func TestPlanner_Plan(t *testing.T) {
	fake := &fakeCompleter{name: "openai", response: validPlanJSON}
	p := New(types.ProviderOpenAI, fake)

	resp, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	require.Empty(t, resp.Error)
	assert.Len(t, resp.Steps, 3)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, planningPrompt, req.System)
	assert.Contains(t, req.User, "User Goal: search cats")
	assert.Contains(t, req.User, "https://example.com")
	assert.Contains(t, req.User, "selector='input[name=q]'")
	assert.Contains(t, req.User, "Welcome to example.com")
}

func TestPlanner_Plan_CapabilityError(t *testing.T) {
	fake := &fakeCompleter{name: "openai", err: errors.New("connection refused")}
	p := New(types.ProviderOpenAI, fake)

	resp, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err, "capability failures must not escape Plan as errors")
	assert.Empty(t, resp.Steps)
	assert.Contains(t, resp.Error, "connection refused")
	assert.Contains(t, resp.Summary, "openai planning failed")
}

func TestPlanner_Plan_ParseError(t *testing.T) {
	fake := &fakeCompleter{name: "openai", response: "no JSON here"}
	p := New(types.ProviderOpenAI, fake)

	resp, err := p.Plan(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Steps)
	assert.NotEmpty(t, resp.Error)
}

func TestPlanner_CandidateDigestCap(t *testing.T) {
	req := testRequest()
	req.Page.Candidates = nil
	for i := 0; i < 100; i++ {
		req.Page.Candidates = append(req.Page.Candidates, types.Candidate{
			Selector: fmt.Sprintf("#el-%d", i),
			Tag:      "button",
		})
	}

	fake := &fakeCompleter{name: "openai", response: validPlanJSON}
	p := New(types.ProviderOpenAI, fake)

	_, err := p.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	digestLines := strings.Count(fake.requests[0].User, "- button: selector=")
	assert.Equal(t, maxCandidates, digestLines)
}

func TestPlanner_PageTextTruncated(t *testing.T) {
	req := testRequest()
	req.Page.Text = strings.Repeat("lorem ipsum dolor sit amet ", 2000)

	fake := &fakeCompleter{name: "openai", response: validPlanJSON}
	p := New(types.ProviderOpenAI, fake)

	_, err := p.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	assert.Less(t, len(fake.requests[0].User), len(req.Page.Text),
		"page text must be truncated to the token budget")
}

func TestPlanner_VisionPrePass(t *testing.T) {
	visionResponse := `{"pageType": "search", "headings": ["Example"], "confidence": 0.9}`
	vision := &fakeCompleter{name: "local-vision", response: visionResponse}
	text := &fakeCompleter{name: "local", response: validPlanJSON}

	p := New(types.ProviderLocal, text, WithVision(vision))

	req := testRequest()
	req.ScreenshotDataURL = "data:image/png;base64,aGVsbG8="

	resp, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	// Perception sub-call received the screenshot.
	require.Len(t, vision.requests, 1)
	assert.Equal(t, observationPrompt, vision.requests[0].System)
	assert.Equal(t, req.ScreenshotDataURL, vision.requests[0].ImageDataURL)

	// Planning call received the serialized observation, not the image.
	require.Len(t, text.requests, 1)
	assert.Contains(t, text.requests[0].User, `"pageType":"search"`)
	assert.Empty(t, text.requests[0].ImageDataURL)
}

func TestPlanner_VisionFailurePropagates(t *testing.T) {
	vision := &fakeCompleter{name: "local-vision", err: errors.New("model not loaded")}
	text := &fakeCompleter{name: "local", response: validPlanJSON}

	p := New(types.ProviderLocal, text, WithVision(vision))

	req := testRequest()
	req.ScreenshotDataURL = "data:image/png;base64,aGVsbG8="

	resp, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Steps)
	assert.Contains(t, resp.Error, "model not loaded")
	assert.Empty(t, text.requests, "planning call must not run when perception fails")
}

func TestPlanner_VisionUnparseableObservationWrapped(t *testing.T) {
	vision := &fakeCompleter{name: "local-vision", response: "The page looks like a search engine."}
	text := &fakeCompleter{name: "local", response: validPlanJSON}

	p := New(types.ProviderLocal, text, WithVision(vision))

	req := testRequest()
	req.ScreenshotDataURL = "data:image/png;base64,aGVsbG8="

	resp, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	require.Len(t, text.requests, 1)
	assert.Contains(t, text.requests[0].User, "rawObservation")
}

func TestPlanner_NoVisionConfiguredIgnoresScreenshot(t *testing.T) {
	text := &fakeCompleter{name: "openai", response: validPlanJSON}
	p := New(types.ProviderOpenAI, text)

	req := testRequest()
	req.ScreenshotDataURL = "data:image/png;base64,aGVsbG8="

	resp, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Error)

	require.Len(t, text.requests, 1)
	assert.NotContains(t, text.requests[0].User, "Visual Observation")
}
