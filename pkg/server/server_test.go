package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/orchestrator"
	"github.com/entrhq/pilot/pkg/planner/factory"
	"github.com/entrhq/pilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a real factory and orchestrator with rule_based as the
// default, so handler tests exercise the full planning path without network.
func newTestServer(t *testing.T, origins ...string) *Server {
	t.Helper()

	settings := config.Default()
	settings.DefaultProvider = types.ProviderRuleBased
	if len(origins) > 0 {
		settings.Server.CORSOrigins = origins
	}

	orch := orchestrator.New(factory.New(settings), settings, nil)
	s, err := New(orch, settings.Server, nil)
	require.NoError(t, err)
	return s
}

func planBody(t *testing.T, req *types.PlanRequest) *strings.Reader {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return strings.NewReader(string(data))
}

func searchRequest() *types.PlanRequest {
	return &types.PlanRequest{
		UserRequest: "search cats",
		Page: types.PageSnapshot{
			URL: "https://example.com",
			Candidates: []types.Candidate{
				{Selector: "input[name=q]", Tag: "input", Placeholder: "Search"},
				{Selector: "button[type=submit]", Tag: "button", Text: "Search"},
			},
		},
	}
}

func TestServer_PlanSuccess(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plan", planBody(t, searchRequest()))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp types.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Steps)
	assert.Equal(t, types.ToolClick, resp.Steps[0].Tool)
	assert.Empty(t, resp.Error)
}

func TestServer_PlanInvalidJSON(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader("{not json"))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Detail, "invalid request body")
}

func TestServer_PlanValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.PlanRequest)
		wantMsg string
	}{
		{
			name:    "missing goal",
			mutate:  func(r *types.PlanRequest) { r.UserRequest = "  " },
			wantMsg: "userRequest is required",
		},
		{
			name:    "missing page url",
			mutate:  func(r *types.PlanRequest) { r.Page.URL = "" },
			wantMsg: "page.url is required",
		},
		{
			name:    "candidate without selector",
			mutate:  func(r *types.PlanRequest) { r.Page.Candidates[0].Selector = "" },
			wantMsg: "candidates[0]: selector is required",
		},
		{
			name:    "candidate without tag",
			mutate:  func(r *types.PlanRequest) { r.Page.Candidates[1].Tag = "" },
			wantMsg: "candidates[1]: tag is required",
		},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := searchRequest()
			tt.mutate(body)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/plan", planBody(t, body))
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
		})
	}
}

func TestServer_PlanUnknownProvider(t *testing.T) {
	s := newTestServer(t)

	body := searchRequest()
	body.Provider = types.Provider("skynet")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plan", planBody(t, body))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, "an out-of-set provider is a client error, not a fallback trigger")
	assert.Contains(t, rec.Body.String(), "skynet")
}

func TestServer_PlanMissingCredential(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	s := newTestServer(t)

	body := searchRequest()
	body.Provider = types.ProviderAnthropic

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plan", planBody(t, body))
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Providers(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var list orchestrator.ProviderList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, types.Providers(), list.Providers)
	assert.Equal(t, types.ProviderRuleBased, list.Default)
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_CORSWildcard(t *testing.T) {
	s := newTestServer(t, "*")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://anything.example")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://anything.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSGlobPatterns(t *testing.T) {
	s := newTestServer(t, "https://*.example.com", "http://localhost:*")

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.example.com", true},
		{"https://deep.app.example.com", true},
		{"http://localhost:5173", true},
		{"https://evil.com", false},
		{"http://example.com.evil.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", tt.origin)
			s.Handler().ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				assert.Equal(t, tt.origin, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t, "*")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/plan", nil)
	req.Header.Set("Origin", "https://app.example.com")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServer_InvalidCORSPattern(t *testing.T) {
	settings := config.Default()
	settings.Server.CORSOrigins = []string{"https://[unterminated"}

	orch := orchestrator.New(factory.New(settings), settings, nil)
	_, err := New(orch, settings.Server, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CORS origin pattern")
}
