// Package factory resolves provider identifiers to planning strategy
// instances. It imports the strategy and client sub-packages and maps each
// member of the closed provider set to its constructor, breaking the import
// cycle that would occur if this logic lived in the planner package
// directly.
//
// Instances are constructed lazily on first request and cached for the
// process lifetime. Construction is cheap and side-effect free beyond
// credential validation, so serializing it under one mutex is sufficient.
package factory

import (
	"fmt"
	"sync"

	"github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/llm/anthropic"
	"github.com/entrhq/pilot/pkg/llm/gemini"
	"github.com/entrhq/pilot/pkg/llm/openai"
	"github.com/entrhq/pilot/pkg/planner"
	"github.com/entrhq/pilot/pkg/planner/llmplanner"
	"github.com/entrhq/pilot/pkg/planner/rulebased"
	"github.com/entrhq/pilot/pkg/types"
)

// Factory creates and caches planner instances per provider.
// Safe for concurrent use.
type Factory struct {
	settings *config.Settings

	mu    sync.Mutex
	cache map[types.Provider]planner.Planner
}

// New creates a factory over the given settings. Settings are read-only
// from here on; per-provider credential checks happen lazily when a
// provider is first requested.
func New(settings *config.Settings) *Factory {
	return &Factory{
		settings: settings,
		cache:    make(map[types.Provider]planner.Planner),
	}
}

// GetPlanner returns the strategy instance for the given provider,
// constructing and caching it on first request.
//
// Fails with planner.ErrUnknownProvider for identifiers outside the closed
// set, and with planner.ErrConfiguration when the provider's construction
// preconditions (credential present, vision model distinct) do not hold.
// Failed constructions are not cached, so a provider configured later in
// the process lifetime is retried.
func (f *Factory) GetPlanner(provider types.Provider) (planner.Planner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.cache[provider]; ok {
		return p, nil
	}

	p, err := f.build(provider)
	if err != nil {
		return nil, err
	}

	f.cache[provider] = p
	return p, nil
}

// ClearCache drops all cached instances. Subsequent requests reconstruct.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[types.Provider]planner.Planner)
}

// build constructs the strategy for one provider.
func (f *Factory) build(provider types.Provider) (planner.Planner, error) {
	switch provider {
	case types.ProviderRuleBased:
		return rulebased.New(), nil

	case types.ProviderOpenAI:
		opts := []openai.ClientOption{openai.WithModel(f.settings.OpenAI.Model)}
		if f.settings.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(f.settings.OpenAI.BaseURL))
		}
		client, err := openai.NewClient(f.settings.OpenAI.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", planner.ErrConfiguration, err)
		}
		return llmplanner.New(provider, client), nil

	case types.ProviderAnthropic:
		opts := []anthropic.ClientOption{anthropic.WithModel(f.settings.Anthropic.Model)}
		if f.settings.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(f.settings.Anthropic.BaseURL))
		}
		client, err := anthropic.NewClient(f.settings.Anthropic.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", planner.ErrConfiguration, err)
		}
		return llmplanner.New(provider, client), nil

	case types.ProviderGemini:
		opts := []gemini.ClientOption{gemini.WithModel(f.settings.Gemini.Model)}
		if f.settings.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(f.settings.Gemini.BaseURL))
		}
		client, err := gemini.NewClient(f.settings.Gemini.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", planner.ErrConfiguration, err)
		}
		return llmplanner.New(provider, client), nil

	case types.ProviderLocal:
		return f.buildLocal()

	default:
		return nil, fmt.Errorf("%w: %q", planner.ErrUnknownProvider, provider)
	}
}

// buildLocal constructs the local-endpoint strategy. Local endpoints speak
// the OpenAI chat-completions dialect and need no real credential; the
// placeholder key only satisfies the client constructor.
func (f *Factory) buildLocal() (planner.Planner, error) {
	client, err := openai.NewClient("local",
		openai.WithName("local"),
		openai.WithBaseURL(f.settings.Local.URL),
		openai.WithModel(f.settings.Local.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", planner.ErrConfiguration, err)
	}

	if !f.settings.Vision.Enabled {
		return llmplanner.New(types.ProviderLocal, client), nil
	}

	// Sending screenshots to a text-only model helps nobody; require an
	// explicitly distinct vision model.
	if f.settings.Vision.Model == f.settings.Local.Model {
		return nil, fmt.Errorf("%w: vision model %q must be distinct from the local planning model",
			planner.ErrConfiguration, f.settings.Vision.Model)
	}

	vision := client.CloneWithModel(f.settings.Vision.Model)
	return llmplanner.New(types.ProviderLocal, client, llmplanner.WithVision(vision)), nil
}
