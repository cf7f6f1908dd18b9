// Package config loads service settings with the precedence
// defaults < YAML file < environment variables.
//
// The result is an explicit Settings value passed into the factory,
// orchestrator, and server at construction. Nothing in the service reads
// ambient global configuration after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/entrhq/pilot/pkg/types"
	"gopkg.in/yaml.v3"
)

// ProviderSettings holds the credentials and model selection for one remote
// inference backend.
type ProviderSettings struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LocalSettings configures the local OpenAI-compatible endpoint
// (LM Studio, Ollama, vLLM). No credential is required.
type LocalSettings struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// VisionSettings gates the two-stage vision pre-pass of the local planner.
// Model must name a vision-capable model distinct from the planning model;
// the factory rejects the configuration otherwise.
type VisionSettings struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// ServerSettings configures the HTTP transport.
type ServerSettings struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Settings is the full service configuration.
type Settings struct {
	DefaultProvider types.Provider   `yaml:"default_provider"`
	OpenAI          ProviderSettings `yaml:"openai"`
	Anthropic       ProviderSettings `yaml:"anthropic"`
	Gemini          ProviderSettings `yaml:"gemini"`
	Local           LocalSettings    `yaml:"local"`
	Vision          VisionSettings   `yaml:"vision"`
	Server          ServerSettings   `yaml:"server"`
}

// Default returns the settings used when no file or environment overrides
// are present.
func Default() *Settings {
	return &Settings{
		DefaultProvider: types.ProviderRuleBased,
		OpenAI: ProviderSettings{
			Model: "gpt-4o",
		},
		Anthropic: ProviderSettings{
			Model: "claude-sonnet-4-20250514",
		},
		Gemini: ProviderSettings{
			Model: "gemini-1.5-pro",
		},
		Local: LocalSettings{
			URL:   "http://localhost:11434/v1",
			Model: "llama3",
		},
		Server: ServerSettings{
			Host:        "127.0.0.1",
			Port:        8765,
			CORSOrigins: []string{"*"},
		},
	}
}

// Load builds Settings from defaults, then the YAML file at path (skipped
// when path is empty; missing files are an error only when explicitly
// named), then environment variables.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// applyEnv overrides fields from environment variables. Names match the
// original deployment of this service (OPENAI_API_KEY, DEFAULT_PROVIDER, ...).
func (s *Settings) applyEnv() {
	setString(&s.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&s.OpenAI.Model, "OPENAI_MODEL")
	setString(&s.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&s.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&s.Anthropic.Model, "ANTHROPIC_MODEL")
	setString(&s.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&s.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&s.Gemini.Model, "GEMINI_MODEL")
	setString(&s.Gemini.BaseURL, "GEMINI_BASE_URL")
	setString(&s.Local.URL, "LOCAL_MODEL_URL")
	setString(&s.Local.Model, "LOCAL_MODEL_NAME")
	setString(&s.Vision.Model, "VISION_MODEL")
	setString(&s.Server.Host, "HOST")

	if v := os.Getenv("DEFAULT_PROVIDER"); v != "" {
		s.DefaultProvider = types.Provider(v)
	}
	if v := os.Getenv("VISION_ENABLED"); v != "" {
		s.Vision.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		s.Server.CORSOrigins = origins
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate checks invariants that hold regardless of which providers are
// exercised. Per-provider credential checks happen at strategy construction.
func (s *Settings) Validate() error {
	if !s.DefaultProvider.Valid() {
		return fmt.Errorf("invalid default provider %q (valid: %v)", s.DefaultProvider, types.Providers())
	}
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", s.Server.Port)
	}
	if s.Vision.Enabled && s.Vision.Model == "" {
		return fmt.Errorf("vision.enabled requires vision.model to be set")
	}
	return nil
}
