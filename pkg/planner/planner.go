// Package planner defines the planning strategy contract and the factory
// that resolves provider identifiers to cached strategy instances.
//
// A Planner turns a PlanRequest into a PlanResponse. Strategies come in two
// families: the rule-based heuristic (always available, no external
// dependency) and model-backed strategies that delegate to an injected
// completion capability. The orchestrator package owns selecting between
// them and degrading from one to the other.
package planner

import (
	"context"
	"errors"

	"github.com/entrhq/pilot/pkg/types"
)

// ErrUnknownProvider is returned by the factory for identifiers outside the
// closed provider set. The HTTP layer maps it to a client error; it is never
// recovered by falling back to another provider.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrConfiguration marks construction-time failures: a required credential
// is absent, or the vision model is not distinct from the planning model.
// Wrapped errors carry the specifics.
var ErrConfiguration = errors.New("planner configuration error")

// Planner is a concrete planning strategy.
//
// Plan never panics, and model-backed implementations never return an error
// for capability or parse failures; those are communicated through the
// response's Error field so the orchestrator can apply its fallback policy.
// A returned error signals an unexpected fault only.
//
// Instances are cached by the factory and shared across concurrent
// requests, so implementations must be stateless or internally thread-safe.
type Planner interface {
	// Name returns the provider identifier this strategy serves.
	Name() types.Provider

	// Plan produces an ordered sequence of browser actions for the request.
	Plan(ctx context.Context, req *types.PlanRequest) (*types.PlanResponse, error)
}
