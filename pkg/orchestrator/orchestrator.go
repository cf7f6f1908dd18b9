// Package orchestrator owns the request-handling policy around planning
// strategies: resolve the provider, run its strategy, and degrade to the
// rule-based strategy when a model-backed one fails.
//
// The policy, per request:
//
//  1. Provider := request override, else the configured default.
//  2. Resolve the strategy. Unknown or unusable providers reject
//     immediately; a bad request is not recoverable by trying another
//     provider.
//  3. Run the strategy. A response-level error or an unexpected fault from
//     a model-backed strategy triggers fallback; the same from rule_based
//     is terminal, since the last-resort strategy is expected never to
//     fail.
//  4. Fallback re-plans the same request with rule_based and marks the
//     summary so callers can distinguish a degraded plan from a confident
//     one.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/logging"
	"github.com/entrhq/pilot/pkg/planner"
	"github.com/entrhq/pilot/pkg/types"
)

// FallbackPrefix marks summaries produced by the rule-based strategy after
// the originally selected provider failed.
const FallbackPrefix = "[Fallback] "

// PlannerSource resolves provider identifiers to strategy instances.
// *factory.Factory implements it.
type PlannerSource interface {
	GetPlanner(provider types.Provider) (planner.Planner, error)
}

// ProviderList is the read-only provider listing exposed to callers.
type ProviderList struct {
	Providers []types.Provider `json:"providers"`
	Default   types.Provider   `json:"default"`
}

// Orchestrator applies the selection and fallback policy. Stateless across
// requests; safe for concurrent use.
type Orchestrator struct {
	planners        PlannerSource
	defaultProvider types.Provider
	logger          *logging.Logger
}

// New creates an orchestrator. logger may be nil, in which case policy
// decisions are not logged.
func New(planners PlannerSource, settings *config.Settings, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		planners:        planners,
		defaultProvider: settings.DefaultProvider,
		logger:          logger,
	}
}

// Providers returns the closed provider set and the configured default.
func (o *Orchestrator) Providers() ProviderList {
	return ProviderList{
		Providers: types.Providers(),
		Default:   o.defaultProvider,
	}
}

// Plan produces a plan for the request, applying the fallback policy.
//
// The returned error is non-nil only for terminal outcomes the transport
// layer must map to a status: planner.ErrUnknownProvider /
// planner.ErrConfiguration (client error) or an unexpected rule_based fault
// (server error). Every other failure mode resolves to a response whose
// Summary explains what happened.
func (o *Orchestrator) Plan(ctx context.Context, req *types.PlanRequest) (*types.PlanResponse, error) {
	provider := req.Provider
	if provider == "" {
		provider = o.defaultProvider
	}

	strategy, err := o.planners.GetPlanner(provider)
	if err != nil {
		o.errorf("provider %s unusable: %v", provider, err)
		return nil, err
	}

	resp, err := strategy.Plan(ctx, req)
	if err != nil {
		if provider == types.ProviderRuleBased {
			// The last-resort strategy failed; nothing to degrade to.
			return nil, fmt.Errorf("rule_based planning failed: %w", err)
		}
		o.warnf("provider %s raised: %v; falling back to rule_based", provider, err)
		return o.fallback(ctx, req, err.Error()), nil
	}

	if resp.Error != "" && provider != types.ProviderRuleBased {
		o.warnf("provider %s failed with error: %s; falling back to rule_based", provider, resp.Error)
		return o.fallback(ctx, req, resp.Error), nil
	}

	return resp, nil
}

// fallback re-plans the original request with the rule-based strategy.
// It always resolves to a response; a failure here is the doubly-failed
// terminal state and is surfaced in the response, never swallowed.
func (o *Orchestrator) fallback(ctx context.Context, req *types.PlanRequest, originalErr string) *types.PlanResponse {
	strategy, err := o.planners.GetPlanner(types.ProviderRuleBased)
	if err == nil {
		var resp *types.PlanResponse
		resp, err = strategy.Plan(ctx, req)
		if err == nil {
			if len(resp.Steps) > 0 {
				resp.Summary = FallbackPrefix + resp.Summary
			} else {
				// Rule-based could not help either; name the real cause
				// instead of leaving a generic "no plan" message.
				resp.Summary = fmt.Sprintf(
					"AI provider unavailable (%s). Try: 'search <term>', 'click <button text>', or 'scroll down'.",
					originalErr)
			}
			return resp
		}
	}

	o.errorf("fallback to rule_based also failed: %v", err)
	return &types.PlanResponse{
		Summary: fmt.Sprintf("All planners failed. Original error: %s", originalErr),
		Steps:   []types.Step{},
		Error:   fmt.Sprintf("fallback also failed: %v", err),
	}
}

func (o *Orchestrator) warnf(format string, v ...interface{}) {
	if o.logger != nil {
		o.logger.Warnf(format, v...)
	}
}

func (o *Orchestrator) errorf(format string, v ...interface{}) {
	if o.logger != nil {
		o.logger.Errorf(format, v...)
	}
}
