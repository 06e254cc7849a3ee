package runner

import (
	"context"
	"fmt"

	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

// resolution is the outcome of resolving a check's conditions for one
// scheduled binding.
type resolution int

const (
	// resolutionRun means every condition held; the body is invoked.
	resolutionRun resolution = iota
	// resolutionSkip means at least one condition evaluated false.
	resolutionSkip
	// resolutionFail means at least one condition evaluation errored.
	resolutionFail
)

type dependencies struct {
	resolution resolution
	unmet      []string // every unmet condition, not just the first
	err        error    // *types.FailedConditionError when resolution is resolutionFail
}

// resolveDependencies evaluates every declared condition of a check
// against the current binding. Evaluated once per scheduled binding, not
// once per check: a singular dimension may flip a condition's truth value
// between bindings. Errors take precedence over unmet conditions; the
// check body is never invoked unless the resolution is resolutionRun.
func (r *run) resolveDependencies(ctx context.Context, check registry.Check, b world.Binding) dependencies {
	var failures []types.ConditionFailure
	var unmet []string

	for _, name := range check.Conditions {
		cond, ok := r.engine.profile.Condition(name)
		if !ok {
			// Profile validation rejects unknown conditions; this guards
			// against profiles mutated after validation.
			failures = append(failures, types.ConditionFailure{
				Condition: name,
				Err:       fmt.Errorf("condition %q is not registered", name),
			})
			continue
		}
		out := r.evalCondition(ctx, cond, b)
		if out.err != nil {
			failures = append(failures, types.ConditionFailure{Condition: name, Err: out.err})
			continue
		}
		if !out.value {
			unmet = append(unmet, name)
		}
	}

	if len(failures) > 0 {
		return dependencies{resolution: resolutionFail, err: &types.FailedConditionError{Failures: failures}}
	}
	if len(unmet) > 0 {
		return dependencies{resolution: resolutionSkip, unmet: unmet}
	}
	return dependencies{resolution: resolutionRun}
}

// evalCondition returns the memoized outcome of a condition for the
// sub-binding restricted to the condition's iterated dimensions.
func (r *run) evalCondition(ctx context.Context, cond registry.Condition, b world.Binding) conditionOutcome {
	dims := r.engine.profile.ConditionDimensions(cond.Name)
	key := cond.Name + "\x1f" + b.Sub(dims).Key()
	return r.cache.do(key, func() conditionOutcome {
		return r.invokeCondition(ctx, cond, b)
	})
}

// invokeCondition runs the predicate once, recovering panics into error
// outcomes so a broken predicate is cached and reported like any other
// condition error.
func (r *run) invokeCondition(ctx context.Context, cond registry.Condition, b world.Binding) (out conditionOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.engine.log.Error("Condition predicate panicked", "condition", cond.Name, "panic", rec)
			out = conditionOutcome{err: fmt.Errorf("condition %q panicked: %v", cond.Name, rec)}
		}
	}()

	args, err := r.resolveArgs(ctx, cond.Args, b)
	if err != nil {
		return conditionOutcome{err: fmt.Errorf("condition %q: %w", cond.Name, err)}
	}

	value, err := cond.Eval(ctx, args)
	if err != nil {
		return conditionOutcome{err: err}
	}
	return conditionOutcome{value: value}
}
