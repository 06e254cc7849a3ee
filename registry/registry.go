// Package registry holds check profiles: the named conditions, ordered
// check definitions and iterated-argument registry that together describe
// what a run executes. Profiles are validated eagerly; a malformed profile
// is a configuration error and aborts setup before anything is scheduled.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/typeforge/checkrun/world"
)

// ConditionFn is a condition predicate. It receives the arguments it
// declared, resolved against the current binding, and reports whether the
// condition holds. Errors (and recovered panics) are cached per binding
// and fail every check depending on the condition for that binding.
type ConditionFn func(ctx context.Context, args world.Args) (bool, error)

// ReportFn accepts one raw result from a check body. status may be a
// types.Status or a bool; message may be a string or an error. Each
// reported result is validated before it is emitted.
type ReportFn func(status, message any)

// CheckFn is a check body. It may report any number of results, in order;
// a body that panics is recovered and converted to a single FAIL result,
// keeping the results it reported before the panic.
type CheckFn func(ctx context.Context, args world.Args, report ReportFn)

// Condition is a named predicate with its declared argument names.
// Immutable once registered. Argument names may be iterated dimensions,
// plural collections or other condition names.
type Condition struct {
	Name string
	Args []string
	Eval ConditionFn
}

// Check is a named unit of work with its declared argument names and
// required condition names. Immutable once registered.
type Check struct {
	Name       string
	Args       []string
	Conditions []string
	Run        CheckFn
}

// Config contains profile configuration.
type Config struct {
	Log      log.Logger
	IterArgs *world.IterArgs
}

// Profile is the registry of everything one run may execute.
type Profile struct {
	config     Config
	iterArgs   *world.IterArgs
	conditions map[string]Condition
	checks     []Check
	checkIdx   map[string]int
	mu         sync.RWMutex
}

// NewProfile creates an empty profile.
func NewProfile(cfg Config) (*Profile, error) {
	if cfg.IterArgs == nil {
		return nil, fmt.Errorf("iterated-argument registry is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Profile{
		config:     cfg,
		iterArgs:   cfg.IterArgs,
		conditions: make(map[string]Condition),
		checkIdx:   make(map[string]int),
	}, nil
}

// AddCondition registers a condition. Its name must not collide with an
// iterated-argument name or an already registered condition.
func (p *Profile) AddCondition(c Condition) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Name == "" {
		return fmt.Errorf("condition name must not be empty")
	}
	if c.Eval == nil {
		return fmt.Errorf("condition %q has no predicate", c.Name)
	}
	if p.iterArgs.Kind(c.Name) != world.ArgUnknown {
		return fmt.Errorf("condition name %q collides with an iterated-argument name", c.Name)
	}
	if _, exists := p.conditions[c.Name]; exists {
		return fmt.Errorf("condition %q already registered", c.Name)
	}
	p.conditions[c.Name] = c
	return nil
}

// AddCheck registers a check, keeping declaration order. A duplicate name
// is not an error: the first registration wins and a warning is surfaced,
// so a profile assembled from several sections keeps a stable count.
func (p *Profile) AddCheck(c Check) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Name == "" {
		return fmt.Errorf("check name must not be empty")
	}
	if p.iterArgs.Kind(c.Name) != world.ArgUnknown {
		return fmt.Errorf("check name %q collides with an iterated-argument name", c.Name)
	}
	if _, dup := p.checkIdx[c.Name]; dup {
		p.config.Log.Warn("Duplicate check declaration, keeping first instance", "check", c.Name)
		return nil
	}
	p.checkIdx[c.Name] = len(p.checks)
	p.checks = append(p.checks, c)
	return nil
}

// Validate verifies the profile as a whole: every condition a check names
// must exist, condition argument references must resolve, and condition
// dependencies must be acyclic. Cycles are rejected here, before
// scheduling begins, rather than discovered mid-run.
func (p *Profile) Validate() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, cond := range p.conditions {
		for _, arg := range cond.Args {
			if err := p.checkArgRef(arg); err != nil {
				return fmt.Errorf("condition %q: %w", name, err)
			}
		}
		if err := p.checkConditionCycle(name, cond, make(map[string]bool)); err != nil {
			return fmt.Errorf("circular condition dependency: %w", err)
		}
	}

	for _, c := range p.checks {
		for _, condName := range c.Conditions {
			if _, ok := p.conditions[condName]; !ok {
				return fmt.Errorf("check %q requires unknown condition %q", c.Name, condName)
			}
		}
		for _, arg := range c.Args {
			if err := p.checkArgRef(arg); err != nil {
				return fmt.Errorf("check %q: %w", c.Name, err)
			}
		}
	}

	p.config.Log.Debug("Profile validated", "len(checks)", len(p.checks), "len(conditions)", len(p.conditions))
	return nil
}

// checkArgRef verifies one declared argument name is resolvable: an
// iterated dimension (either form) or a registered condition.
func (p *Profile) checkArgRef(arg string) error {
	if p.iterArgs.Kind(arg) != world.ArgUnknown {
		return nil
	}
	if _, ok := p.conditions[arg]; ok {
		return nil
	}
	return fmt.Errorf("argument %q is neither an iterated dimension nor a condition", arg)
}

// checkConditionCycle detects circular dependencies between conditions.
// A condition depends on another by naming it as an argument.
func (p *Profile) checkConditionCycle(currentID string, cond Condition, visited map[string]bool) error {
	if visited[currentID] {
		return fmt.Errorf("cycle detected at condition %s", currentID)
	}

	visited[currentID] = true
	defer delete(visited, currentID) // Clean up after checking this branch

	for _, arg := range cond.Args {
		dep, ok := p.conditions[arg]
		if !ok {
			continue
		}
		if err := p.checkConditionCycle(arg, dep, visited); err != nil {
			return err
		}
	}
	return nil
}

// Checks returns all registered checks in declaration order.
func (p *Profile) Checks() []Check {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Check, len(p.checks))
	copy(out, p.checks)
	return out
}

// Condition returns a registered condition by name.
func (p *Profile) Condition(name string) (Condition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conditions[name]
	return c, ok
}

// IterArgs returns the profile's iterated-argument registry.
func (p *Profile) IterArgs() *world.IterArgs {
	return p.iterArgs
}

// ConditionDimensions returns the singular dimensions a condition needs,
// including those needed transitively through condition arguments, in
// iterated-argument declaration order. The result keys the condition
// cache: two bindings agreeing on these dimensions share one evaluation.
func (p *Profile) ConditionDimensions(name string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	dims := make(map[string]struct{})
	p.collectConditionDims(name, dims, make(map[string]bool))
	return p.orderedDims(dims)
}

// Dimensions returns the singular dimensions a check needs, directly or
// via its conditions, in iterated-argument declaration order. This is the
// scheduler's notion of which dimensions the check requires; a plural
// argument never contributes a dimension.
func (p *Profile) Dimensions(c Check) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dims := make(map[string]struct{})
	seen := make(map[string]bool)
	for _, arg := range c.Args {
		if p.iterArgs.Kind(arg) == world.ArgSingular {
			dims[arg] = struct{}{}
		}
		p.collectConditionDims(arg, dims, seen)
	}
	for _, condName := range c.Conditions {
		p.collectConditionDims(condName, dims, seen)
	}
	return p.orderedDims(dims)
}

func (p *Profile) collectConditionDims(name string, dims map[string]struct{}, seen map[string]bool) {
	cond, ok := p.conditions[name]
	if !ok || seen[name] {
		return
	}
	seen[name] = true
	for _, arg := range cond.Args {
		if p.iterArgs.Kind(arg) == world.ArgSingular {
			dims[arg] = struct{}{}
			continue
		}
		p.collectConditionDims(arg, dims, seen)
	}
}

func (p *Profile) orderedDims(dims map[string]struct{}) []string {
	var out []string
	for _, s := range p.iterArgs.Singulars() {
		if _, ok := dims[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
