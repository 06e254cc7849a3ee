// Package schedule computes the deterministic total order of
// (check, binding) pairs for one run. Given every check's required
// dimensions and a caller-declared nesting order, it linearizes the
// cartesian product of the iterated dimensions into one flat sequence
// that clusters the way the order tokens demand. Re-planning identical
// inputs reproduces an identical sequence.
package schedule

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/world"
)

// Order tokens with special meaning. Any other token must be a singular
// iterated-dimension name.
const (
	// TokenCheck clusters the remaining expansion by check identity: all
	// bindings of one check are emitted contiguously.
	TokenCheck = "*check"
	// TokenVarargs expands, at its position, every iterated dimension not
	// named elsewhere in the order, in declaration order. Appended to the
	// end when omitted.
	TokenVarargs = "*varargs"
)

// Item is one scheduled pair: a check plus the binding it runs under.
// It is the atomic unit of the output order.
type Item struct {
	Check   registry.Check
	Binding world.Binding
}

// Config holds configuration for creating a planner.
type Config struct {
	Profile *registry.Profile
	World   world.World
	// Order is the caller-declared list of dimension tokens. Defaults to
	// all iterated dimensions in declaration order followed by TokenCheck.
	Order []string
	// SpecificFirst emits checks needing the current dimension before the
	// more generic ones at each nesting level. The default (false) emits
	// generic checks first.
	SpecificFirst bool
	Log           log.Logger
}

// Planner computes the execution order.
type Planner struct {
	profile       *registry.Profile
	world         world.World
	order         []string
	specificFirst bool
	log           log.Logger
	dims          map[string]map[string]bool // check name -> required dims
}

// New creates a planner, finalizing the order: duplicates are removed
// keeping the first occurrence, a missing *varargs token is appended and
// expanded in place, and a missing *check token is appended at the end.
// Unknown tokens are a configuration error.
func New(cfg Config) (*Planner, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if cfg.World == nil {
		return nil, fmt.Errorf("world is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	order, err := finalizeOrder(cfg.Order, cfg.Profile.IterArgs())
	if err != nil {
		return nil, err
	}

	dims := make(map[string]map[string]bool)
	for _, c := range cfg.Profile.Checks() {
		set := make(map[string]bool)
		for _, d := range cfg.Profile.Dimensions(c) {
			set[d] = true
		}
		dims[c.Name] = set
	}

	cfg.Log.Debug("Planner created", "order", order, "specificFirst", cfg.SpecificFirst)

	return &Planner{
		profile:       cfg.Profile,
		world:         cfg.World,
		order:         order,
		specificFirst: cfg.SpecificFirst,
		log:           cfg.Log,
		dims:          dims,
	}, nil
}

// finalizeOrder normalizes the caller-declared order into the full token
// list the partition walks.
func finalizeOrder(order []string, iterArgs *world.IterArgs) ([]string, error) {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range order {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	if !seen[TokenVarargs] {
		tokens = append(tokens, TokenVarargs)
		seen[TokenVarargs] = true
	}

	// Expand *varargs in place with every dimension not named elsewhere.
	var full []string
	for _, tok := range tokens {
		if tok != TokenVarargs {
			full = append(full, tok)
			continue
		}
		for _, s := range iterArgs.Singulars() {
			if !seen[s] {
				full = append(full, s)
			}
		}
	}

	for _, tok := range full {
		if tok == TokenCheck {
			continue
		}
		if iterArgs.Kind(tok) != world.ArgSingular {
			return nil, fmt.Errorf("order token %q is not a singular iterated-dimension name", tok)
		}
	}

	if !seen[TokenCheck] {
		full = append(full, TokenCheck)
	}
	return full, nil
}

// Order returns the finalized token order the planner walks.
func (p *Planner) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Plan computes the full schedule. Each valid (check, binding) pair
// appears exactly once; the sequence is identical across calls.
func (p *Planner) Plan() []Item {
	var out []Item
	p.emit(p.profile.Checks(), p.order, nil, &out)
	return out
}

// emit recursively partitions checks along the token order, appending
// scheduled pairs to out. At each concrete dimension the active checks
// split three ways: saturated checks need no remaining dimension and are
// emitted once with the binding accumulated so far; specific checks need
// the current dimension and are expanded once per value; generic checks
// skip the current dimension but still need a later one.
func (p *Planner) emit(checks []registry.Check, tokens []string, b world.Binding, out *[]Item) {
	if len(tokens) == 0 {
		for _, c := range checks {
			*out = append(*out, Item{Check: c, Binding: b})
		}
		return
	}

	tok, rest := tokens[0], tokens[1:]

	if tok == TokenCheck {
		// Cluster by check identity: generate the remaining expansion,
		// then group pairs of the same check contiguously, clusters in
		// first-occurrence order and bindings in their generated order.
		var sub []Item
		p.emit(checks, rest, b, &sub)
		var names []string
		groups := make(map[string][]Item)
		for _, it := range sub {
			if _, ok := groups[it.Check.Name]; !ok {
				names = append(names, it.Check.Name)
			}
			groups[it.Check.Name] = append(groups[it.Check.Name], it)
		}
		for _, name := range names {
			*out = append(*out, groups[name]...)
		}
		return
	}

	var saturated, generic, specific []registry.Check
	for _, c := range checks {
		dims := p.dims[c.Name]
		switch {
		case dims[tok]:
			specific = append(specific, c)
		case p.needsAny(dims, rest):
			generic = append(generic, c)
		default:
			saturated = append(saturated, c)
		}
	}

	emitSaturated := func() {
		for _, c := range saturated {
			*out = append(*out, Item{Check: c, Binding: b})
		}
	}
	emitGeneric := func() {
		if len(generic) > 0 {
			p.emit(generic, rest, b, out)
		}
	}
	emitSpecific := func() {
		if len(specific) == 0 {
			return
		}
		plural, _ := p.profile.IterArgs().Plural(tok)
		values, err := p.world.Collection(plural)
		if err != nil || len(values) == 0 {
			// The dimension has nothing to bind. Schedule the pending
			// checks once with it unresolved so they are reported rather
			// than silently vanishing.
			p.log.Warn("Dimension has no values, scheduling once unresolved", "dimension", tok, "collection", plural)
			p.emit(specific, rest, b.With(tok, nil, -1), out)
			return
		}
		for i, v := range values {
			p.emit(specific, rest, b.With(tok, v, i), out)
		}
	}

	if p.specificFirst {
		emitSpecific()
		emitGeneric()
		emitSaturated()
	} else {
		emitSaturated()
		emitGeneric()
		emitSpecific()
	}
}

// needsAny reports whether any remaining token is a dimension the check
// requires. TokenCheck is not a dimension.
func (p *Planner) needsAny(dims map[string]bool, tokens []string) bool {
	for _, tok := range tokens {
		if tok == TokenCheck {
			continue
		}
		if dims[tok] {
			return true
		}
	}
	return false
}
