// Package world supplies argument values to scheduled checks. A World maps
// plural collection names to the ordered values backing an iterated
// dimension; IterArgs records which argument names are iterated dimensions
// and how their singular and plural forms relate.
package world

import (
	"fmt"

	"github.com/typeforge/checkrun/types"
)

// World maps a plural collection name (e.g. "fonts") to the ordered
// sequence of opaque values supplying that dimension. It is owned by the
// caller, read-only from the engine's perspective, and lives for one run.
type World map[string][]any

// Collection returns the full sequence for a plural collection name.
func (w World) Collection(plural string) ([]any, error) {
	values, ok := w[plural]
	if !ok {
		return nil, &types.MissingCollectionError{Collection: plural}
	}
	return values, nil
}

// ArgKind classifies an argument name against an IterArgs registry.
type ArgKind int

const (
	// ArgUnknown is an argument name that is not an iterated dimension.
	ArgUnknown ArgKind = iota
	// ArgSingular runs its user once per value of the dimension.
	ArgSingular
	// ArgPlural runs its user once, with the whole sequence as one value.
	ArgPlural
)

// IterArgs is the fixed singular -> plural name registry supplied by the
// profile. Declaration order is preserved; it is the stable expansion
// order for the scheduler's *varargs token.
type IterArgs struct {
	order    []string          // singular names, in declaration order
	plural   map[string]string // singular -> plural
	singular map[string]string // plural -> singular
}

// NewIterArgs builds a registry from (singular, plural) pairs. Names must
// be unique across both forms.
func NewIterArgs(pairs ...[2]string) (*IterArgs, error) {
	ia := &IterArgs{
		plural:   make(map[string]string, len(pairs)),
		singular: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		sing, plur := p[0], p[1]
		if sing == "" || plur == "" {
			return nil, fmt.Errorf("iterated argument names must not be empty (got %q -> %q)", sing, plur)
		}
		if sing == plur {
			return nil, fmt.Errorf("iterated argument %q has identical singular and plural forms", sing)
		}
		if ia.Kind(sing) != ArgUnknown {
			return nil, fmt.Errorf("iterated argument name %q already registered", sing)
		}
		if ia.Kind(plur) != ArgUnknown {
			return nil, fmt.Errorf("iterated argument name %q already registered", plur)
		}
		ia.order = append(ia.order, sing)
		ia.plural[sing] = plur
		ia.singular[plur] = sing
	}
	return ia, nil
}

// Kind classifies name as a singular dimension, a plural collection or an
// unknown argument.
func (ia *IterArgs) Kind(name string) ArgKind {
	if _, ok := ia.plural[name]; ok {
		return ArgSingular
	}
	if _, ok := ia.singular[name]; ok {
		return ArgPlural
	}
	return ArgUnknown
}

// Plural returns the plural collection name backing a singular dimension.
func (ia *IterArgs) Plural(singular string) (string, bool) {
	p, ok := ia.plural[singular]
	return p, ok
}

// Singulars returns all singular dimension names in declaration order.
func (ia *IterArgs) Singulars() []string {
	out := make([]string, len(ia.order))
	copy(out, ia.order)
	return out
}

// Resolve answers a plural request against a world. Singular names are
// never resolved here; they only obtain values through a Binding built by
// the scheduler.
func (ia *IterArgs) Resolve(name string, w World) ([]any, error) {
	switch ia.Kind(name) {
	case ArgPlural:
		return w.Collection(name)
	case ArgSingular:
		return nil, fmt.Errorf("singular dimension %q is only resolved through a binding", name)
	default:
		return nil, &types.MissingArgumentError{Name: name}
	}
}
