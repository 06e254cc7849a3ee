package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Args holds the resolved argument values a check or condition is invoked
// with, keyed by declared argument name.
type Args map[string]any

// BoundArg assigns one value of an iterated dimension. Index is the value's
// position in the plural source sequence; Unresolved bindings (dimension
// scheduled despite an empty or missing plural source) carry index -1 and a
// nil value.
type BoundArg struct {
	Name  string
	Value any
	Index int
}

// Unresolved reports whether the dimension had no value to bind.
func (a BoundArg) Unresolved() bool {
	return a.Index < 0
}

// Binding is the ordered assignment of iterated-dimension values for one
// scheduled check invocation. The order is the scheduler's nesting order.
type Binding []BoundArg

// With returns a new binding extended by one assignment. The receiver is
// not modified; bindings are shared between scheduled pairs.
func (b Binding) With(name string, value any, index int) Binding {
	out := make(Binding, len(b), len(b)+1)
	copy(out, b)
	return append(out, BoundArg{Name: name, Value: value, Index: index})
}

// Sub returns the binding restricted to the given argument names,
// preserving the binding's own order.
func (b Binding) Sub(names []string) Binding {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out Binding
	for _, a := range b {
		if _, ok := want[a.Name]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the bound argument for name.
func (b Binding) Lookup(name string) (BoundArg, bool) {
	for _, a := range b {
		if a.Name == name {
			return a, true
		}
	}
	return BoundArg{}, false
}

// Key returns a deterministic identity for the binding, built from source
// indices rather than values so that opaque, non-comparable values can
// still key a cache entry.
func (b Binding) Key() string {
	if len(b) == 0 {
		return ""
	}
	parts := make([]string, len(b))
	for i, a := range b {
		parts[i] = a.Name + "=" + strconv.Itoa(a.Index)
	}
	return strings.Join(parts, ";")
}

// String renders the binding for logs and reports.
func (b Binding) String() string {
	if len(b) == 0 {
		return "[]"
	}
	parts := make([]string, len(b))
	for i, a := range b {
		if a.Unresolved() {
			parts[i] = a.Name + "=<unresolved>"
		} else {
			parts[i] = fmt.Sprintf("%s=%v", a.Name, a.Value)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
