// Package smoke ships a small built-in profile for exercising the engine
// end to end on plain string values. It backs the CLI's default manifest
// and doubles as a living example of how bodies and predicates are
// registered against manifest names.
package smoke

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

// Resolver returns the callables for the smoke manifest names.
func Resolver() registry.Resolver {
	return registry.Resolver{
		Bodies: map[string]registry.CheckFn{
			"smoke/nonempty":  nonempty,
			"smoke/lowercase": lowercase,
			"smoke/distinct":  distinct,
			"smoke/annotate":  annotate,
		},
		Predicates: map[string]registry.ConditionFn{
			"has_items": hasItems,
			"is_text":   isText,
		},
	}
}

// hasItems holds when the items collection is non-empty.
func hasItems(ctx context.Context, args world.Args) (bool, error) {
	items, ok := args["items"].([]any)
	if !ok {
		return false, fmt.Errorf("items collection is not a list")
	}
	return len(items) > 0, nil
}

// isText holds when the bound item is a string.
func isText(ctx context.Context, args world.Args) (bool, error) {
	_, ok := args["item"].(string)
	return ok, nil
}

// nonempty fails per item that renders to an empty string.
func nonempty(ctx context.Context, args world.Args, report registry.ReportFn) {
	item := args["item"]
	if strings.TrimSpace(fmt.Sprint(item)) == "" {
		report(types.StatusFail, fmt.Errorf("item %q is empty", item))
		return
	}
	report(types.StatusPass, fmt.Sprintf("item %q has content", item))
}

// lowercase warns on items containing uppercase runes.
func lowercase(ctx context.Context, args world.Args, report registry.ReportFn) {
	item, _ := args["item"].(string)
	for _, r := range item {
		if unicode.IsUpper(r) {
			report(types.StatusWarn, fmt.Sprintf("item %q contains uppercase", item))
			return
		}
	}
	report(types.StatusPass, fmt.Sprintf("item %q is lowercase", item))
}

// distinct fails when the collection contains duplicate values.
func distinct(ctx context.Context, args world.Args, report registry.ReportFn) {
	items, _ := args["items"].([]any)
	seen := make(map[string]bool, len(items))
	dupes := 0
	for _, item := range items {
		key := fmt.Sprint(item)
		if seen[key] {
			report(types.StatusFail, fmt.Errorf("duplicate item %q", key))
			dupes++
			continue
		}
		seen[key] = true
	}
	if dupes == 0 {
		report(types.StatusPass, fmt.Sprintf("all %d items are distinct", len(items)))
	}
}

// annotate emits informational results only; it never concludes a frame.
func annotate(ctx context.Context, args world.Args, report registry.ReportFn) {
	items, _ := args["items"].([]any)
	report(types.StatusInfo, fmt.Sprintf("world carries %d items", len(items)))
}

// ManifestYAML is the manifest matching Resolver, usable as a starting
// point for a manifest file.
const ManifestYAML = `iterargs:
  item: items

conditions:
  - name: has_items
    args: [items]
  - name: is_text
    args: [item]

checks:
  - name: smoke/nonempty
    args: [item]
    conditions: [is_text]
  - name: smoke/lowercase
    args: [item]
    conditions: [is_text]
  - name: smoke/distinct
    args: [items]
    conditions: [has_items]
  - name: smoke/annotate
    args: [items]
`
