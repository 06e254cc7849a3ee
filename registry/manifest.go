package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

// Manifest is the declarative half of a profile: names and argument lists
// for iterargs, conditions and checks. Predicate and body callables are
// attached by name through a Resolver when the profile is built.
type Manifest struct {
	IterArgs   yaml.Node           `yaml:"iterargs"` // ordered singular -> plural mapping
	Conditions []ConditionManifest `yaml:"conditions"`
	Checks     []CheckManifest     `yaml:"checks"`
}

// ConditionManifest declares one condition.
type ConditionManifest struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// CheckManifest declares one check.
type CheckManifest struct {
	Name       string   `yaml:"name"`
	Args       []string `yaml:"args"`
	Conditions []string `yaml:"conditions"`
}

// Resolver supplies the callables for manifest entries, keyed by name.
type Resolver struct {
	Bodies     map[string]CheckFn
	Predicates map[string]ConditionFn
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	log.Debug("Reading check manifest file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// iterArgPairs decodes the iterargs mapping node preserving declaration
// order, which a plain map[string]string would lose.
func (m *Manifest) iterArgPairs() ([][2]string, error) {
	if m.IterArgs.Kind == 0 {
		return nil, nil
	}
	if m.IterArgs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("iterargs must be a mapping of singular to plural names")
	}
	var pairs [][2]string
	for i := 0; i+1 < len(m.IterArgs.Content); i += 2 {
		pairs = append(pairs, [2]string{m.IterArgs.Content[i].Value, m.IterArgs.Content[i+1].Value})
	}
	return pairs, nil
}

// Profile builds a validated profile from the manifest, attaching
// callables from the resolver. A check without a registered body is bound
// to a placeholder that fails with an explanatory error when invoked, so
// schedule planning stays possible while accidental execution is loud.
// A condition without a registered predicate is a configuration error.
func (m *Manifest) Profile(logger log.Logger, res Resolver) (*Profile, error) {
	pairs, err := m.iterArgPairs()
	if err != nil {
		return nil, err
	}
	iterArgs, err := world.NewIterArgs(pairs...)
	if err != nil {
		return nil, fmt.Errorf("invalid iterargs: %w", err)
	}

	profile, err := NewProfile(Config{Log: logger, IterArgs: iterArgs})
	if err != nil {
		return nil, err
	}

	for _, cm := range m.Conditions {
		pred, ok := res.Predicates[cm.Name]
		if !ok {
			return nil, fmt.Errorf("no predicate registered for condition %q", cm.Name)
		}
		if err := profile.AddCondition(Condition{Name: cm.Name, Args: cm.Args, Eval: pred}); err != nil {
			return nil, err
		}
	}

	for _, cm := range m.Checks {
		body, ok := res.Bodies[cm.Name]
		if !ok {
			body = unboundBody(cm.Name)
		}
		if err := profile.AddCheck(Check{Name: cm.Name, Args: cm.Args, Conditions: cm.Conditions, Run: body}); err != nil {
			return nil, err
		}
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func unboundBody(name string) CheckFn {
	return func(ctx context.Context, args world.Args, report ReportFn) {
		report(types.StatusFail, fmt.Errorf("no body registered for check %q", name))
	}
}
