package smoke

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/runner"
	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

func buildEngine(t *testing.T, w world.World) *runner.Engine {
	t.Helper()
	manifest, err := registry.ParseManifest([]byte(ManifestYAML))
	require.NoError(t, err)
	profile, err := manifest.Profile(log.New(), Resolver())
	require.NoError(t, err)
	e, err := runner.New(runner.Config{Profile: profile, World: w, Log: log.New()})
	require.NoError(t, err)
	return e
}

// conclude reduces the stream into a frame conclusion per check frame.
func conclude(t *testing.T, e *runner.Engine) map[string][]types.Status {
	t.Helper()
	conclusions := make(map[string][]types.Status)
	var current types.Status
	for ev := range e.Events(context.Background()) {
		switch ev.Status {
		case types.StatusStartCheck:
			current = types.StatusPass
		case types.StatusEndCheck:
			conclusions[ev.Check] = append(conclusions[ev.Check], current)
		case types.StatusFail:
			current = types.StatusFail
		case types.StatusWarn:
			if current != types.StatusFail {
				current = types.StatusWarn
			}
		case types.StatusSkip:
			if current == types.StatusPass {
				current = types.StatusSkip
			}
		}
	}
	return conclusions
}

func TestSmokeProfileEndToEnd(t *testing.T) {
	e := buildEngine(t, world.World{"items": {"alpha", "Beta", ""}})

	conclusions := conclude(t, e)

	assert.Equal(t, []types.Status{types.StatusPass, types.StatusPass, types.StatusFail},
		conclusions["smoke/nonempty"])
	assert.Equal(t, []types.Status{types.StatusPass, types.StatusWarn, types.StatusPass},
		conclusions["smoke/lowercase"])
	assert.Equal(t, []types.Status{types.StatusPass}, conclusions["smoke/distinct"])
	assert.Equal(t, []types.Status{types.StatusPass}, conclusions["smoke/annotate"])
}

func TestSmokeProfileSkipsNonText(t *testing.T) {
	e := buildEngine(t, world.World{"items": {"alpha", 42}})

	conclusions := conclude(t, e)

	assert.Equal(t, []types.Status{types.StatusPass, types.StatusSkip},
		conclusions["smoke/nonempty"])
}

func TestSmokeProfileDuplicateItems(t *testing.T) {
	e := buildEngine(t, world.World{"items": {"a", "b", "a", "a"}})

	conclusions := conclude(t, e)

	assert.Equal(t, []types.Status{types.StatusFail}, conclusions["smoke/distinct"])
}

func TestSmokeProfileEmptyWorld(t *testing.T) {
	e := buildEngine(t, world.World{"items": {}})

	conclusions := conclude(t, e)

	// Per-item checks run once unresolved and fail on the missing value;
	// has_items gates the whole-collection check into a skip.
	assert.Equal(t, []types.Status{types.StatusFail}, conclusions["smoke/nonempty"])
	assert.Equal(t, []types.Status{types.StatusSkip}, conclusions["smoke/distinct"])
}
