package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

func newProfile(t *testing.T) *registry.Profile {
	t.Helper()
	ia, err := world.NewIterArgs([2]string{"font", "fonts"})
	require.NoError(t, err)
	p, err := registry.NewProfile(registry.Config{Log: log.New(), IterArgs: ia})
	require.NoError(t, err)
	return p
}

func newEngine(t *testing.T, p *registry.Profile, w world.World) *Engine {
	t.Helper()
	require.NoError(t, p.Validate())
	e, err := New(Config{Profile: p, World: w, Log: log.New()})
	require.NoError(t, err)
	return e
}

func collect(t *testing.T, e *Engine) []Event {
	t.Helper()
	var events []Event
	for ev := range e.Events(context.Background()) {
		events = append(events, ev)
	}
	return events
}

// frame renders an event stream compactly for exact-sequence assertions.
func frame(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = fmt.Sprintf("%s %s%s", ev.Status, ev.Check, ev.Binding)
	}
	return out
}

func TestEventsFraming(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCheck(registry.Check{
		Name: "com.example/nonempty",
		Args: []string{"font"},
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			report(types.StatusPass, fmt.Sprintf("font %v looks fine", args["font"]))
		},
	}))
	e := newEngine(t, p, world.World{"fonts": {"f1", "f2"}})

	events := collect(t, e)

	assert.Equal(t, []string{
		"STARTCHECK com.example/nonempty[font=f1]",
		"PASS com.example/nonempty[font=f1]",
		"ENDCHECK com.example/nonempty[font=f1]",
		"STARTCHECK com.example/nonempty[font=f2]",
		"PASS com.example/nonempty[font=f2]",
		"ENDCHECK com.example/nonempty[font=f2]",
	}, frame(events))
	assert.Equal(t, "font f1 looks fine", events[1].Message)
}

func TestSkipOnUnmetConditions(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCondition(registry.Condition{
		Name: "is_variable",
		Eval: func(ctx context.Context, args world.Args) (bool, error) { return false, nil },
	}))
	require.NoError(t, p.AddCondition(registry.Condition{
		Name: "has_axes",
		Eval: func(ctx context.Context, args world.Args) (bool, error) { return false, nil },
	}))
	var bodyRuns atomic.Int32
	require.NoError(t, p.AddCheck(registry.Check{
		Name:       "com.example/axes",
		Conditions: []string{"is_variable", "has_axes"},
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			bodyRuns.Add(1)
		},
	}))
	e := newEngine(t, p, world.World{"fonts": {"f1"}})

	events := collect(t, e)

	require.Len(t, events, 3)
	assert.Equal(t, types.StatusSkip, events[1].Status)
	assert.Equal(t, "unmet conditions: is_variable, has_axes", events[1].Message)
	assert.Zero(t, bodyRuns.Load())
}

func TestFailOnConditionError(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCondition(registry.Condition{
		Name: "broken",
		Eval: func(ctx context.Context, args world.Args) (bool, error) {
			return false, errors.New("backend unreachable")
		},
	}))
	var bodyRuns atomic.Int32
	require.NoError(t, p.AddCheck(registry.Check{
		Name:       "com.example/guarded",
		Conditions: []string{"broken"},
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			bodyRuns.Add(1)
		},
	}))
	e := newEngine(t, p, world.World{"fonts": {"f1"}})

	events := collect(t, e)

	require.Len(t, events, 3)
	assert.Equal(t, types.StatusFail, events[1].Status)
	var fce *types.FailedConditionError
	require.ErrorAs(t, events[1].Err(), &fce)
	require.Len(t, fce.Failures, 1)
	assert.Equal(t, "broken", fce.Failures[0].Condition)
	assert.Zero(t, bodyRuns.Load())
}

func TestPanicKeepsEarlierResults(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCheck(registry.Check{
		Name: "com.example/flaky",
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			report(types.StatusPass, "first half done")
			panic("unexpected table layout")
		},
	}))
	e := newEngine(t, p, world.World{"fonts": {"f1"}})

	events := collect(t, e)

	require.Len(t, events, 4)
	assert.Equal(t, types.StatusPass, events[1].Status)
	assert.Equal(t, types.StatusFail, events[2].Status)
	assert.ErrorContains(t, events[2].Err(), "panicked")
	assert.Equal(t, types.StatusEndCheck, events[3].Status)
}

func TestResultValidation(t *testing.T) {
	tests := []struct {
		name       string
		status     any
		message    any
		wantStatus types.Status
		violation  bool
	}{
		{
			name:       "true normalizes to PASS",
			status:     true,
			message:    "ok",
			wantStatus: types.StatusPass,
		},
		{
			name:       "false normalizes to FAIL",
			status:     false,
			message:    errors.New("bad glyph"),
			wantStatus: types.StatusFail,
		},
		{
			name:       "PASS with error message is a violation",
			status:     types.StatusPass,
			message:    errors.New("but something broke"),
			wantStatus: types.StatusFail,
			violation:  true,
		},
		{
			name:       "untyped status string is a violation",
			status:     "PASS",
			message:    "ok",
			wantStatus: types.StatusFail,
			violation:  true,
		},
		{
			name:       "caller-defined status passes through",
			status:     types.Status("REVIEW"),
			message:    "needs a human",
			wantStatus: types.Status("REVIEW"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProfile(t)
			require.NoError(t, p.AddCheck(registry.Check{
				Name: "com.example/reporter",
				Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
					report(tt.status, tt.message)
				},
			}))
			e := newEngine(t, p, world.World{"fonts": {"f1"}})

			events := collect(t, e)

			require.Len(t, events, 3)
			assert.Equal(t, tt.wantStatus, events[1].Status)
			assert.Equal(t, tt.violation, types.IsAPIViolation(events[1].Err()))
		})
	}
}

func TestMissingCollectionFailsCheck(t *testing.T) {
	p := newProfile(t)
	var bodyRuns atomic.Int32
	require.NoError(t, p.AddCheck(registry.Check{
		Name: "com.example/perfont",
		Args: []string{"font"},
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			bodyRuns.Add(1)
		},
	}))
	e := newEngine(t, p, world.World{})

	events := collect(t, e)

	// Scheduled once with an unresolved binding; argument resolution
	// turns that into a configuration failure.
	require.Len(t, events, 3)
	assert.Equal(t, types.StatusFail, events[1].Status)
	var mce *types.MissingCollectionError
	require.ErrorAs(t, events[1].Err(), &mce)
	assert.Equal(t, "fonts", mce.Collection)
	assert.Zero(t, bodyRuns.Load())
}

func TestNilBodyFails(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCheck(registry.Check{Name: "com.example/hollow"}))
	e := newEngine(t, p, world.World{"fonts": {"f1"}})

	events := collect(t, e)

	require.Len(t, events, 3)
	assert.Equal(t, types.StatusFail, events[1].Status)
	assert.ErrorContains(t, events[1].Err(), "no body")
}

func TestConditionValueAsArgument(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCondition(registry.Condition{
		Name: "is_text",
		Eval: func(ctx context.Context, args world.Args) (bool, error) { return true, nil },
	}))
	var got any
	require.NoError(t, p.AddCheck(registry.Check{
		Name: "com.example/uses-condition",
		Args: []string{"is_text"},
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			got = args["is_text"]
			report(types.StatusPass, "done")
		},
	}))
	e := newEngine(t, p, world.World{"fonts": {"f1"}})

	events := collect(t, e)

	require.Len(t, events, 3)
	assert.Equal(t, types.StatusPass, events[1].Status)
	assert.Equal(t, true, got)
}

func TestCanceledContextClosesStream(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.AddCheck(registry.Check{
		Name: "com.example/everything",
		Args: []string{"font"},
		Run: func(ctx context.Context, args world.Args, report registry.ReportFn) {
			report(types.StatusPass, "ok")
		},
	}))
	e := newEngine(t, p, world.World{"fonts": {"f1", "f2", "f3"}})

	ctx, cancel := context.WithCancel(context.Background())
	ch := e.Events(ctx)
	// Read one frame, then walk away.
	<-ch
	cancel()
	for range ch {
	}
}

func TestNewValidation(t *testing.T) {
	p := newProfile(t)
	require.NoError(t, p.Validate())

	_, err := New(Config{World: world.World{}, Log: log.New()})
	assert.ErrorContains(t, err, "profile is required")

	_, err = New(Config{Profile: p, Log: log.New()})
	assert.ErrorContains(t, err, "world is required")

	_, err = New(Config{Profile: p, World: world.World{}, Concurrency: -1, Log: log.New()})
	assert.ErrorContains(t, err, "concurrency")

	_, err = New(Config{Profile: p, World: world.World{}, Order: []string{"nope"}, Log: log.New()})
	assert.ErrorContains(t, err, "failed to create planner")
}
