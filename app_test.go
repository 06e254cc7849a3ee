package checkrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/checkrun/profiles/smoke"
	"github.com/typeforge/checkrun/reporting"
	"github.com/typeforge/checkrun/types"
)

// trackedMockExecutor counts executions and returns a canned result.
type trackedMockExecutor struct {
	execCount atomic.Int32
	execCh    chan struct{}
	result    *reporting.RunResult
	err       error
}

func newTrackedMockExecutor(result *reporting.RunResult, err error) *trackedMockExecutor {
	return &trackedMockExecutor{
		execCh: make(chan struct{}, 100), // Buffer to prevent blocking
		result: result,
		err:    err,
	}
}

func (m *trackedMockExecutor) RunChecks(ctx context.Context) (*reporting.RunResult, error) {
	m.execCount.Add(1)
	select {
	case m.execCh <- struct{}{}:
	default:
	}
	return m.result, m.err
}

func passingResult() *reporting.RunResult {
	return &reporting.RunResult{
		RunID: "test-run",
		Records: []reporting.CheckRecord{
			{Check: "a", Status: types.StatusPass},
		},
		Stats: reporting.Stats{Total: 1, Passed: 1, PassRate: 1},
	}
}

func failingResult() *reporting.RunResult {
	return &reporting.RunResult{
		RunID: "test-run",
		Records: []reporting.CheckRecord{
			{Check: "a", Status: types.StatusFail},
		},
		Stats: reporting.Stats{Total: 1, Failed: 1},
	}
}

// newTestApp wires an app around a mock executor without a manifest.
func newTestApp(t *testing.T, cfg *Config, exec RunExecutor) *App {
	t.Helper()
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	app := &App{
		ctx:              context.Background(),
		config:           cfg,
		executor:         exec,
		reporter:         NewDefaultMetricsReporter(),
		scheduler:        NewDefaultRunScheduler(cfg.RunInterval, cfg.RunOnce, cfg.Log),
		shutdownCallback: func(error) {},
	}
	app.scheduler.RegisterCallback(app.runChecks)
	return app
}

func TestAppRunOncePass(t *testing.T) {
	exec := newTrackedMockExecutor(passingResult(), nil)
	app := newTestApp(t, &Config{RunOnce: true}, exec)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := app.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), exec.execCount.Load())
	require.NotNil(t, app.Result())
	assert.True(t, app.Result().Passed())
}

func TestAppRunOnceFailure(t *testing.T) {
	exec := newTrackedMockExecutor(failingResult(), nil)
	app := newTestApp(t, &Config{RunOnce: true}, exec)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := app.Start(ctx)
	require.Error(t, err)
	assert.True(t, IsCheckFailureError(err))
}

func TestAppRunOnceRuntimeError(t *testing.T) {
	exec := newTrackedMockExecutor(nil, errors.New("engine exploded"))
	app := newTestApp(t, &Config{RunOnce: true}, exec)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := app.Start(ctx)
	require.Error(t, err)
	// Runtime errors surface as a cli exit with the runtime exit code.
	var exitErr interface{ ExitCode() int }
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}

func TestAppPeriodic(t *testing.T) {
	exec := newTrackedMockExecutor(passingResult(), nil)
	app := newTestApp(t, &Config{RunInterval: 10 * time.Millisecond}, exec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx))

	for i := 0; i < 3; i++ {
		select {
		case <-exec.execCh:
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for run %d", i+1)
		}
	}

	require.NoError(t, app.Stop(ctx))
	assert.True(t, app.Stopped())
	require.NoError(t, app.WaitForShutdown(ctx))
}

func writeSmokeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smoke.ManifestYAML), 0644))
	return path
}

func TestNewAppFromManifest(t *testing.T) {
	cfg := &Config{
		ManifestPath: writeSmokeManifest(t),
		Values:       map[string][]string{"items": {"a", "b"}},
		Concurrency:  1,
		RunOnce:      true,
		Log:          log.New(),
	}

	app, err := New(context.Background(), cfg, "test", smoke.Resolver(), func(error) {})
	require.NoError(t, err)
	assert.Len(t, app.profile.Checks(), 4)
	assert.NotEmpty(t, app.engine.Plan())
}

func TestNewAppValidation(t *testing.T) {
	_, err := New(context.Background(), nil, "test", smoke.Resolver(), func(error) {})
	require.ErrorContains(t, err, "config is required")

	cfg := &Config{ManifestPath: "/does/not/exist.yaml", Log: log.New()}
	_, err = New(context.Background(), cfg, "test", smoke.Resolver(), func(error) {})
	require.ErrorContains(t, err, "failed to load manifest")
}

func TestAppPlanOnly(t *testing.T) {
	cfg := &Config{
		ManifestPath: writeSmokeManifest(t),
		Values:       map[string][]string{"items": {"a"}},
		Concurrency:  1,
		PlanOnly:     true,
		RunOnce:      true,
		Log:          log.New(),
	}

	done := make(chan struct{})
	app, err := New(context.Background(), cfg, "test", smoke.Resolver(), func(error) {
		close(done)
	})
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for plan-mode shutdown")
	}
}

func TestTypedErrors(t *testing.T) {
	runtimeErr := NewRuntimeError(errors.New("boom"))
	assert.True(t, IsRuntimeError(runtimeErr))
	assert.False(t, IsCheckFailureError(runtimeErr))
	assert.ErrorContains(t, runtimeErr, "runtime error")

	checkErr := NewCheckFailureError("3 checks failed")
	assert.True(t, IsCheckFailureError(checkErr))
	assert.False(t, IsRuntimeError(checkErr))
	assert.ErrorContains(t, checkErr, "check failure")

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsCheckFailureError(nil))
}
