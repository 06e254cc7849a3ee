// Package checkrun wires the profile registry, scheduler and execution
// engine into a runnable service: load a manifest, bind check bodies,
// run the deterministic schedule once or on an interval, and render the
// aggregated results.
package checkrun

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/typeforge/checkrun/exitcodes"
	"github.com/typeforge/checkrun/logging"
	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/reporting"
	"github.com/typeforge/checkrun/runner"
	"github.com/typeforge/checkrun/world"
)

// App runs check schedules against a world of opaque values.
type App struct {
	ctx       context.Context
	config    *Config
	version   string
	profile   *registry.Profile
	engine    *runner.Engine
	executor   RunExecutor
	reporter   MetricsReporter
	scheduler  RunScheduler
	fileLogger *logging.FileLogger
	result     *reporting.RunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, resolver registry.Resolver, shutdownCallback func(error)) (*App, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating app with config",
		"manifest", config.ManifestPath,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"concurrency", config.Concurrency)

	manifest, err := registry.LoadManifest(config.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	profile, err := manifest.Profile(config.Log, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile: %w", err)
	}

	engine, err := runner.New(runner.Config{
		Profile:       profile,
		World:         world.World(config.World()),
		Order:         config.Order,
		SpecificFirst: config.SpecificFirst,
		Concurrency:   config.Concurrency,
		Log:           config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	config.Log.Info("app.New: created profile and engine",
		"checks", len(profile.Checks()), "scheduled", len(engine.Plan()))

	app := &App{
		ctx:              ctx,
		config:           config,
		version:          version,
		profile:          profile,
		engine:           engine,
		executor:         NewDefaultRunExecutor(engine, config.Log),
		reporter:         NewDefaultMetricsReporter(),
		scheduler:        NewDefaultRunScheduler(config.RunInterval, config.RunOnce, config.Log),
		shutdownCallback: shutdownCallback,
	}
	if config.LogDir != "" {
		app.fileLogger = logging.NewFileLogger(config.LogDir)
	}
	app.scheduler.RegisterCallback(app.runChecks)
	return app, nil
}

// Start runs the checks once or periodically at the configured interval.
func (a *App) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			a.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	a.ctx = ctx

	if a.config.PlanOnly {
		a.config.Log.Info("Printing execution plan (plan mode)")
		RenderPlanTable(os.Stdout, a.engine.Order(), a.engine.Plan())
		go func() {
			a.shutdownCallback(nil)
		}()
		return nil
	}

	if a.config.RunOnce {
		a.config.Log.Info("Starting checkrun in run-once mode")
	} else {
		a.config.Log.Info("Starting checkrun in continuous mode", "interval", a.config.RunInterval)
	}

	err := a.scheduler.Start(ctx)
	if err != nil {
		// For runtime errors (like configuration issues), return exit code 2
		a.config.Log.Error("Runtime error running checks", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	// If in run-once mode, trigger shutdown and return
	if a.config.RunOnce {
		a.config.Log.Info("Checks completed, exiting (run-once mode)")

		// Check if any checks failed and return appropriate exit code
		if a.result != nil && !a.result.Passed() {
			a.config.Log.Warn("Run-once completed with failures, returning exit code 1")
			return NewCheckFailureError(a.result.String())
		}

		// Only need to call this when we're in run-once mode and all checks passed
		go func() {
			a.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	a.config.Log.Debug("checkrun started successfully")
	return nil
}

// runChecks runs the full schedule and processes the results
func (a *App) runChecks() error {
	result, err := a.executor.RunChecks(a.ctx)
	if err != nil {
		// This is a runtime error (not a check failure)
		a.config.Log.Error("Runtime error running checks", "error", err)
		return NewRuntimeError(err)
	}
	a.result = result

	renderResultsTable(os.Stdout, result)
	fmt.Println(result.String())
	if a.fileLogger != nil {
		if err := a.fileLogger.LogRun(result); err != nil {
			a.config.Log.Error("Failed to write run artifacts", "error", err)
		} else {
			a.config.Log.Info("Run artifacts written", "dir", a.fileLogger.RunDir(result.RunID))
		}
	}
	a.reporter.ReportResults(result)
	a.config.Log.Info("Check run completed", "run_id", result.RunID, "passed", result.Passed())
	return nil
}

// Stop stops the checkrun service.
func (a *App) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping checkrun")

	if a.scheduler.Stopped() {
		a.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	if err := a.scheduler.Stop(); err != nil {
		return err
	}

	a.config.Log.Info("checkrun stopped successfully")
	return nil
}

// Stopped returns true if the checkrun service is stopped.
func (a *App) Stopped() bool {
	return a.scheduler.Stopped()
}

// Result returns the most recent run result, if any.
func (a *App) Result() *reporting.RunResult {
	return a.result
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.scheduler.WaitForShutdown(ctx)
}
