package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	checkrun "github.com/typeforge/checkrun"
	"github.com/typeforge/checkrun/exitcodes"
	"github.com/typeforge/checkrun/flags"
	"github.com/typeforge/checkrun/profiles/smoke"
	"github.com/typeforge/checkrun/service"
)

const stopTimeout = 30 * time.Second

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "checkrun"
	app.Usage = "Deterministic check orchestration service"
	app.Description = "checkrun schedules and executes declarative checks against a world of values"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if checkrun.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if checkrun.IsCheckFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.CheckFailure))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.CheckFailure))
			}
		}
	}

	// Start telemetry
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer otelShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start healthz and metrics servers
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	// Start CLI
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	logger, err := newLogger(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return checkrun.NewRuntimeError(err)
	}
	log.SetDefault(logger)

	cfg, err := checkrun.NewConfig(cliCtx, logger, cliCtx.String(flags.Manifest.Name))
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return checkrun.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "manifest", cfg.ManifestPath, "planOnly", cfg.PlanOnly)

	// shutdown resolves once the app asks to exit (run-once or plan mode)
	shutdown := make(chan error, 1)
	app, err := checkrun.New(cliCtx.Context, cfg, Version, smoke.Resolver(), func(cause error) {
		shutdown <- cause
	})
	if err != nil {
		return checkrun.NewRuntimeError(fmt.Errorf("failed to create app: %w", err))
	}

	if err := app.Start(cliCtx.Context); err != nil {
		return err
	}

	select {
	case cause := <-shutdown:
		if cause != nil {
			return cause
		}
	case <-cliCtx.Context.Done():
		logger.Info("Interrupt received, shutting down")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return checkrun.NewRuntimeError(fmt.Errorf("failed to stop app: %w", err))
	}
	return app.WaitForShutdown(stopCtx)
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stdout, lvl, true)), nil
}
