package checkrun

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/typeforge/checkrun/reporting"
	"github.com/typeforge/checkrun/runner"
)

// RunExecutor is responsible for executing one complete check run.
type RunExecutor interface {
	RunChecks(ctx context.Context) (*reporting.RunResult, error)
}

// DefaultRunExecutor implements the RunExecutor interface.
type DefaultRunExecutor struct {
	engine *runner.Engine
	logger log.Logger
}

// NewDefaultRunExecutor creates a new DefaultRunExecutor.
func NewDefaultRunExecutor(engine *runner.Engine, logger log.Logger) *DefaultRunExecutor {
	return &DefaultRunExecutor{
		engine: engine,
		logger: logger,
	}
}

// RunChecks executes the full schedule and folds the event stream into a
// run result.
func (e *DefaultRunExecutor) RunChecks(ctx context.Context) (*reporting.RunResult, error) {
	runID := uuid.New().String()
	e.logger.Info("Running all checks...", "run_id", runID)
	result := reporting.Collect(runID, e.engine.Events(ctx))
	if err := ctx.Err(); err != nil {
		e.logger.Error("Check run interrupted", "run_id", runID, "error", err)
		return nil, err
	}
	e.logger.Info("Check run completed", "run_id", runID, "checks", result.Stats.Total, "failed", result.Stats.Failed)
	return result, nil
}
