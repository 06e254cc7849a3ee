package checkrun

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"
	"github.com/typeforge/checkrun/flags"
)

// Config holds the application configuration
type Config struct {
	ManifestPath  string
	Values        map[string][]string // World collections by plural name
	Order         []string            // Schedule order tokens
	SpecificFirst bool                // Flip the scheduler's generic-first emission
	PlanOnly      bool                // Print the schedule and exit without executing
	Concurrency   int                 // Number of workers for check execution
	RunInterval   time.Duration       // Interval between runs
	RunOnce       bool                // Indicates if the service should exit after one run
	LogDir        string              // Directory to store per-run artifacts
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, manifestPath string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if manifestPath == "" {
		return nil, errors.New("manifest path is required")
	}

	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", manifestPath, err)
	}

	values, err := flags.ParseValues(ctx.StringSlice(flags.Values.Name))
	if err != nil {
		return nil, err
	}

	concurrency := ctx.Int(flags.Concurrency.Name)
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	// Get log directory, default to "logs" if not specified
	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	return &Config{
		ManifestPath:  absManifest,
		Values:        values,
		Order:         ctx.StringSlice(flags.Order.Name),
		SpecificFirst: ctx.Bool(flags.SpecificFirst.Name),
		PlanOnly:      ctx.Bool(flags.Plan.Name),
		Concurrency:   concurrency,
		RunInterval:   runInterval,
		RunOnce:       runOnce,
		LogDir:        logDir,
		Log:           log,
	}, nil
}

// World builds the opaque value collections from the configured values.
func (c *Config) World() map[string][]any {
	w := make(map[string][]any, len(c.Values))
	for name, list := range c.Values {
		values := make([]any, len(list))
		for i, v := range list {
			values[i] = v
		}
		w[name] = values
	}
	return w
}
