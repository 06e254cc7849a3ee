package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "CHECKRUN"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Manifest = &cli.StringFlag{
		Name:     "manifest",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("MANIFEST"),
		Usage:    "Path to the profile manifest file (eg. 'checks.yaml')",
	}
	Values = &cli.StringSliceFlag{
		Name:    "values",
		EnvVars: prefixEnvVars("VALUES"),
		Usage:   "World collection as 'name=v1,v2,...'; repeat per collection",
	}
	Order = &cli.StringSliceFlag{
		Name:    "order",
		EnvVars: prefixEnvVars("ORDER"),
		Usage:   "Schedule order tokens: singular dimension names, '*check' or '*varargs'",
	}
	SpecificFirst = &cli.BoolFlag{
		Name:    "specific-first",
		Value:   false,
		EnvVars: prefixEnvVars("SPECIFIC_FIRST"),
		Usage:   "Emit value-specific pairs before generic ones at each level",
	}
	Plan = &cli.BoolFlag{
		Name:    "plan",
		Value:   false,
		EnvVars: prefixEnvVars("PLAN"),
		Usage:   "Print the deterministic schedule and exit without executing",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   1,
		EnvVars: prefixEnvVars("CONCURRENCY"),
		Usage:   "Number of workers; >1 evaluates scheduled pairs in parallel",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store per-run artifacts (summary and JSON results)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: trace, debug, info, warn, error, crit",
	}
)

var requiredFlags = []cli.Flag{
	Manifest,
}

var optionalFlags = []cli.Flag{
	Values,
	Order,
	SpecificFirst,
	Plan,
	Concurrency,
	RunInterval,
	LogDir,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

// ParseValues turns repeated 'name=v1,v2' entries into collection name to
// ordered values. Later entries for the same name replace earlier ones.
func ParseValues(entries []string) (map[string][]string, error) {
	values := make(map[string][]string, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid values entry %q, expected 'name=v1,v2'", entry)
		}
		if list == "" {
			values[name] = nil
			continue
		}
		values[name] = strings.Split(list, ",")
	}
	return values, nil
}
