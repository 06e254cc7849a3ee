// Package runner drives the scheduled order: it resolves each pair's
// conditions, invokes check bodies, validates every produced result and
// frames each invocation between STARTCHECK and ENDCHECK events. The
// engine itself never panics; all failure is expressed through emitted
// results, and no scheduled pair can prevent another from running.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/typeforge/checkrun/metrics"
	"github.com/typeforge/checkrun/registry"
	"github.com/typeforge/checkrun/schedule"
	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

// Event is one entry of the engine's output stream. A check frame is a
// StatusStartCheck event, zero or more validated result events, and a
// matching StatusEndCheck event.
type Event struct {
	Time    time.Time
	Status  types.Status
	Check   string
	Binding world.Binding
	Message any
}

// Err returns the event message as an error if it is one.
func (e Event) Err() error {
	if err, ok := e.Message.(error); ok {
		return err
	}
	return nil
}

// Config holds configuration for creating an engine.
type Config struct {
	Profile *registry.Profile
	World   world.World
	// Order is the dimension token order handed to the scheduler.
	Order []string
	// SpecificFirst flips the scheduler's generic-first emission.
	SpecificFirst bool
	// Concurrency > 1 evaluates scheduled pairs on that many workers.
	// Emitted events are re-sequenced into the deterministic schedule
	// order first, so parallelism is invisible to the consumer.
	Concurrency int
	Log         log.Logger
}

// Engine executes one profile against one world.
type Engine struct {
	profile     *registry.Profile
	world       world.World
	planner     *schedule.Planner
	concurrency int
	log         log.Logger
	tracer      trace.Tracer
}

// New creates an engine. The profile must already be validated; the
// schedule order is finalized here, so a bad order token fails setup
// rather than a run.
func New(cfg Config) (*Engine, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if cfg.World == nil {
		return nil, fmt.Errorf("world is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative")
	}

	planner, err := schedule.New(schedule.Config{
		Profile:       cfg.Profile,
		World:         cfg.World,
		Order:         cfg.Order,
		SpecificFirst: cfg.SpecificFirst,
		Log:           cfg.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}

	return &Engine{
		profile:     cfg.Profile,
		world:       cfg.World,
		planner:     planner,
		concurrency: cfg.Concurrency,
		log:         cfg.Log,
		tracer:      otel.Tracer("check runner"),
	}, nil
}

// Plan returns the deterministic schedule without executing anything.
func (e *Engine) Plan() []schedule.Item {
	return e.planner.Plan()
}

// Order returns the finalized dimension token order.
func (e *Engine) Order() []string {
	return e.planner.Order()
}

// Events runs the schedule and streams the framed protocol events. The
// stream is produced lazily; the channel closes after the last frame or
// when ctx is canceled. A consumer that stops reading early must cancel
// ctx to release the producing goroutine. Stopping mid-run leaves no
// state behind: the condition cache and all bindings are per-run.
func (e *Engine) Events(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)

		r := &run{
			engine: e,
			id:     uuid.New().String(),
			cache:  newConditionCache(),
		}

		ctx, span := e.tracer.Start(ctx, "check run")
		defer span.End()

		items := e.planner.Plan()
		e.log.Info("Executing schedule", "run_id", r.id, "pairs", len(items), "concurrency", e.concurrency)

		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				e.log.Debug("Context canceled, stopping event stream", "run_id", r.id)
				return false
			}
		}

		if e.concurrency > 1 {
			r.runParallel(ctx, items, emit)
			return
		}
		for _, item := range items {
			if !r.executeItem(ctx, item, emit) {
				return
			}
		}
	}()
	return out
}

// run carries the per-run state: the run identifier and the condition
// cache, which is the only shared mutable state of a run.
type run struct {
	engine *Engine
	id     string
	cache  *conditionCache
}

// executeItem produces one complete check frame. It returns false only
// when the consumer has gone away (ctx canceled).
func (r *run) executeItem(ctx context.Context, item schedule.Item, emit func(Event) bool) bool {
	check := item.Check
	ctx, span := r.engine.tracer.Start(ctx, fmt.Sprintf("check %s", check.Name))
	defer span.End()

	if !emit(Event{Time: time.Now(), Status: types.StatusStartCheck, Check: check.Name, Binding: item.Binding}) {
		return false
	}

	alive := true
	emitResult := func(res types.Result) {
		if !alive {
			return
		}
		metrics.RecordCheckResult(r.id, check.Name, res.Status)
		if types.IsAPIViolation(res.Err()) {
			metrics.RecordProtocolViolation(check.Name)
		}
		alive = emit(Event{
			Time:    time.Now(),
			Status:  res.Status,
			Check:   check.Name,
			Binding: item.Binding,
			Message: res.Message,
		})
	}

	deps := r.resolveDependencies(ctx, check, item.Binding)
	switch deps.resolution {
	case resolutionFail:
		emitResult(types.Validate(types.Raw{Status: types.StatusFail, Message: deps.err}))
	case resolutionSkip:
		msg := "unmet conditions: " + strings.Join(deps.unmet, ", ")
		emitResult(types.Validate(types.Raw{Status: types.StatusSkip, Message: msg}))
	default:
		args, err := r.resolveArgs(ctx, check.Args, item.Binding)
		if err != nil {
			emitResult(types.Validate(types.Raw{Status: types.StatusFail, Message: err}))
		} else {
			r.invokeBody(ctx, check, args, emitResult)
		}
	}

	if !alive {
		return false
	}
	return emit(Event{Time: time.Now(), Status: types.StatusEndCheck, Check: check.Name, Binding: item.Binding})
}

// invokeBody runs the check body, validating each reported result.
// Panics are recovered into a single FAIL result; results reported before
// the panic are kept.
func (r *run) invokeBody(ctx context.Context, check registry.Check, args world.Args, emitResult func(types.Result)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.engine.log.Error("Check body panicked", "check", check.Name, "panic", rec)
			err := fmt.Errorf("check %q panicked: %v", check.Name, rec)
			emitResult(types.Validate(types.Raw{Status: types.StatusFail, Message: err}))
		}
	}()

	if check.Run == nil {
		emitResult(types.Validate(types.Raw{Status: types.StatusFail, Message: errors.New("check has no body")}))
		return
	}

	check.Run(ctx, args, func(status, message any) {
		emitResult(types.Validate(types.Raw{Status: status, Message: message}))
	})
}

// resolveArgs resolves declared argument names against the binding, the
// world and the condition cache: singular dimensions come from the
// binding, plural names resolve to the whole collection, and a condition
// name resolves to that condition's (cached) value.
func (r *run) resolveArgs(ctx context.Context, names []string, b world.Binding) (world.Args, error) {
	iterArgs := r.engine.profile.IterArgs()
	args := make(world.Args, len(names))
	for _, name := range names {
		switch iterArgs.Kind(name) {
		case world.ArgSingular:
			bound, ok := b.Lookup(name)
			if !ok {
				return nil, &types.MissingArgumentError{Name: name}
			}
			if bound.Unresolved() {
				plural, _ := iterArgs.Plural(name)
				return nil, &types.MissingCollectionError{Collection: plural}
			}
			args[name] = bound.Value
		case world.ArgPlural:
			values, err := r.engine.world.Collection(name)
			if err != nil {
				return nil, err
			}
			args[name] = values
		default:
			cond, ok := r.engine.profile.Condition(name)
			if !ok {
				return nil, &types.MissingArgumentError{Name: name}
			}
			out := r.evalCondition(ctx, cond, b)
			if out.err != nil {
				return nil, out.err
			}
			args[name] = out.value
		}
	}
	return args, nil
}
