package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/testutil"
)

// Harness executes one scenario against one engine.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory store for isolation, with
// deterministic record ids and request ids.
//
// Execution flow:
//  1. Create fresh engine over an in-memory store
//  2. Execute setup steps (each must succeed)
//  3. Execute flow steps with expect validation
//  4. Evaluate assertions against the final state
//  5. Return result with pass/fail, trace, state and errors
//
// The returned error is reserved for scenarios that cannot be executed
// (failed setup, undecodable args); expectation mismatches are reported in
// Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	opts := []engine.EngineOption{
		engine.WithSelfSubscription(scenario.Options.AllowSelfSubscription),
		engine.WithDuplicateSubscriptions(scenario.Options.AllowDuplicateSubscriptions),
	}
	if scenario.RequestID != "" {
		opts = append(opts, engine.WithRequestIDs(testutil.NewFixedRequestIDs(scenario.RequestID)))
	}

	h := &Harness{
		engine: testutil.NewEngine(opts...),
		logger: slog.New(slog.DiscardHandler),
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	state, err := TakeSnapshot(ctx, scenario.Name, h.engine)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(ctx, h.engine, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup runs all setup steps. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		ev, err := h.execute(ctx, i, "setup", step)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		result.AddTrace(ev)
		if ev.Outcome != model.OutcomeOK {
			return fmt.Errorf("setup[%d]: %s failed with %s", i, step.Op, ev.Outcome)
		}
	}
	return nil
}

// executeFlow runs all flow steps and checks each against its expect clause.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ev, err := h.execute(ctx, i, "flow", step)
		if err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		result.AddTrace(ev)
		if msg := checkExpect(step, ev); msg != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
		}
	}
	return nil
}

// execute runs one step. Engine errors become the event outcome; only
// harness-level problems are returned.
func (h *Harness) execute(ctx context.Context, index int, phase string, step Step) (TraceEvent, error) {
	ev := TraceEvent{Step: index, Phase: phase, Op: step.Op, Args: step.Args}

	fn, ok := operations[step.Op]
	if !ok {
		return ev, fmt.Errorf("unknown op %q", step.Op)
	}

	out, err := fn(ctx, h.engine, step.Args)
	if err != nil {
		var argsErr *ArgsError
		if errors.As(err, &argsErr) {
			argsErr.Op = step.Op
			return ev, argsErr
		}
		ev.Outcome = outcomeOf(err)
		h.logger.Debug("step failed", "phase", phase, "step", index, "op", step.Op, "error", err)
		return ev, nil
	}

	res, err := resultMap(out)
	if err != nil {
		return ev, fmt.Errorf("op %s: convert result: %w", step.Op, err)
	}
	ev.Outcome = model.OutcomeOK
	ev.Result = res
	return ev, nil
}

// checkExpect returns a mismatch description, or "" when the event satisfies
// the step's expectation.
func checkExpect(step Step, ev TraceEvent) string {
	exp := step.Expect
	switch {
	case exp == nil:
		if ev.Outcome != model.OutcomeOK {
			return fmt.Sprintf("expected success, got %s", ev.Outcome)
		}
	case exp.Error != "":
		if ev.Outcome != exp.Error {
			return fmt.Sprintf("expected error %s, got %s", exp.Error, ev.Outcome)
		}
	default:
		if ev.Outcome != model.OutcomeOK {
			return fmt.Sprintf("expected success, got %s", ev.Outcome)
		}
		if msg := match(exp.Result, ev.Result, "result"); msg != "" {
			return msg
		}
	}
	return ""
}

func outcomeOf(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
