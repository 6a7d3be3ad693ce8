package engine

import (
	"context"
	"time"

	"github.com/roach88/refgraph/internal/model"
)

// mutation tracks one in-flight mutating operation. begin takes the write
// lock; end journals the outcome and releases it, so journal order always
// matches commit order.
type mutation struct {
	e     *Engine
	ctx   context.Context
	op    string
	args  map[string]any
	start time.Time
}

func (e *Engine) begin(ctx context.Context, op string, args map[string]any) *mutation {
	e.mu.Lock()
	return &mutation{e: e, ctx: ctx, op: op, args: args, start: time.Now()}
}

func (m *mutation) end(err error, affected []string) {
	e := m.e
	defer e.mu.Unlock()

	outcome := outcomeOf(err)
	e.metrics.observe(m.op, outcome, time.Since(m.start))

	// The mutation has already committed (or failed); a caller giving up
	// must not leave it out of the journal.
	entry, jerr := e.store.Journal.Append(context.WithoutCancel(m.ctx), model.JournalEntry{
		RequestID: e.requestIDs.Generate(),
		Operation: m.op,
		Args:      m.args,
		Outcome:   outcome,
		Affected:  affected,
	})
	if jerr != nil {
		e.logger.Error("journal append failed",
			"operation", m.op,
			"outcome", outcome,
			"error", jerr,
		)
		e.metrics.journalFailure()
		return
	}

	if err != nil {
		e.logger.Debug("mutation rejected",
			"operation", m.op,
			"outcome", outcome,
			"seq", entry.Seq,
			"request_id", entry.RequestID,
			"error", err,
		)
		return
	}
	e.logger.Debug("mutation committed",
		"operation", m.op,
		"seq", entry.Seq,
		"request_id", entry.RequestID,
		"affected", len(affected),
	)
}

// read takes the read lock and returns the matching release, which records
// the outcome found in *err.
func (e *Engine) read(op string) func(err *error) {
	e.mu.RLock()
	start := time.Now()
	return func(err *error) {
		e.mu.RUnlock()
		e.metrics.observe(op, outcomeOf(*err), time.Since(start))
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return model.OutcomeOK
	}
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return outcomeError
}

// argsOf converts a payload into journal args and merges extra keys (ids)
// on top.
func argsOf(payload any, extra map[string]any) map[string]any {
	args, err := model.ToArgs(payload)
	if err != nil {
		// Payloads are integer/string only; keep the journal entry anyway.
		args = map[string]any{}
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}
