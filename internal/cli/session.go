package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/schema"
	"github.com/roach88/refgraph/internal/store"
)

// session is one command invocation's store, engine and output.
type session struct {
	ctx       context.Context
	store     *store.Store
	engine    *engine.Engine
	validator *schema.Validator
	registry  *prometheus.Registry
	logger    *slog.Logger
	out       *OutputFormatter
}

// openSession opens the configured database and builds an engine over it.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := formatter(cmd, opts)

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	var ids store.IDGenerator = store.UUIDv7Generator{}
	if opts.IDs == IDsSequence {
		ids = store.NewSequenceGenerator()
	}

	out.VerboseLog("Opening database: %s", opts.Database)
	s, err := store.Open(opts.Database, store.WithIDGenerator(ids))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	reg := prometheus.NewRegistry()
	validator := schema.MustNew()
	e := engine.New(s,
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithValidator(validator),
		engine.WithSelfSubscription(opts.AllowSelfSubscription),
		engine.WithDuplicateSubscriptions(opts.AllowDuplicateSubscriptions),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{
		ctx:       ctx,
		store:     s,
		engine:    e,
		validator: validator,
		registry:  reg,
		logger:    logger,
		out:       out,
	}, nil
}

// Close logs the counters recorded during the invocation and closes the
// store.
func (s *session) Close() error {
	s.logCounters()
	return s.store.Close()
}

func (s *session) logCounters() {
	if !s.logger.Enabled(s.ctx, slog.LevelDebug) {
		return
	}
	families, err := s.registry.Gather()
	if err != nil {
		s.logger.Debug("gather metrics failed", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			s.logger.Debug("counter",
				"name", mf.GetName(),
				"labels", strings.Join(labels, ","),
				"value", m.GetCounter().GetValue(),
			)
		}
	}
}

// runWithSession opens a session, runs fn, writes its result and closes the
// session. Errors returned by fn are reported through the formatter.
func runWithSession(cmd *cobra.Command, opts *RootOptions, fn func(s *session) (any, error)) (err error) {
	s, err := openSession(cmd, opts)
	if err != nil {
		return formatter(cmd, opts).Fail(err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = s.out.Fail(WrapExitError(ExitCommandError, "failed to close store", cerr))
		}
	}()

	data, err := fn(s)
	var inc *incompleteError
	if errors.As(err, &inc) {
		// Partial result: show what was done, then fail.
		if werr := s.out.Success(data); werr != nil {
			return fmt.Errorf("write output: %w", werr)
		}
		fmt.Fprintf(s.out.GetErrWriter(), "Error: %v\n", inc.err)
		return &ExitError{Code: ExitFailure, Message: "incomplete", Err: inc.err, Reported: true}
	}
	if err != nil {
		return s.out.Fail(err)
	}
	if err := s.out.Success(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// incompleteError marks a result that is written even though the command
// exits with ExitFailure.
type incompleteError struct {
	err error
}

func incomplete(err error) error { return &incompleteError{err: err} }

func (e *incompleteError) Error() string { return e.err.Error() }

func (e *incompleteError) Unwrap() error { return e.err }
