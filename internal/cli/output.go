package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failures, incomplete cascade
	ExitCommandError = 2 // Command error (bad flags, unreadable files, store I/O)
	ExitNotFound     = 3 // Primary record of the operation does not exist
	ExitClientError  = 4 // Invalid reference, missing edge, bad payload, duplicate profile
)

// ErrCodeGeneric is the CLI error code for failures that are not engine
// or validation errors.
const ErrCodeGeneric = "ERROR"

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the output, so the
	// entrypoint does not print it a second time.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitCommandError (2) if the error is not an
// ExitError, which covers cobra's flag and argument errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// IsReported reports whether err was already written by an OutputFormatter.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// Classify maps an error onto a CLI error code and exit code.
//
//   - engine NOT_FOUND: exit 3
//   - other engine errors and payload validation errors: exit 4
//   - an ExitError keeps its own exit code
//   - anything else: exit 2
func Classify(err error) (code string, exit int) {
	if c := engine.CodeOf(err); c != "" {
		if c == engine.ErrCodeNotFound {
			return string(c), ExitNotFound
		}
		return string(c), ExitClientError
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return string(engine.ErrCodeValidation), ExitClientError
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return ErrCodeGeneric, exitErr.Code
	}
	return ErrCodeGeneric, ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // engine error code, "VALIDATION" or "ERROR"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
//
// Text output renders records as YAML using their JSON field names; plain
// strings are printed as-is.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if s, ok := data.(string); ok {
		fmt.Fprintln(f.Writer, s)
		return nil
	}
	out, err := toYAML(data)
	if err != nil {
		return err
	}
	_, err = f.Writer.Write(out)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail writes err in the configured format and returns an ExitError
// carrying the classified exit code, marked as reported.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := Classify(err)
	if werr := f.Error(code, err.Error(), errorDetails(err)); werr != nil {
		return werr
	}
	return &ExitError{Code: exit, Message: code, Err: err, Reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// errorDetails extracts structured context from engine and validation
// errors. Returns nil for other errors.
func errorDetails(err error) any {
	var ee *engine.Error
	if errors.As(err, &ee) {
		d := map[string]string{}
		if ee.Kind != "" {
			d["kind"] = string(ee.Kind)
		}
		if ee.ID != "" {
			d["id"] = ee.ID
		}
		for k, v := range ee.Details {
			d[k] = v
		}
		if len(d) == 0 {
			return nil
		}
		return d
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

// toYAML renders v through its JSON form so field names match the JSON
// output.
func toYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var plain any
	if err := dec.Decode(&plain); err != nil {
		return nil, err
	}
	return yaml.Marshal(numbersToInt(plain))
}

// numbersToInt converts json.Number leaves so YAML prints them unquoted.
func numbersToInt(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = numbersToInt(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = numbersToInt(val[k])
		}
		return val
	}
	return v
}
