// Package schema validates request payloads against embedded CUE
// definitions.
//
// Validation happens in two places: the request layer checks raw JSON with
// ValidateJSON (unknown fields, wrong types, floats), and the engine checks
// typed inputs with Validate before touching the store.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/refgraph/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Definition names a CUE definition in schema.cue.
type Definition string

const (
	AccountInput    Definition = "#AccountInput"
	AccountPatch    Definition = "#AccountPatch"
	PostInput       Definition = "#PostInput"
	PostPatch       Definition = "#PostPatch"
	ProfileInput    Definition = "#ProfileInput"
	ProfilePatch    Definition = "#ProfilePatch"
	MemberTypePatch Definition = "#MemberTypePatch"
	Subscription    Definition = "#Subscription"
)

// Validation error codes (S100-S199)
const (
	ErrUnknownDefinition = "S100" // definition not present in schema.cue
	ErrFieldNotAllowed   = "S101" // field not declared by a closed definition
	ErrConstraint        = "S102" // value violates a type or bound
	ErrMissingField      = "S103" // required field absent
	ErrMalformed         = "S104" // payload is not a JSON object of integers/strings
)

// ValidationError describes the first problem found in a payload.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validator checks payloads against the compiled schema.
//
// Thread-safety: cue.Context is not safe for concurrent use, so every call
// holds the validator's mutex.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: v}, nil
}

// MustNew is New for package-level defaults; the embedded schema is fixed
// at build time so a failure is a programming error.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a typed payload. The payload is converted through its JSON
// tags, so omitted optional fields are simply absent.
func (v *Validator) Validate(def Definition, payload any) error {
	args, err := model.ToArgs(payload)
	if err != nil {
		return &ValidationError{Message: err.Error(), Code: ErrMalformed}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.check(def, v.ctx.Encode(args))
}

// ValidateJSON checks a raw JSON object as received by the request layer.
func (v *Validator) ValidateJSON(def Definition, raw []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.ctx.CompileBytes(raw, cue.Filename("payload.json"))
	if err := val.Err(); err != nil {
		return &ValidationError{Message: "invalid JSON: " + firstMessage(err), Code: ErrMalformed}
	}
	if val.IncompleteKind() != cue.StructKind {
		return &ValidationError{Message: "payload must be a JSON object", Code: ErrMalformed}
	}
	return v.check(def, val)
}

// check unifies val with def. Caller holds v.mu.
func (v *Validator) check(def Definition, val cue.Value) error {
	d := v.schema.LookupPath(cue.ParsePath(string(def)))
	if !d.Exists() {
		return &ValidationError{Field: string(def), Message: "unknown definition", Code: ErrUnknownDefinition}
	}
	unified := d.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError converts the first CUE error into a ValidationError.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error(), Code: ErrConstraint}
	}

	first := errs[0]
	format, args := first.Msg()
	msg := fmt.Sprintf(format, args...)

	code := ErrConstraint
	switch {
	case strings.Contains(msg, "not allowed"):
		code = ErrFieldNotAllowed
	case strings.Contains(msg, "incomplete value"):
		code = ErrMissingField
		msg = "required field missing"
	}

	path := first.Path()
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}

	return &ValidationError{
		Field:   strings.Join(path, "."),
		Message: msg,
		Code:    code,
	}
}

func firstMessage(err error) string {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	format, args := errs[0].Msg()
	return fmt.Sprintf(format, args...)
}
