package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/refgraph/internal/model"
)

// Scenario defines an engine behaviour test: steps to run, and what must
// hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RequestID, if set, is used for every journal entry. Otherwise entries
	// get req-1, req-2, ...
	RequestID string `yaml:"request_id,omitempty"`

	// Options sets engine policy for the run.
	Options Options `yaml:"options,omitempty"`

	// Setup steps establish initial state and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirrors the engine's subscription policy switches.
type Options struct {
	AllowSelfSubscription       bool `yaml:"allow_self_subscription,omitempty"`
	AllowDuplicateSubscriptions bool `yaml:"allow_duplicate_subscriptions,omitempty"`
}

// Step invokes one engine operation.
type Step struct {
	// Op is an operation name such as "account.create" (see Operations).
	Op string `yaml:"op"`

	// Args are decoded into the operation's payload. Unknown keys are
	// rejected.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies a step outcome: either an error code or a result.
type Expect struct {
	// Error is the expected engine error code (e.g. "NOT_FOUND").
	Error string `yaml:"error,omitempty"`

	// Result is matched against the operation's result. Maps match as
	// subsets; lists must match element by element.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the entity kind (record, absent, count).
	Kind model.Kind `yaml:"kind,omitempty"`

	// ID is the record id (record, absent).
	ID string `yaml:"id,omitempty"`

	// Expect holds expected field values (record). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Filter restricts the counted records (count). Nil counts all.
	Filter *model.Filter `yaml:"filter,omitempty"`

	// Count is the expected number of records (count).
	Count *int `yaml:"count,omitempty"`

	// Operation selects journal entries (journal).
	Operation string `yaml:"operation,omitempty"`

	// Outcomes lists the expected outcomes of the selected entries in seq
	// order (journal).
	Outcomes []string `yaml:"outcomes,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord    = "record"
	AssertAbsent    = "absent"
	AssertCount     = "count"
	AssertJournal   = "journal"
	AssertIntegrity = "integrity"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, step Step) error {
	if step.Op == "" {
		return fmt.Errorf("%s: op is required", where)
	}
	if _, ok := operations[step.Op]; !ok {
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}
	if step.Args == nil {
		return fmt.Errorf("%s: args is required (use empty map if no args)", where)
	}
	if e := step.Expect; e != nil {
		if e.Error != "" && e.Result != nil {
			return fmt.Errorf("%s.expect: error and result are mutually exclusive", where)
		}
		if e.Error == "" && e.Result == nil {
			return fmt.Errorf("%s.expect: error or result is required", where)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecord, AssertAbsent:
		if err := validateKind(index, a); err != nil {
			return err
		}
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
		if a.Type == AssertRecord && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertCount:
		if err := validateKind(index, a); err != nil {
			return err
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", index)
		}
		if err := a.Filter.Validate(fieldsOf(a.Kind)); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertJournal:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for journal", index)
		}
		if a.Outcomes == nil {
			return fmt.Errorf("assertions[%d]: outcomes is required for journal (use [] for none)", index)
		}
	case AssertIntegrity:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}

func validateKind(index int, a *Assertion) error {
	if a.Kind == "" {
		return fmt.Errorf("assertions[%d]: kind is required for %s", index, a.Type)
	}
	if fieldsOf(a.Kind) == nil {
		return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
	}
	return nil
}

func fieldsOf(kind model.Kind) []string {
	switch kind {
	case model.KindAccount:
		return model.AccountFields
	case model.KindPost:
		return model.PostFields
	case model.KindProfile:
		return model.ProfileFields
	case model.KindMemberType:
		return model.MemberTypeFields
	}
	return nil
}
