package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/schema"
)

// Definitions lists the payload definitions accepted by validate.
var Definitions = []schema.Definition{
	schema.AccountInput,
	schema.AccountPatch,
	schema.PostInput,
	schema.PostPatch,
	schema.ProfileInput,
	schema.ProfilePatch,
	schema.MemberTypePatch,
	schema.Subscription,
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Definition string `json:"definition"`
	Valid      bool   `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "validate <definition>",
		Short: "Validate a payload without touching the store",
		Long: fmt.Sprintf(`Check a JSON payload against one of the embedded schema definitions.

Definitions: %s

Exit codes:
  0 - Payload is valid
  4 - Payload is invalid
  2 - Command error`, definitionNames()),
		Example: `  refgraph validate AccountInput --data '{"firstName":"Ada","lastName":"L","email":"ada@example.com"}'
  refgraph validate ProfilePatch --data @patch.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], data, cmd)
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func runValidate(opts *RootOptions, name, data string, cmd *cobra.Command) error {
	out := formatter(cmd, opts)

	def, ok := lookupDefinition(name)
	if !ok {
		return out.Fail(NewExitError(ExitCommandError, fmt.Sprintf("unknown definition %q: must be one of %s", name, definitionNames())))
	}
	raw, err := readData(data)
	if err != nil {
		return out.Fail(err)
	}

	v, err := schema.New()
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to load schema", err))
	}
	out.VerboseLog("Validating %d byte(s) against %s", len(raw), def)
	if err := v.ValidateJSON(def, raw); err != nil {
		return out.Fail(err)
	}
	return out.Success(ValidationResult{Definition: string(def), Valid: true})
}

// lookupDefinition accepts a definition with or without its leading "#".
func lookupDefinition(name string) (schema.Definition, bool) {
	want := "#" + strings.TrimPrefix(name, "#")
	for _, d := range Definitions {
		if string(d) == want {
			return d, true
		}
	}
	return "", false
}

func definitionNames() string {
	names := make([]string, len(Definitions))
	for i, d := range Definitions {
		names[i] = strings.TrimPrefix(string(d), "#")
	}
	return strings.Join(names, ", ")
}
