package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/schema"
)

// addDataFlag registers --data on a mutating command. A value starting with
// "@" names a file to read the payload from.
func addDataFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "data", "", "JSON payload (or @file)")
	_ = cmd.MarkFlagRequired("data")
}

// readData resolves a --data value to raw JSON.
func readData(value string) ([]byte, error) {
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read payload", err)
		}
		return data, nil
	}
	return []byte(value), nil
}

// decodePayload validates raw against def and decodes it into v.
// Unknown fields are rejected by both steps.
func decodePayload(v *schema.Validator, def schema.Definition, value string, out any) error {
	raw, err := readData(value)
	if err != nil {
		return err
	}
	if err := v.ValidateJSON(def, raw); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return engine.NewValidationError(fmt.Errorf("decode %s: %w", def, err))
	}
	return nil
}

// accountRef is the #Subscription payload: one side of a subscription edge.
type accountRef struct {
	UserID string `json:"userId"`
}

// checkAccountRefs validates positional account ids against #Subscription
// before the engine resolves them.
func checkAccountRefs(v *schema.Validator, ids ...string) error {
	for _, id := range ids {
		if err := v.Validate(schema.Subscription, accountRef{UserID: id}); err != nil {
			return engine.NewValidationError(err)
		}
	}
	return nil
}

// parseFilter decodes a --filter value such as
// {"field":"firstName","op":"equals","value":"Ada"}. Empty means no filter.
func parseFilter(value string) (*model.Filter, error) {
	if value == "" {
		return nil, nil
	}
	f := &model.Filter{}
	dec := json.NewDecoder(strings.NewReader(value))
	dec.DisallowUnknownFields()
	if err := dec.Decode(f); err != nil {
		return nil, engine.NewValidationError(fmt.Errorf("decode filter: %w", err))
	}
	return f, nil
}

// ownerFilter builds the --owner filter for posts and profiles.
func ownerFilter(owner, filter string) (*model.Filter, error) {
	if owner != "" && filter != "" {
		return nil, NewExitError(ExitCommandError, "--owner and --filter are mutually exclusive")
	}
	if owner != "" {
		return model.Eq("userId", owner), nil
	}
	return parseFilter(filter)
}
