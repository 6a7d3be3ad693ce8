package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/schema"
)

// NewMemberTypeCommand creates the member-type command group. Member types
// are seeded with the store and cannot be created or deleted.
func NewMemberTypeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member-type",
		Short: "Inspect and adjust member types",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List member types",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithSession(cmd, opts, func(s *session) (any, error) {
					return s.engine.ListMemberTypes(s.ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one member type",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithSession(cmd, opts, func(s *session) (any, error) {
					return s.engine.GetMemberType(s.ctx, args[0])
				})
			},
		},
		newMemberTypeUpdateCommand(opts),
	)
	return cmd
}

func newMemberTypeUpdateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change a member type's discount or monthly post limit",
		Example: `  refgraph member-type update business --data '{"discount":10}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var patch model.MemberTypePatch
				if err := decodePayload(s.validator, schema.MemberTypePatch, data, &patch); err != nil {
					return nil, err
				}
				return s.engine.UpdateMemberType(s.ctx, args[0], patch)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}
