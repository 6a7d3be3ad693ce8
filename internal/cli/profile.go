package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/schema"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}
	cmd.AddCommand(
		newProfileListCommand(opts),
		newProfileGetCommand(opts),
		newProfileCreateCommand(opts),
		newProfileUpdateCommand(opts),
		newProfileDeleteCommand(opts),
	)
	return cmd
}

func newProfileListCommand(opts *RootOptions) *cobra.Command {
	var owner, filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				f, err := ownerFilter(owner, filter)
				if err != nil {
					return nil, err
				}
				return s.engine.ListProfiles(s.ctx, f)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only the profile owned by this account id")
	cmd.Flags().StringVar(&filter, "filter", "", "JSON filter {field, op, value|values}")
	return cmd
}

func newProfileGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				return s.engine.GetProfile(s.ctx, args[0])
			})
		},
	}
}

func newProfileCreateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the profile of an existing account",
		Long: `Create a profile. The owning account and the member type must exist,
and an account has at most one profile.`,
		Example: `  refgraph profile create --data '{"avatar":"a.png","sex":"f","birthday":19901231,"country":"UK","street":"1 High St","city":"London","memberTypeId":"basic","userId":"<account-id>"}'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var in model.ProfileInput
				if err := decodePayload(s.validator, schema.ProfileInput, data, &in); err != nil {
					return nil, err
				}
				return s.engine.CreateProfile(s.ctx, in)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func newProfileUpdateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change profile attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var patch model.ProfilePatch
				if err := decodePayload(s.validator, schema.ProfilePatch, data, &patch); err != nil {
					return nil, err
				}
				return s.engine.UpdateProfile(s.ctx, args[0], patch)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func newProfileDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				return s.engine.DeleteProfile(s.ctx, args[0])
			})
		},
	}
}
