package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/schema"
)

// NewPostCommand creates the post command group.
func NewPostCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}
	cmd.AddCommand(
		newPostListCommand(opts),
		newPostGetCommand(opts),
		newPostCreateCommand(opts),
		newPostUpdateCommand(opts),
		newPostDeleteCommand(opts),
	)
	return cmd
}

func newPostListCommand(opts *RootOptions) *cobra.Command {
	var owner, filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				f, err := ownerFilter(owner, filter)
				if err != nil {
					return nil, err
				}
				return s.engine.ListPosts(s.ctx, f)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only posts owned by this account id")
	cmd.Flags().StringVar(&filter, "filter", "", "JSON filter {field, op, value|values}")
	return cmd
}

func newPostGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				return s.engine.GetPost(s.ctx, args[0])
			})
		},
	}
}

func newPostCreateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a post owned by an existing account",
		Example: `  refgraph post create --data '{"title":"Hello","content":"First post","userId":"<account-id>"}'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var in model.PostInput
				if err := decodePayload(s.validator, schema.PostInput, data, &in); err != nil {
					return nil, err
				}
				return s.engine.CreatePost(s.ctx, in)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func newPostUpdateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a post's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var patch model.PostPatch
				if err := decodePayload(s.validator, schema.PostPatch, data, &patch); err != nil {
					return nil, err
				}
				return s.engine.UpdatePost(s.ctx, args[0], patch)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func newPostDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				return s.engine.DeletePost(s.ctx, args[0])
			})
		},
	}
}
