package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/schema"
)

// NewAccountCommand creates the account command group.
func NewAccountCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts and subscriptions",
	}
	cmd.AddCommand(
		newAccountListCommand(opts),
		newAccountGetCommand(opts),
		newAccountCreateCommand(opts),
		newAccountUpdateCommand(opts),
		newAccountDeleteCommand(opts),
		newSubscribeCommand(opts),
		newUnsubscribeCommand(opts),
		newIsSubscribedCommand(opts),
	)
	return cmd
}

func newAccountListCommand(opts *RootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Example: `  refgraph account list
  refgraph account list --filter '{"field":"subscribedToUserIds","op":"inArray","value":"<id>"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				f, err := parseFilter(filter)
				if err != nil {
					return nil, err
				}
				return s.engine.ListAccounts(s.ctx, f)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "JSON filter {field, op, value|values}")
	return cmd
}

func newAccountGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				return s.engine.GetAccount(s.ctx, args[0])
			})
		},
	}
}

func newAccountCreateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create an account",
		Example: `  refgraph account create --data '{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var in model.AccountInput
				if err := decodePayload(s.validator, schema.AccountInput, data, &in); err != nil {
					return nil, err
				}
				return s.engine.CreateAccount(s.ctx, in)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func newAccountUpdateCommand(opts *RootOptions) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change account attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				var patch model.AccountPatch
				if err := decodePayload(s.validator, schema.AccountPatch, data, &patch); err != nil {
					return nil, err
				}
				return s.engine.UpdateAccount(s.ctx, args[0], patch)
			})
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func newAccountDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account with its posts, profile and inbound subscriptions",
		Long: `Delete an account and everything that depends on it.

Posts are removed first, then the profile, then the account itself, then
the account's id is purged from every other account's subscriptions.
Dependent deletions are best-effort: when one fails the report is still
printed, the failed records are listed under failedRefs and the command
exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				report, err := s.engine.DeleteAccount(s.ctx, args[0])
				if err != nil {
					return nil, err
				}
				if !report.Complete() {
					return report, incomplete(report.Failures)
				}
				return report, nil
			})
		},
	}
}

func newSubscribeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <subscriber-id> <followed-id>",
		Short: "Subscribe one account to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				if err := checkAccountRefs(s.validator, args[0], args[1]); err != nil {
					return nil, err
				}
				return s.engine.Subscribe(s.ctx, args[0], args[1])
			})
		},
	}
}

func newUnsubscribeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <subscriber-id> <followed-id>",
		Short: "Remove a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				if err := checkAccountRefs(s.validator, args[0], args[1]); err != nil {
					return nil, err
				}
				return s.engine.Unsubscribe(s.ctx, args[0], args[1])
			})
		},
	}
}

// SubscriptionStatus is the output of is-subscribed.
type SubscriptionStatus struct {
	SubscriberID string `json:"subscriberId"`
	FollowedID   string `json:"followedId"`
	Subscribed   bool   `json:"subscribed"`
}

func newIsSubscribedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "is-subscribed <subscriber-id> <followed-id>",
		Short: "Check whether a subscription edge exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				if err := checkAccountRefs(s.validator, args[0], args[1]); err != nil {
					return nil, err
				}
				ok, err := s.engine.IsSubscribed(s.ctx, args[0], args[1])
				if err != nil {
					return nil, err
				}
				s.out.VerboseLog("%s -> %s: %t", args[0], args[1], ok)
				return SubscriptionStatus{SubscriberID: args[0], FollowedID: args[1], Subscribed: ok}, nil
			})
		},
	}
}
