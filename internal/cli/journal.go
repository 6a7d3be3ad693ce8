package cli

import (
	"github.com/spf13/cobra"
)

// NewJournalCommand creates the journal command.
func NewJournalCommand(opts *RootOptions) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recorded mutations",
		Long: `List the mutation journal in sequence order.

Every mutating command appends one entry with its request id, arguments,
outcome and the records it touched. Cascade steps that failed are listed
with a "failed:" prefix.`,
		Example: `  refgraph journal
  refgraph journal --operation account.delete --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				return s.engine.Journal(s.ctx, operation)
			})
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "only entries for this operation (e.g. account.delete)")
	return cmd
}
