package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // SQLite path, ":memory:" accepted
	Config   string // optional YAML config file

	// IDs selects the record id generator ("uuid" | "sequence").
	IDs string

	AllowSelfSubscription       bool
	AllowDuplicateSubscriptions bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultDatabase is the SQLite file used when neither --db nor the config
// file names one.
const DefaultDatabase = "refgraph.db"

// NewRootCommand creates the root command for the refgraph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "refgraph",
		Short: "refgraph - relational record store",
		Long: `Manage accounts, posts, profiles and member types with enforced
references, subscription edges and cascading account deletion.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return applyConfig(cmd, opts)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Database, "db", DefaultDatabase, "SQLite database path (\":memory:\" for a throwaway store)")
	pf.StringVar(&opts.Config, "config", "", "YAML config file")
	pf.StringVar(&opts.IDs, "ids", IDsUUID, "record id generator (uuid|sequence); sequence counters restart every invocation")

	// Add subcommands
	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewPostCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewMemberTypeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig merges the config file into opts. Flags set on the command
// line win over file values.
func applyConfig(cmd *cobra.Command, opts *RootOptions) error {
	if opts.Config == "" {
		return validateIDs(opts.IDs)
	}
	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if cfg.Database != "" && !flags.Changed("db") {
		opts.Database = cfg.Database
	}
	if cfg.IDs != "" && !flags.Changed("ids") {
		opts.IDs = cfg.IDs
	}
	opts.AllowSelfSubscription = cfg.AllowSelfSubscription
	opts.AllowDuplicateSubscriptions = cfg.AllowDuplicateSubscriptions
	return validateIDs(opts.IDs)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
