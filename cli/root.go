package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// StoreBackend overrides STORE_BACKEND when set.
	StoreBackend string
}

// NewRootCommand creates the root command for the bounty-board binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bounty-board",
		Short: "Bounty board service",
		Long: `Post reward-bearing bounties, collect submissions and pay out a single winner,
picked by the creator or automatically once the grace period after the deadline has passed.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.StoreBackend, "store", "", "record store backend (memory|sqlite|postgres|redis|r2), overrides STORE_BACKEND")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewBountiesCommand(opts))
	cmd.AddCommand(NewSubmissionsCommand(opts))

	return cmd
}
