package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewResolveCommand runs a single auto-resolution pass and prints its report.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Run one auto-resolution pass now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.resolver.Tick(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func NewBountiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bounties",
		Short: "List all bounties as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			bounties, err := rt.engine.ListBounties(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bounties)
		},
	}
}

func NewSubmissionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submissions <bounty-id>",
		Short: "List the submissions of a bounty as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			submissions, err := rt.engine.ListSubmissions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), submissions)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
