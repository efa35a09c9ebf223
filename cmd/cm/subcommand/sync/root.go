package sync

import "github.com/spf13/cobra"

func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync [OPTION] ...",
		Short:   "push the desired state to the hosts of an account",
		GroupID: "operations",
	}

	cmd.AddCommand(startCommand())
	cmd.AddCommand(resultsCommand())

	return cmd
}
