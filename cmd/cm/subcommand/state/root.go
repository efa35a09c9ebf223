package state

import "github.com/spf13/cobra"

func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "state [OPTION] ...",
		Short:   "manage the desired state of an account",
		GroupID: "operations",
	}

	cmd.AddCommand(getCommand())
	cmd.AddCommand(setCommand())
	cmd.AddCommand(historyCommand())

	return cmd
}
