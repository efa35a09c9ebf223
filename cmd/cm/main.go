package main

import (
	"fmt"
	"os"

	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/subcommand/runs"
	"github.com/jackadi-io/configmanager/cmd/cm/subcommand/state"
	"github.com/jackadi-io/configmanager/cmd/cm/subcommand/sync"
	"github.com/spf13/cobra"
)

var version = "dev"
var commit = "N/A"
var date = "N/A"

func sprintVersion() string {
	if version != "dev" {
		version = fmt.Sprintf("v%s", version)
	}
	return fmt.Sprintf("%s (commit: %s, build date: %s)\n", version, commit, date)
}

func main() {
	var completionCmd = &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		ValidArgs: []string{"bash", "zsh", "fish"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				_ = cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				_ = cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				_ = cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			}
			return nil
		},
	}

	rootCmd := &cobra.Command{
		Use:     "cm",
		Short:   "cm is the CLI of the config manager.",
		Version: version,
	}
	rootCmd.SetVersionTemplate(sprintVersion())
	rootCmd.AddGroup(
		&cobra.Group{
			ID:    "operations",
			Title: "Operations:",
		},
	)

	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(state.Root())
	rootCmd.AddCommand(sync.Root())
	rootCmd.AddCommand(runs.ListCommand())

	option.JSONFormat = rootCmd.PersistentFlags().Bool("json", false, "display result in JSON")
	option.Server = rootCmd.PersistentFlags().String("server", "", "manager URL (default: $CONFIGMANAGER_SERVER or http://localhost:8080)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
