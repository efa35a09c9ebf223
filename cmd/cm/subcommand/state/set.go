package state

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackadi-io/configmanager/cmd/cm/connection"
	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/jackadi-io/configmanager/internal/parser"
	"github.com/spf13/cobra"
)

func setCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set ACCOUNT CAPABILITY=VALUE ...",
		Short: "replace the desired state of the account",
		Long:  "Replace the whole desired state of the account: capabilities not listed are removed.",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			desired, err := parser.ParseAssignments(args[1:])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			client := connection.New(option.GetServer())
			var stored map[string]string
			if err := client.Do(context.Background(), http.MethodPost, "/state", connection.Account(args[0]), desired, &stored); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			out, err := render(args[0], stored, option.GetJSONFormat())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			style.PrettyPrint(out)
		},
	}
}
