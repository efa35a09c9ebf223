package state

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackadi-io/configmanager/cmd/cm/connection"
	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/spf13/cobra"
)

func getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ACCOUNT",
		Short: "show the desired state of the account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := connection.New(option.GetServer())

			var desired map[string]string
			err := client.Do(context.Background(), http.MethodGet, "/state", connection.Account(args[0]), nil, &desired)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			out, err := render(args[0], desired, option.GetJSONFormat())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			style.PrettyPrint(out)
		},
	}
}
