package runs

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackadi-io/configmanager/cmd/cm/connection"
	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/jackadi-io/configmanager/internal/manager/database"
	"github.com/jackadi-io/configmanager/internal/serializer"
	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "runs ACCOUNT",
		Short:   "list the sync runs of an account",
		GroupID: "operations",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := connection.New(option.GetServer())

			var list []database.Run
			if err := client.Do(context.Background(), http.MethodGet, "/runs", connection.Account(args[0]), nil, &list); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			out, err := render(list, option.GetJSONFormat())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			style.PrettyPrint(out)
		},
	}
}

func render(list []database.Run, jsonFormat bool) (string, error) {
	if jsonFormat {
		out, err := serializer.JSON.MarshalIndent(list, "", "  ")
		return string(out), err
	}

	if len(list) == 0 {
		return style.Subtitle("no run"), nil
	}

	out := ""
	for _, run := range list {
		hosts := make([]string, len(run.Hosts))
		for i, h := range run.Hosts {
			hosts[i] = h.InventoryID
		}
		out += style.Title("Run " + run.ID)
		out += style.InlineBlockTitle("Created") + run.CreatedAt.Local().Format(time.DateTime)
		out += style.InlineBlockTitle("Hosts") + strings.Join(hosts, ", ")
		out += "\n"
	}
	return out, nil
}
