package state

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/jackadi-io/configmanager/cmd/cm/connection"
	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/manager/database"
	"github.com/jackadi-io/configmanager/internal/serializer"
	"github.com/spf13/cobra"
)

func historyCommand() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history ACCOUNT [CHANGE_ID]",
		Short: "show the past desired states of the account, newest first",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			client := connection.New(option.GetServer())

			var changes []database.StateChange
			if len(args) == 2 {
				var change database.StateChange
				if err := client.Do(context.Background(), http.MethodGet, "/states/"+url.PathEscape(args[1]), connection.Account(args[0]), nil, &change); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				changes = append(changes, change)
			} else {
				query := connection.Account(args[0])
				query.Set("limit", strconv.Itoa(limit))
				query.Set("offset", strconv.Itoa(offset))

				var page database.StateChanges
				if err := client.Do(context.Background(), http.MethodGet, "/states", query, nil, &page); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				changes = page.Changes
			}

			out, err := renderHistory(changes, option.GetJSONFormat())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			style.PrettyPrint(out)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", config.DefaultHistoryLimit, "maximum number of changes to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of newest changes to skip")
	return cmd
}

func renderHistory(changes []database.StateChange, jsonFormat bool) (string, error) {
	if jsonFormat {
		out, err := serializer.JSON.MarshalIndent(changes, "", "  ")
		return string(out), err
	}

	if len(changes) == 0 {
		return style.Subtitle("no state change"), nil
	}

	out := ""
	for _, change := range changes {
		out += style.Title("Change " + change.ID)
		out += style.InlineBlockTitle("Created") + change.CreatedAt.Local().Format(time.DateTime)
		if change.Initiator != "" {
			out += style.InlineBlockTitle("By") + change.Initiator
		}

		capabilities := make([]string, 0, len(change.State))
		for c := range change.State {
			capabilities = append(capabilities, c)
		}
		sort.Strings(capabilities)

		items := ""
		for _, c := range capabilities {
			items += style.Item(c + ": " + change.State[c])
		}
		out += style.Block(items) + "\n"
	}
	return out, nil
}
