package sync

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackadi-io/configmanager/cmd/cm/connection"
	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/spf13/cobra"
)

type syncResponse struct {
	ID string `json:"id"`
}

func startCommand() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "start ACCOUNT",
		Short: "start a sync run",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			account := args[0]
			client := connection.New(option.GetServer())

			var resp syncResponse
			if err := client.Do(context.Background(), http.MethodPost, "/sync", connection.Account(account), nil, &resp); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			if wait == 0 {
				if option.GetJSONFormat() {
					fmt.Printf("{\"id\": %q}\n", resp.ID)
					return
				}
				style.PrettyPrint(style.Title("Run "+style.RenderID(resp.ID)) + style.Subtitle("cm sync results "+account+" "+resp.ID))
				return
			}

			view, err := waitForRun(client, account, resp.ID, wait)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			out, rerr := render(resp.ID, view, option.GetJSONFormat())
			if rerr != nil {
				fmt.Fprintln(os.Stderr, rerr)
				os.Exit(1)
			}
			style.PrettyPrint(out)
			if err != nil {
				os.Exit(1)
			}
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 0, "wait up to this duration for every host to report")

	return cmd
}

func waitForRun(client *connection.Client, account, runID string, timeout time.Duration) (runResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		view, err := fetchResults(ctx, client, account, runID)
		if err != nil {
			return nil, err
		}
		if view.done() {
			return view, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return view, fmt.Errorf("run %s still has pending hosts", runID)
		}
	}
}
