package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/jackadi-io/configmanager/cmd/cm/connection"
	"github.com/jackadi-io/configmanager/cmd/cm/option"
	"github.com/jackadi-io/configmanager/cmd/cm/style"
	"github.com/spf13/cobra"
)

type outcome struct {
	Status string          `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type runResult map[string]outcome

func (r runResult) done() bool {
	for _, o := range r {
		if o.Status == "pending" {
			return false
		}
	}
	return true
}

func fetchResults(ctx context.Context, client *connection.Client, account, runID string) (runResult, error) {
	query := url.Values{"account": []string{account}, "run_id": []string{runID}}
	var view runResult
	err := client.Do(ctx, http.MethodGet, "/sync_results", query, nil, &view)
	return view, err
}

func resultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "results ACCOUNT RUN_ID",
		Short: "show the per-host results of a run",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			client := connection.New(option.GetServer())
			view, err := fetchResults(context.Background(), client, args[0], args[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			out, err := render(args[1], view, option.GetJSONFormat())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			style.PrettyPrint(out)
		},
	}
}
