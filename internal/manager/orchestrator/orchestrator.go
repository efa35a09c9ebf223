// Package orchestrator starts sync runs and exposes their progress.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackadi-io/configmanager/internal/manager/database"
	"github.com/jackadi-io/configmanager/internal/manager/dispatch"
	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/manager/results"
	"github.com/jackadi-io/configmanager/internal/metrics"
	"github.com/jackadi-io/configmanager/internal/playbook"
	"github.com/jackadi-io/configmanager/internal/serializer"
	"github.com/jackadi-io/configmanager/internal/state"
)

type StateSource interface {
	Resolve(account string) (state.Desired, error)
}

type HostResolver interface {
	Connected(account string) []inventory.Host
}

type RunStore interface {
	NextID() (string, error)
	Record(run *database.Run) error
	Get(account, runID string) (*database.Run, error)
	List(account string) ([]database.Run, error)
}

type Results interface {
	InitRun(account, runID string, hostIDs []string)
	MarkDispatchFailed(account, runID, hostID, reason string) error
	View(account, runID string) (results.RunResult, error)
}

type Correlations interface {
	Register(token, account, runID, hostID string) error
}

type Orchestrator struct {
	states       StateSource
	hosts        HostResolver
	runs         RunStore
	results      Results
	correlations Correlations
	client       dispatch.Client

	// PublicURL is the base URL hosts use to fetch their work item and report back.
	PublicURL string
	Timeout   time.Duration
}

func New(states StateSource, hosts HostResolver, runs RunStore, res Results, correlations Correlations, client dispatch.Client) *Orchestrator {
	return &Orchestrator{
		states:       states,
		hosts:        hosts,
		runs:         runs,
		results:      res,
		correlations: correlations,
		client:       client,
	}
}

// StartSync pushes the current desired state of the account to its connected hosts.
//
// It returns as soon as the work items are submitted, completions are applied
// asynchronously.
func (o *Orchestrator) StartSync(ctx context.Context, account string) (string, error) {
	desired, err := o.states.Resolve(account)
	if err != nil {
		return "", err
	}

	runID, err := o.runs.NextID()
	if err != nil {
		return "", err
	}

	hosts := o.hosts.Connected(account)
	run := &database.Run{
		ID:        runID,
		Account:   account,
		State:     desired,
		Hosts:     hosts,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.runs.Record(run); err != nil {
		return "", fmt.Errorf("unable to record run %s: %w", runID, err)
	}

	hostIDs := make([]string, len(hosts))
	for i, h := range hosts {
		hostIDs[i] = h.InventoryID
	}
	o.results.InitRun(account, runID, hostIDs)

	metrics.SyncStarted()
	slog.Info("starting sync", "account", account, "run", runID, "hosts", len(hosts))
	if len(hosts) == 0 {
		return runID, nil
	}

	payload, err := serializer.JSON.MarshalToString(playbook.JobRequest(o.PublicURL, account))
	if err != nil {
		return "", fmt.Errorf("unable to build job request: %w", err)
	}

	requests := make([]dispatch.Request, len(hosts))
	for i, h := range hosts {
		requests[i] = dispatch.Request{Account: account, Host: h, Payload: payload}
	}

	dispatch.Fanout(ctx, o.client, o.Timeout, requests, func(res dispatch.Result) {
		o.track(account, runID, res)
	})

	return runID, nil
}

// track registers the correlation of a submitted work item, or marks the host
// as failed. It runs as soon as the submission to that host returns.
func (o *Orchestrator) track(account, runID string, res dispatch.Result) {
	if res.OK() {
		res.Err = o.correlations.Register(res.Token, account, runID, res.Host.InventoryID)
	}

	if res.Err != nil {
		metrics.DispatchFailure()
		slog.Warn("dispatch failed", "account", account, "run", runID, "host", res.Host.InventoryID, "error", res.Err)
		if err := o.results.MarkDispatchFailed(account, runID, res.Host.InventoryID, res.Err.Error()); err != nil {
			slog.Error("unable to mark dispatch failure", "account", account, "run", runID, "host", res.Host.InventoryID, "error", err)
		}
		return
	}

	slog.Debug("work item dispatched", "account", account, "run", runID, "host", res.Host.InventoryID, "token", res.Token)
}

func (o *Orchestrator) View(account, runID string) (results.RunResult, error) {
	return o.results.View(account, runID)
}

func (o *Orchestrator) Run(account, runID string) (*database.Run, error) {
	return o.runs.Get(account, runID)
}

func (o *Orchestrator) Runs(account string) ([]database.Run, error) {
	return o.runs.List(account)
}
