// Package ingest applies the events received from the bus to the manager stores.
//
// Event processing is best-effort: a failing event is logged and dropped, and
// never stops the consumer loop.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackadi-io/configmanager/internal/manager/database"
	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/manager/message"
	"github.com/jackadi-io/configmanager/internal/manager/results"
)

var ErrAccountMismatch = errors.New("event account does not match correlation")

type Correlations interface {
	Resolve(token string) (*database.Correlation, error)
	Release(token string) error
}

type Results interface {
	ApplyResult(account, runID, hostID string, value any) error
}

// ConnectivityHook is called for every host connectivity event.
type ConnectivityHook interface {
	OnConnectivity(ctx context.Context, event message.ConnectivityEvent) error
}

// InventoryHook feeds connectivity events to the host inventory used to resolve sync targets.
type InventoryHook struct {
	Hosts *inventory.Hosts
}

func (h InventoryHook) OnConnectivity(_ context.Context, event message.ConnectivityEvent) error {
	if event.IsDelete() {
		err := h.Hosts.Forget(event.Account, event.ID)
		if errors.Is(err, inventory.ErrHostNotFound) {
			return nil
		}
		return err
	}

	if event.ConnectedClientID == "" && event.IsConnected() {
		return fmt.Errorf("host %s connected without client id", event.ID)
	}

	host := inventory.Host{InventoryID: event.ID, ClientID: event.ConnectedClientID}
	h.Hosts.MarkHostStateChange(event.Account, host, event.IsConnected())
	return nil
}

type Ingestor struct {
	correlations Correlations
	results      Results
	hook         ConnectivityHook
}

// New returns an Ingestor. A nil hook only logs connectivity events.
func New(correlations Correlations, results Results, hook ConnectivityHook) *Ingestor {
	return &Ingestor{
		correlations: correlations,
		results:      results,
		hook:         hook,
	}
}

// HandleCompletion applies the output of a work item to the run it belongs to.
func (i *Ingestor) HandleCompletion(_ context.Context, event message.CompletionEvent) error {
	entry, err := i.correlations.Resolve(event.MessageID)
	if err != nil {
		return fmt.Errorf("message %s: %w", event.MessageID, err)
	}

	if entry.Account != event.Account {
		return fmt.Errorf("message %s: %w: got %s", event.MessageID, ErrAccountMismatch, event.Account)
	}

	if err := i.results.ApplyResult(entry.Account, entry.RunID, entry.HostID, event.AnsibleOutput); err != nil {
		// the run or host is gone, the token can never be applied.
		if errors.Is(err, results.ErrUnknownRun) || errors.Is(err, results.ErrUnknownHost) {
			i.release(event.MessageID)
		}
		return fmt.Errorf("message %s: %w", event.MessageID, err)
	}

	slog.Info("host result received", "account", entry.Account, "run", entry.RunID, "host", entry.HostID)
	i.release(event.MessageID)
	return nil
}

func (i *Ingestor) release(token string) {
	if err := i.correlations.Release(token); err != nil {
		slog.Warn("unable to release correlation token", "message_id", token, "error", err)
	}
}

// HandleConnectivity forwards a connectivity event to the hook.
func (i *Ingestor) HandleConnectivity(ctx context.Context, event message.ConnectivityEvent) error {
	slog.Info("host connectivity changed", "account", event.Account, "host", event.ID, "client", event.ConnectedClientID, "connected", event.IsConnected())
	if i.hook == nil {
		return nil
	}
	return i.hook.OnConnectivity(ctx, event)
}

func (i *Ingestor) CompletionHandler() Handler {
	return func(ctx context.Context, data []byte) error {
		event, err := message.DecodeCompletion(data)
		if err != nil {
			return err
		}
		return i.HandleCompletion(ctx, event)
	}
}

func (i *Ingestor) ConnectivityHandler() Handler {
	return func(ctx context.Context, data []byte) error {
		event, err := message.DecodeConnectivity(data)
		if err != nil {
			return err
		}
		return i.HandleConnectivity(ctx, event)
	}
}
