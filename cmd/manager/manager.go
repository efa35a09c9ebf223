package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackadi-io/configmanager/internal/api"
	"github.com/jackadi-io/configmanager/internal/bus"
	"github.com/jackadi-io/configmanager/internal/config"
	"github.com/jackadi-io/configmanager/internal/manager/correlation"
	"github.com/jackadi-io/configmanager/internal/manager/dispatch"
	"github.com/jackadi-io/configmanager/internal/manager/history"
	"github.com/jackadi-io/configmanager/internal/manager/ingest"
	"github.com/jackadi-io/configmanager/internal/manager/inventory"
	"github.com/jackadi-io/configmanager/internal/manager/orchestrator"
	"github.com/jackadi-io/configmanager/internal/manager/results"
	"github.com/jackadi-io/configmanager/internal/manager/runs"
	"github.com/jackadi-io/configmanager/internal/state"
)

// ManagerInstance holds every component of a running manager.
type ManagerInstance struct {
	cfg *config.ManagerConfig

	events       bus.Bus
	states       state.Store
	hosts        inventory.Hosts
	results      results.Aggregator
	runs         *runs.Store
	history      *history.Store
	correlations *correlation.Table
	orchestrator *orchestrator.Orchestrator
	ingestor     *ingest.Ingestor
}

func newBus(cfg config.BusConfig) bus.Bus {
	if cfg.Driver == config.BusDriverMemory {
		slog.Warn("using in-memory message bus, events are not shared with other services")
		return bus.NewMemory()
	}
	return bus.NewKafka(cfg.Brokers)
}

func newDispatchClient(cfg config.ManagerConfig, events bus.Bus) dispatch.Client {
	if cfg.Dispatch.Mode == config.DispatchModeSimulated {
		slog.Warn("dispatch is simulated, no work item reaches real hosts", "delay", cfg.Dispatch.SimulatedDelay)
		return &dispatch.Simulator{
			Writer: events.Writer(),
			Topic:  cfg.Bus.CompletionTopic,
			Delay:  cfg.Dispatch.SimulatedDelay,
		}
	}
	return dispatch.NewConnectorClient(cfg.Dispatch.URL, cfg.Dispatch.Directive, cfg.Dispatch.Headers)
}

func newManager(cfg *config.ManagerConfig, db *badger.DB) (*ManagerInstance, error) {
	defaultState, err := state.LoadDefault(cfg.State.DefaultFile)
	if err != nil {
		return nil, err
	}

	static, err := inventory.ParseHosts(cfg.Inventory.StaticHosts)
	if err != nil {
		return nil, fmt.Errorf("invalid static hosts: %w", err)
	}

	runStore, err := runs.New(db, cfg.Retention.RunTTL)
	if err != nil {
		return nil, err
	}

	changes, err := history.New(db)
	if err != nil {
		_ = runStore.Close()
		return nil, err
	}

	m := &ManagerInstance{
		cfg:          cfg,
		events:       newBus(cfg.Bus),
		states:       state.NewStore(defaultState),
		hosts:        inventory.New(static),
		results:      results.New(),
		runs:         runStore,
		history:      changes,
		correlations: correlation.New(db, cfg.Retention.CorrelationTTL),
	}

	m.orchestrator = orchestrator.New(
		&m.states,
		&m.hosts,
		m.runs,
		&m.results,
		m.correlations,
		newDispatchClient(*cfg, m.events),
	)
	m.orchestrator.PublicURL = cfg.PublicURL
	m.orchestrator.Timeout = cfg.Dispatch.Timeout

	m.ingestor = ingest.New(m.correlations, &m.results, ingest.InventoryHook{Hosts: &m.hosts})

	return m, nil
}

// sweep drops the results of runs older than the retention.
func (m *ManagerInstance) sweep(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Retention.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.results.Sweep(time.Now().Add(-m.cfg.Retention.RunTTL)); n > 0 {
				slog.Info("expired run results dropped", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *ManagerInstance) startConsumers(ctx context.Context, wg *sync.WaitGroup) error {
	consumers := []struct {
		topic   string
		group   string
		handler ingest.Handler
	}{
		{m.cfg.Bus.ConnectivityTopic, m.cfg.Bus.ConnectivityGroup, m.ingestor.ConnectivityHandler()},
		{m.cfg.Bus.CompletionTopic, m.cfg.Bus.CompletionGroup, m.ingestor.CompletionHandler()},
	}

	for _, c := range consumers {
		reader, err := m.events.Reader(c.topic, c.group)
		if err != nil {
			return fmt.Errorf("unable to consume %s: %w", c.topic, err)
		}
		wg.Go(func() {
			defer reader.Close()
			ingest.Consume(ctx, c.group, reader, c.handler)
		})
	}
	return nil
}

func (m *ManagerInstance) handler() *api.Handler {
	return api.NewHandler(api.Backends{
		States:          &m.states,
		History:         m.history,
		Hosts:           &m.hosts,
		Orchestrator:    m.orchestrator,
		Events:          m.events.Writer(),
		CompletionTopic: m.cfg.Bus.CompletionTopic,
	})
}

func (m *ManagerInstance) Close() {
	if err := m.events.Close(); err != nil {
		slog.Warn("message bus failed to close properly", "error", err)
	}
	if err := m.runs.Close(); err != nil {
		slog.Warn("run sequence not released", "error", err)
	}
	if err := m.history.Close(); err != nil {
		slog.Warn("state change sequence not released", "error", err)
	}
}
