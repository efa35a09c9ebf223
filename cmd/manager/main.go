package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackadi-io/configmanager/internal/api"
	"github.com/jackadi-io/configmanager/internal/config"
	flag "github.com/spf13/pflag"

	_ "github.com/jackadi-io/configmanager/internal/logs"
)

var version = "dev"
var commit = "N/A"
var date = "N/A"

func printVersion() {
	if version != "dev" {
		version = fmt.Sprintf("v%s", version)
	}
	fmt.Printf("%s (commit: %s, build date: %s)\n", version, commit, date)
}

func dbGC(ctx context.Context, db *badger.DB) {
	ticker := time.NewTicker(config.DatabaseGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := db.RunValueLogGC(config.DBGCThreshold)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				slog.Warn("database GC failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func openDatabase(cfg config.DatabaseConfig) (*badger.DB, error) {
	dbOptions := badger.
		DefaultOptions(cfg.Dir).
		WithLogger(slogBadgerAdapter{})

	if cfg.InMemory {
		slog.Warn("database is in-memory, runs and correlations are lost on restart")
		dbOptions = badger.DefaultOptions("").WithInMemory(true).WithLogger(slogBadgerAdapter{})
	}

	return badger.Open(dbOptions)
}

func run(cfg *config.ManagerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.Database.InMemory {
		go dbGC(ctx, db)
	}

	manager, err := newManager(cfg, db)
	if err != nil {
		return err
	}
	defer manager.Close()

	wg := sync.WaitGroup{}
	defer wg.Wait()

	wg.Go(func() { manager.sweep(ctx) })

	if err := manager.startConsumers(ctx, &wg); err != nil {
		stop()
		return err
	}

	apiCfg := api.Config{
		APIAddress:    cfg.ListenAddress,
		APIPort:       cfg.ListenPort,
		APITLSEnabled: cfg.API.TLS.Enabled,
		APITLSCert:    cfg.API.TLS.Cert,
		APITLSKey:     cfg.API.TLS.Key,
	}
	if err := api.StartHTTPServer(ctx, apiCfg, manager.handler().Routes()); err != nil {
		stop()
		return fmt.Errorf("http api stopped: %w", err)
	}

	slog.Warn("shutdown")
	return nil
}

func main() {
	versionCmd := flag.BoolP("version", "v", false, "print version")

	config.SetupManagerFlags()

	flag.CommandLine.SortFlags = false
	flag.Parse()

	if *versionCmd {
		printVersion()
		os.Exit(0)
	}

	configFile := flag.Lookup("config").Value.String()
	managerCfg, err := config.LoadManagerConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("config manager", "version", version, "commit", commit, "build date", date)

	if err := run(managerCfg); err != nil {
		slog.Error("shutdown", "error", err)
		os.Exit(1)
	}
}
