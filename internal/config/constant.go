package config

import "time"

const (
	// Network.
	DefaultListenAddress  = "127.0.0.1"
	DefaultListenPort     = "8080"
	DefaultPublicURL      = "http://localhost:8080" // Base URL hosts use to fetch work items and report back.
	DefaultServerURL      = "http://localhost:8080" // Manager URL used by the CLI.
	HTTPReadHeaderTimeout = 10 * time.Second

	// Timing and duration config.
	GracefulShutdownTimeout = 10 * time.Second
	DatabaseGCInterval      = 5 * time.Minute
	DefaultDispatchTimeout  = 10 * time.Second // Bound of a single host submission to the dispatch service.
	DefaultSimulatedDelay   = 2500 * time.Millisecond
	SweepInterval           = 10 * time.Minute
	CLIRequestTimeout       = time.Minute

	// Retention.
	DefaultRunTTL         = 24 * time.Hour // TTL of run records in the database.
	DefaultCorrelationTTL = 24 * time.Hour // TTL of correlation entries in the database.
	DBGCThreshold         = 0.7            // Threshold for database garbage collection.
	RunSequenceBandwidth  = 100            // Number of run ids leased at once from the database sequence.

	// State history.
	StateChangeSequenceBandwidth = 20
	DefaultHistoryLimit          = 10
	MaxHistoryLimit              = 100

	// File and directory paths.
	DefaultConfigDir = "/etc/configmanager"
	DatabaseDir      = "/var/lib/configmanager/database" // Default database directory (runs and correlations).

	// Dispatch.
	DispatchModeHTTP      = "http"
	DispatchModeSimulated = "simulated"
	DefaultDispatchURL    = "http://localhost:8081/job"
	DefaultDirective      = "playbook"
	PlaybookHandler       = "playbook_runner"

	// Message bus.
	BusDriverKafka           = "kafka"
	BusDriverMemory          = "memory"
	DefaultBroker            = "localhost:29092"
	ConnectivityTopic        = "platform.inventory.events"
	CompletionTopic          = "platform.playbook_dispatcher.events"
	ConnectivityConsumerName = "config-manager-inventory-consumer"
	CompletionConsumerName   = "config-manager-output-received-consumer"

	// HTTP API.
	MessageIDHeader = "message_id"
	InitiatorHeader = "X-Initiator" // Who requested a state replacement, archived with it.
	EnvPrefix       = "CONFIGMANAGER"
)

// DefaultStaticHosts is the host set used for an account when no connectivity
// event has been observed for it, as "inventory-id:client-id" pairs.
var DefaultStaticHosts = []string{"inv_id_host_1:client-0", "inv_id_host_2:client-1"}
