package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sagikazarmark/locafero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var errViperConfigNotFound viper.ConfigFileNotFoundError

type ManagerConfig struct {
	ListenAddress string          `mapstructure:"address" yaml:"address"`
	ListenPort    string          `mapstructure:"port" yaml:"port"`
	PublicURL     string          `mapstructure:"public-url" yaml:"public-url"`
	API           APIConfig       `mapstructure:"api" yaml:"api"`
	Database      DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Retention     RetentionConfig `mapstructure:"retention" yaml:"retention"`
	State         StateConfig     `mapstructure:"state" yaml:"state"`
	Inventory     InventoryConfig `mapstructure:"inventory" yaml:"inventory"`
	Dispatch      DispatchConfig  `mapstructure:"dispatch" yaml:"dispatch"`
	Bus           BusConfig       `mapstructure:"bus" yaml:"bus"`
}

type APIConfig struct {
	TLS APITLSConfig `mapstructure:"tls" yaml:"tls"`
}

type APITLSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Cert    string `mapstructure:"cert" yaml:"cert"`
	Key     string `mapstructure:"key" yaml:"key"`
}

type DatabaseConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	InMemory bool   `mapstructure:"in-memory" yaml:"in-memory"`
}

type RetentionConfig struct {
	RunTTL         time.Duration `mapstructure:"run-ttl" yaml:"run-ttl"`
	CorrelationTTL time.Duration `mapstructure:"correlation-ttl" yaml:"correlation-ttl"`
	SweepInterval  time.Duration `mapstructure:"sweep-interval" yaml:"sweep-interval"`
}

type StateConfig struct {
	// DefaultFile is an optional YAML file replacing the built-in default state.
	DefaultFile string `mapstructure:"default-file" yaml:"default-file"`
}

type InventoryConfig struct {
	StaticHosts []string `mapstructure:"static-hosts" yaml:"static-hosts"`
}

type DispatchConfig struct {
	Mode           string            `mapstructure:"mode" yaml:"mode"`
	URL            string            `mapstructure:"url" yaml:"url"`
	Timeout        time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Directive      string            `mapstructure:"directive" yaml:"directive"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers"`
	SimulatedDelay time.Duration     `mapstructure:"simulated-delay" yaml:"simulated-delay"`
}

type BusConfig struct {
	Driver            string   `mapstructure:"driver" yaml:"driver"`
	Brokers           []string `mapstructure:"brokers" yaml:"brokers"`
	ConnectivityTopic string   `mapstructure:"connectivity-topic" yaml:"connectivity-topic"`
	CompletionTopic   string   `mapstructure:"completion-topic" yaml:"completion-topic"`
	ConnectivityGroup string   `mapstructure:"connectivity-group" yaml:"connectivity-group"`
	CompletionGroup   string   `mapstructure:"completion-group" yaml:"completion-group"`
}

func (c *ManagerConfig) Validate() error {
	switch c.Dispatch.Mode {
	case DispatchModeHTTP, DispatchModeSimulated:
	default:
		return fmt.Errorf("unknown dispatch mode '%s'", c.Dispatch.Mode)
	}

	switch c.Bus.Driver {
	case BusDriverKafka:
		if len(c.Bus.Brokers) == 0 {
			return errors.New("kafka bus requires at least one broker")
		}
	case BusDriverMemory:
	default:
		return fmt.Errorf("unknown bus driver '%s'", c.Bus.Driver)
	}

	if c.Dispatch.Timeout <= 0 {
		return errors.New("dispatch timeout must be positive")
	}

	if c.Retention.RunTTL <= 0 {
		return errors.New("retention run-ttl must be positive")
	}
	if c.Retention.CorrelationTTL <= 0 {
		return errors.New("retention correlation-ttl must be positive")
	}
	if c.Retention.SweepInterval <= 0 {
		return errors.New("retention sweep-interval must be positive")
	}

	if !c.Database.InMemory && c.Database.Dir == "" {
		return errors.New("database directory is required unless in-memory mode is enabled")
	}

	if c.API.TLS.Enabled && (c.API.TLS.Cert == "" || c.API.TLS.Key == "") {
		return errors.New("API TLS enabled but certificate or key file not specified")
	}

	return nil
}

func SetupManagerFlags() {
	pflag.String("address", DefaultListenAddress, "HTTP API listen address")
	pflag.String("port", DefaultListenPort, "HTTP API listen port")
	pflag.String("public-url", DefaultPublicURL, "base URL hosts use to reach this manager")
	pflag.Bool("api.tls.enabled", false, "enable TLS for HTTP API")
	pflag.String("api.tls.cert", "", "API TLS certificate filepath")
	pflag.String("api.tls.key", "", "API TLS key filepath")
	pflag.String("database.dir", DatabaseDir, "database directory")
	pflag.Bool("database.in-memory", false, "keep runs and correlations in memory only")
	pflag.String("state.default-file", "", "YAML file overriding the default desired state")
	pflag.StringSlice("inventory.static-hosts", DefaultStaticHosts, "fallback hosts as inventory-id:client-id (comma-separated)")
	pflag.String("dispatch.mode", DispatchModeHTTP, "dispatch mode: http or simulated")
	pflag.String("dispatch.url", DefaultDispatchURL, "connector service job endpoint")
	pflag.Duration("dispatch.timeout", DefaultDispatchTimeout, "timeout of a single host dispatch")
	pflag.Duration("dispatch.simulated-delay", DefaultSimulatedDelay, "delay before a simulated host reports")
	pflag.Duration("retention.run-ttl", DefaultRunTTL, "how long runs and their results are kept")
	pflag.String("bus.driver", BusDriverKafka, "message bus driver: kafka or memory")
	pflag.StringSlice("bus.brokers", []string{DefaultBroker}, "kafka brokers (comma-separated)")
	pflag.String("config", "", "config file path")
}

func LoadManagerConfig(configFile string) (*ManagerConfig, error) {
	finder := locafero.Finder{
		Paths: []string{".", DefaultConfigDir},
		Names: locafero.NameWithExtensions("manager", viper.SupportedExts...),
		Type:  locafero.FileTypeFile,
	}

	if configFile != "" {
		path, file := filepath.Split(configFile)
		finder.Paths = []string{path}
		finder.Names = []string{file}
	}

	v := viper.NewWithOptions(viper.WithFinder(finder))

	v.SetDefault("address", DefaultListenAddress)
	v.SetDefault("port", DefaultListenPort)
	v.SetDefault("public-url", DefaultPublicURL)

	v.SetDefault("api.tls.enabled", false)
	v.SetDefault("api.tls.cert", "")
	v.SetDefault("api.tls.key", "")

	v.SetDefault("database.dir", DatabaseDir)
	v.SetDefault("database.in-memory", false)

	v.SetDefault("retention.run-ttl", DefaultRunTTL)
	v.SetDefault("retention.correlation-ttl", DefaultCorrelationTTL)
	v.SetDefault("retention.sweep-interval", SweepInterval)

	v.SetDefault("state.default-file", "")
	v.SetDefault("inventory.static-hosts", DefaultStaticHosts)

	v.SetDefault("dispatch.mode", DispatchModeHTTP)
	v.SetDefault("dispatch.url", DefaultDispatchURL)
	v.SetDefault("dispatch.timeout", DefaultDispatchTimeout)
	v.SetDefault("dispatch.directive", DefaultDirective)
	v.SetDefault("dispatch.headers", map[string]string{})
	v.SetDefault("dispatch.simulated-delay", DefaultSimulatedDelay)

	v.SetDefault("bus.driver", BusDriverKafka)
	v.SetDefault("bus.brokers", []string{DefaultBroker})
	v.SetDefault("bus.connectivity-topic", ConnectivityTopic)
	v.SetDefault("bus.completion-topic", CompletionTopic)
	v.SetDefault("bus.connectivity-group", ConnectivityConsumerName)
	v.SetDefault("bus.completion-group", CompletionConsumerName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &errViperConfigNotFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	var config ManagerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
