package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okanlawon/pawdispatch/internal/retry"
)

const (
	DefaultConfigFileName = ".pawdispatch.yaml"
	DefaultListenAddr     = ":8080"
	DefaultServerURL      = "http://localhost:8080"
)

type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	PostgresURL string `yaml:"postgres_url"`
	RedisAddr   string `yaml:"redis_addr"`
	NATSAddr    string `yaml:"nats_addr"`
	LogFile     string `yaml:"log_file"`
	ClinicsFile string `yaml:"clinics_file"`
}

type PushProviderConfig struct {
	Endpoint  string `yaml:"endpoint"`
	ServerKey string `yaml:"server_key"`
}

type MessagingProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Secret   string `yaml:"secret"`
}

type ProvidersConfig struct {
	Push      PushProviderConfig      `yaml:"push"`
	Messaging MessagingProviderConfig `yaml:"messaging"`
}

type DispatchConfig struct {
	SearchRadiusMeters float64       `yaml:"search_radius_meters"`
	MaxClinics         int           `yaml:"max_clinics"`
	MaxConcurrentSends int           `yaml:"max_concurrent_sends"`
	SendTimeout        time.Duration `yaml:"send_timeout"`
}

type ClientConfig struct {
	ServerURL     string        `yaml:"server_url"`
	QueuePath     string        `yaml:"queue_path"`
	DrainInterval time.Duration `yaml:"drain_interval"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// MonitoringConfig configures the optional forwarder that replays dispatch
// outcome events from the broker to an operator webhook.
type MonitoringConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Secret     string `yaml:"secret"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Retry      retry.Policy     `yaml:"retry"`
	Client     ClientConfig     `yaml:"client"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
			LogFile:    "pawdispatch.log",
		},
		Dispatch: DispatchConfig{
			SearchRadiusMeters: 25000,
			MaxClinics:         5,
			MaxConcurrentSends: 8,
			SendTimeout:        10 * time.Second,
		},
		Retry: retry.DefaultPolicy(),
		Client: ClientConfig{
			ServerURL:     DefaultServerURL,
			DrainInterval: 30 * time.Second,
			ProbeInterval: 10 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Client.ServerURL == "" {
		return fmt.Errorf("client.server_url is required")
	}
	if c.Dispatch.MaxConcurrentSends <= 0 {
		return fmt.Errorf("dispatch.max_concurrent_sends must be positive")
	}
	if c.Dispatch.SendTimeout <= 0 {
		return fmt.Errorf("dispatch.send_timeout must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	return nil
}

// Load reads configuration from path (or ~/.pawdispatch.yaml when empty),
// falling back to defaults for a missing file, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, DefaultConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("PAWDISPATCH_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if dsn := os.Getenv("PAWDISPATCH_POSTGRES_URL"); dsn != "" {
		cfg.Server.PostgresURL = dsn
	}
	if addr := os.Getenv("PAWDISPATCH_REDIS_ADDR"); addr != "" {
		cfg.Server.RedisAddr = addr
	}
	if addr := os.Getenv("PAWDISPATCH_NATS_ADDR"); addr != "" {
		cfg.Server.NATSAddr = addr
	}
	if url := os.Getenv("PAWDISPATCH_PUSH_ENDPOINT"); url != "" {
		cfg.Providers.Push.Endpoint = url
	}
	if key := os.Getenv("PAWDISPATCH_PUSH_SERVER_KEY"); key != "" {
		cfg.Providers.Push.ServerKey = key
	}
	if url := os.Getenv("PAWDISPATCH_MESSAGING_ENDPOINT"); url != "" {
		cfg.Providers.Messaging.Endpoint = url
	}
	if tok := os.Getenv("PAWDISPATCH_MESSAGING_TOKEN"); tok != "" {
		cfg.Providers.Messaging.Token = tok
	}
	if secret := os.Getenv("PAWDISPATCH_MESSAGING_SECRET"); secret != "" {
		cfg.Providers.Messaging.Secret = secret
	}
	if url := os.Getenv("PAWDISPATCH_SERVER_URL"); url != "" {
		cfg.Client.ServerURL = url
	}
	if url := os.Getenv("PAWDISPATCH_MONITOR_WEBHOOK_URL"); url != "" {
		cfg.Monitoring.WebhookURL = url
	}
	if secret := os.Getenv("PAWDISPATCH_MONITOR_SECRET"); secret != "" {
		cfg.Monitoring.Secret = secret
	}
}
