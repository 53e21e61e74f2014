// Package config loads the environment configuration for one invocation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Default values.
const (
	DefaultPairAddress = "0xead0d2751d20c83d6ee36f6004f2aa17637809cf"
	DefaultSubgraphURL = "https://graph.pulsechain.com/subgraphs/name/pulsechain/pulsexv2"
	MaxPageSize        = 1000
)

// ErrInvalid is wrapped by every error Load returns.
var ErrInvalid = errors.New("invalid configuration")

// Config is resolved once per invocation and discarded afterwards.
type Config struct {
	Storage  StorageConfig
	Sync     SyncConfig
	Export   ExportConfig
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type StorageConfig struct {
	URL         string `envconfig:"STORAGE_URL"`
	PostgresURL string `envconfig:"POSTGRES_URL"`
	ServiceKey  string `envconfig:"STORAGE_SERVICE_KEY"`
}

type SyncConfig struct {
	PairAddress     string        `envconfig:"PAIR_ADDRESS"         default:"0xead0d2751d20c83d6ee36f6004f2aa17637809cf"`
	SubgraphURL     string        `envconfig:"SUBGRAPH_URL"         default:"https://graph.pulsechain.com/subgraphs/name/pulsechain/pulsexv2"`
	StartTimestamp  int64         `envconfig:"SYNC_START_TIMESTAMP" default:"0"`
	PageSize        int           `envconfig:"SYNC_PAGE_SIZE"       default:"50"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT"     default:"30s"`
}

type ExportConfig struct {
	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN"`
	BatchSize     int    `envconfig:"EXPORT_BATCH_SIZE" default:"500"`
	// Lookback re-reads this many seq_ids below the mirror watermark on every
	// export, picking up rows whose transaction committed after a later one.
	Lookback int64 `envconfig:"EXPORT_LOOKBACK" default:"200"`
}

// Load reads an optional .env file, then the process environment, and
// validates the result. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadInMemory is Load for a process that keeps swaps in memory: the
// storage URL and service key are not required.
func LoadInMemory() (*Config, error) {
	return LoadFileInMemory(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is ignored.
func LoadFile(envFile string) (*Config, error) {
	return loadFile(envFile, true)
}

// LoadFileInMemory is LoadInMemory with an explicit env file path.
func LoadFileInMemory(envFile string) (*Config, error) {
	return loadFile(envFile, false)
}

func loadFile(envFile string, requireStorage bool) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: load %s: %w", ErrInvalid, envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if cfg.Storage.URL == "" {
		cfg.Storage.URL = cfg.Storage.PostgresURL
	}
	cfg.Sync.PairAddress = strings.ToLower(strings.TrimSpace(cfg.Sync.PairAddress))

	if err := cfg.validate(requireStorage); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireStorage bool) error {
	var problems []string

	if requireStorage && c.Storage.URL == "" {
		problems = append(problems, "STORAGE_URL is required")
	}
	if requireStorage && c.Storage.ServiceKey == "" {
		problems = append(problems, "STORAGE_SERVICE_KEY is required")
	}
	if c.Sync.PairAddress == "" {
		problems = append(problems, "PAIR_ADDRESS must not be empty")
	}
	if c.Sync.SubgraphURL == "" {
		problems = append(problems, "SUBGRAPH_URL must not be empty")
	}
	if c.Sync.StartTimestamp < 0 {
		problems = append(problems, "SYNC_START_TIMESTAMP must be >= 0")
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > MaxPageSize {
		problems = append(problems, fmt.Sprintf("SYNC_PAGE_SIZE must be in 1..%d", MaxPageSize))
	}
	if c.Sync.UpstreamTimeout <= 0 {
		problems = append(problems, "UPSTREAM_TIMEOUT must be positive")
	}
	if c.Export.BatchSize < 1 {
		problems = append(problems, "EXPORT_BATCH_SIZE must be positive")
	}
	if c.Export.Lookback < 0 || c.Export.Lookback >= int64(c.Export.BatchSize) {
		problems = append(problems, "EXPORT_LOOKBACK must be in 0..EXPORT_BATCH_SIZE-1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RequireClickHouse reports an error when the analytics export is not configured.
func (c *Config) RequireClickHouse() error {
	if c.Export.ClickHouseDSN == "" {
		return fmt.Errorf("%w: CLICKHOUSE_DSN is required for export", ErrInvalid)
	}
	return nil
}
