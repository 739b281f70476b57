package txnbatcher

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/txn-batcher/internal/store"
)

// Config is the root configuration for a batching queue.
type Config struct {
	// Store configures the SQL store backend.
	Store StoreConfig `yaml:"store" json:"store"`

	// Batch configures batching behaviour.
	Batch BatchConfig `yaml:"batch" json:"batch"`
}

// StoreConfig selects and configures the SQL store backend.
type StoreConfig struct {
	// Driver is the store backend: "sqlite" (default) or "mysql".
	Driver string `yaml:"driver" json:"driver"`

	// Path is the SQLite database file path. Empty or ":memory:" uses an
	// in-memory database.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Host is the MySQL host address.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the MySQL port number.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Database is the MySQL database name.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Username is the MySQL username.
	Username string `yaml:"username,omitempty" json:"username,omitempty"`

	// Password is the MySQL password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// MaxOpenConns is the maximum number of open connections to MySQL.
	MaxOpenConns int `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time,omitempty" json:"conn_max_idle_time,omitempty"`

	// ConnectionTimeout is the timeout for establishing connections.
	ConnectionTimeout time.Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`
}

// BatchConfig configures batching behaviour.
type BatchConfig struct {
	// ChunkSize is the maximum number of records applied in one transaction.
	// Larger chunks amortize transaction overhead further at the cost of
	// per-record latency.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// DrainRate is the maximum number of transactions per second.
	// Zero or negative disables rate limiting.
	DrainRate int `yaml:"drain_rate" json:"drain_rate"`

	// DefaultTTL is the default time-to-live applied by the Cache facade
	// when a Set call does not specify one. Zero means no expiry.
	DefaultTTL time.Duration `yaml:"default_ttl,omitempty" json:"default_ttl,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults: an
// in-memory SQLite store, 100 records per transaction and 50 transactions
// per second.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:            "sqlite",
			Path:              ":memory:",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Batch: BatchConfig{
			ChunkSize: 100,
			DrainRate: 50,
		},
	}
}

// LoadConfig reads a YAML configuration file. Fields absent from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// storeConfig maps the public configuration onto the store package's own.
func (c *Config) storeConfig() store.Config {
	return store.Config{
		Driver:            c.Store.Driver,
		Path:              c.Store.Path,
		Host:              c.Store.Host,
		Port:              c.Store.Port,
		Database:          c.Store.Database,
		Username:          c.Store.Username,
		Password:          c.Store.Password,
		MaxOpenConns:      c.Store.MaxOpenConns,
		MaxIdleConns:      c.Store.MaxIdleConns,
		ConnMaxLifetime:   c.Store.ConnMaxLifetime,
		ConnMaxIdleTime:   c.Store.ConnMaxIdleTime,
		ConnectionTimeout: c.Store.ConnectionTimeout,
	}
}
