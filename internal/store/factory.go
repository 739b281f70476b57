package store

import (
	"fmt"
	"time"
)

// Config selects and configures a store backend.
type Config struct {
	// Driver is the store backend: "sqlite" (default) or "mysql".
	Driver string

	// Path is the SQLite database file path. Empty or ":memory:" selects an
	// in-memory database. Only used when Driver is "sqlite".
	Path string

	// Host, Port, Database, Username and Password locate the MySQL server.
	// Only used when Driver is "mysql".
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Connection pool settings for MySQL.
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	ConnectionTimeout time.Duration
}

// New creates the store backend selected by config.Driver.
func New(config Config) (*SQLStore, error) {
	switch config.Driver {
	case "", "sqlite":
		return NewSQLite(config.Path)
	case "mysql":
		return NewMySQL(config)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q (supported: sqlite, mysql)", config.Driver)
	}
}
