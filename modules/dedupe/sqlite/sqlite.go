// Package sqlite provides an optional persistent dedupe store. When loaded,
// the Telegram channel uses it instead of the in-memory store, so update ids
// stay remembered across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperlinkspace/telegate/internal/core"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "dedupe.db"
)

// Config holds the SQLite dedupe module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/dedupe.db.
	Path string `yaml:"path"`

	// TTL is the dedupe window. Defaults to 5m.
	TTL time.Duration `yaml:"ttl"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

// Module wires the persistent store into the service registry under
// "dedupe.store".
type Module struct {
	config Config
	logger *slog.Logger
	db     *sql.DB
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "dedupe.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.config.defaults()

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}
	if dir := filepath.Dir(m.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("sqlite dedupe: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", m.config.Path)
	if err != nil {
		return fmt.Errorf("sqlite dedupe: open %s: %w", m.config.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite dedupe: enable WAL: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", m.config.BusyTimeout)); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite dedupe: set busy_timeout: %w", err)
	}

	store, err := NewStore(db, m.config.TTL, m.logger)
	if err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.store = store
	ctx.RegisterService("dedupe.store", store)
	m.logger.Info("persistent dedupe store ready", "path", m.config.Path)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.BusyTimeout < 0 {
		return fmt.Errorf("sqlite dedupe: busy_timeout must be non-negative, got %d", m.config.BusyTimeout)
	}
	if m.config.TTL < 0 {
		return fmt.Errorf("sqlite dedupe: ttl must be non-negative, got %s", m.config.TTL)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
