// Package engine resolves engine ids to live connections. A deployment
// declares its target engines in a JSON catalog file; each entry names the
// DDL dialect to render and the connection settings for one of two executor
// kinds: "sql" (any database/sql driver, addressed through sqlx) or
// "bigquery" (the cloud client, since BigQuery speaks no wire SQL protocol).
//
// The catalog is immutable after loading. Connections are opened per upload
// and closed with it; uploads are long streaming operations, so pooling
// across them buys nothing and keeps failure domains separate.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tableport/tableport/internal/core"
)

// Executor kinds.
const (
	KindSQL      = "sql"
	KindBigQuery = "bigquery"
)

// Config declares one target engine.
type Config struct {
	ID      string `json:"id"`
	Dialect string `json:"dialect"`
	Kind    string `json:"kind"`

	// sql kind: database/sql driver name and its DSN. The driver must be
	// linked into the binary (the entrypoint blank-imports duckdb and
	// clickhouse; add more there as needed).
	Driver string `json:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty"`

	// bigquery kind.
	Project         string `json:"project,omitempty"`
	Dataset         string `json:"dataset,omitempty"`
	CredentialsFile string `json:"credentialsFile,omitempty"`
}

// Validate checks the declaration is complete for its kind.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("engine id is required")
	}
	if c.Dialect == "" {
		return fmt.Errorf("engine %s: dialect is required", c.ID)
	}
	switch c.Kind {
	case KindSQL:
		if c.Driver == "" || c.DSN == "" {
			return fmt.Errorf("engine %s: sql engines need driver and dsn", c.ID)
		}
	case KindBigQuery:
		if c.Project == "" || c.Dataset == "" {
			return fmt.Errorf("engine %s: bigquery engines need project and dataset", c.ID)
		}
	case "":
		return fmt.Errorf("engine %s: kind is required", c.ID)
	default:
		return fmt.Errorf("engine %s: unknown kind %q", c.ID, c.Kind)
	}
	return nil
}

// Engine is one catalog entry. It satisfies core.Engine.
type Engine struct {
	cfg Config
}

func (e *Engine) ID() string { return e.cfg.ID }

func (e *Engine) Dialect() string { return e.cfg.Dialect }

// Executor opens a fresh connection to the engine.
func (e *Engine) Executor(ctx context.Context) (core.Executor, error) {
	switch e.cfg.Kind {
	case KindSQL:
		return newSQLExecutor(ctx, e.cfg)
	case KindBigQuery:
		return newBigQueryExecutor(ctx, e.cfg)
	default:
		return nil, fmt.Errorf("engine %s: unknown kind %q", e.cfg.ID, e.cfg.Kind)
	}
}

// Catalog is the set of configured engines, keyed by id. It satisfies
// core.EngineCatalog.
type Catalog struct {
	engines map[string]*Engine
	ids     []string
}

// NewCatalog validates the configs and indexes them by id.
func NewCatalog(cfgs []Config) (*Catalog, error) {
	c := &Catalog{engines: make(map[string]*Engine, len(cfgs))}
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.engines[cfg.ID]; dup {
			return nil, fmt.Errorf("engine %s: duplicate id", cfg.ID)
		}
		c.engines[cfg.ID] = &Engine{cfg: cfg}
		c.ids = append(c.ids, cfg.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// catalogFile is the on-disk shape of the engines file.
type catalogFile struct {
	Engines []Config `json:"engines"`
}

// LoadCatalog reads the engines JSON file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engines file: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse engines file %s: %w", path, err)
	}
	if len(file.Engines) == 0 {
		return nil, fmt.Errorf("engines file %s declares no engines", path)
	}
	return NewCatalog(file.Engines)
}

func (c *Catalog) Engine(id string) (core.Engine, bool) {
	e, ok := c.engines[id]
	return e, ok
}

func (c *Catalog) EngineIDs() []string {
	return c.ids
}
