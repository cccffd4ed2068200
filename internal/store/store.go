//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package store reads the base relations from a database and writes result
// tables and run metadata back to it.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
	"github.com/pgEdge/pgedge-basketinsights/internal/db"
)

// ErrUnknownSource is returned by Open for an unregistered source name.
var ErrUnknownSource = errors.New("unknown source")

// MetadataTable holds seed and run key/value metadata.
const MetadataTable = db.MetadataTable

// Base relation tables.
const (
	TableDepartments   = "departments"
	TableAisles        = "aisles"
	TableProducts      = "products"
	TableOrders        = "orders"
	TableOrderProducts = "order_products"
)

// Result tables.
const (
	TableProductRepurchase    = "product_repurchase_cycle"
	TableProductOrderSize     = "product_order_size"
	TableDepartmentRepurchase = "department_repurchase_cycle"
	TableDepartmentOrderSize  = "department_order_size"
	TableCoPurchase           = "copurchase"
	TableCoPurchaseExport     = "copurchase_export"
	TableBenchmarks           = "benchmarks"
)

// Config selects and addresses a database.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string

	// Schema is the PostgreSQL schema holding every table.
	Schema string

	// SQLitePath is the SQLite database file; ":memory:" is allowed.
	SQLitePath string
}

// Source loads a snapshot of the base relations.
type Source interface {
	// Name returns the source driver name.
	Name() string

	// Load reads all five base relations.
	Load(ctx context.Context) (*dataset.Snapshot, error)
}

// Store is a Source that can also be seeded and receive results.
type Store interface {
	Source

	// CreateSchema creates the base, result and metadata tables.
	CreateSchema(ctx context.Context) error

	// DropSchema drops every table the store manages.
	DropSchema(ctx context.Context) error

	// Seed writes a snapshot into the base tables.
	Seed(ctx context.Context, snap *dataset.Snapshot, cfg datagen.BatchConfig) error

	// WriteResults replaces every result table in one transaction.
	// Statistics are written rounded to precision decimals.
	WriteResults(ctx context.Context, res *analysis.Results, precision int) error

	// SaveMetadata upserts key/value metadata.
	SaveMetadata(ctx context.Context, kv map[string]string) error

	// Metadata returns all metadata. It is empty if the table does not exist.
	Metadata(ctx context.Context) (map[string]string, error)

	// Close releases the connection.
	Close()
}

// Opener creates a Store from configuration.
type Opener func(ctx context.Context, cfg Config) (Store, error)

var (
	registry = make(map[string]Opener)
	mu       sync.RWMutex
)

// Register adds a source driver to the registry.
func Register(name string, open Opener) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = open
}

// Open connects to the named source.
func Open(ctx context.Context, name string, cfg Config) (Store, error) {
	mu.RLock()
	open, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return open(ctx, cfg)
}

// List returns all registered source names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
