//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
	"github.com/pgEdge/pgedge-basketinsights/internal/db"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
)

// PostgresSource is the registry name of the PostgreSQL store.
const PostgresSource = "postgres"

func init() {
	Register(PostgresSource, func(ctx context.Context, cfg Config) (Store, error) {
		pool, err := db.Connect(ctx, cfg.Connection)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool, cfg.Schema), nil
	})
}

// Postgres reads and writes the basket tables through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	schema string
	log    zerolog.Logger
}

// NewPostgres wraps an open pool. The store takes ownership of the pool.
func NewPostgres(pool *pgxpool.Pool, schema string) *Postgres {
	return &Postgres{
		pool:   pool,
		schema: schema,
		log:    logging.Component("store").With().Str("source", PostgresSource).Logger(),
	}
}

// Name returns the source driver name.
func (p *Postgres) Name() string {
	return PostgresSource
}

// Pool returns the underlying connection pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) table(name string) string {
	return db.Table(p.schema, name)
}

func (p *Postgres) ident(name string) pgx.Identifier {
	if p.schema == "" {
		return pgx.Identifier{name}
	}
	return pgx.Identifier{p.schema, name}
}

// CreateSchema creates the base, result and metadata tables.
func (p *Postgres) CreateSchema(ctx context.Context) error {
	if p.schema != "" {
		sql := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{p.schema}.Sanitize())
		if _, err := p.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", p.schema, err)
		}
	}

	for _, def := range slices.Concat(baseTables, resultTables()) {
		sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n)", p.table(def.name), def.columns)
		if _, err := p.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to create table %s: %w", def.name, err)
		}
	}

	for _, ix := range baseIndexes {
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			pgx.Identifier{ix.name}.Sanitize(), p.table(ix.table), ix.columns)
		if _, err := p.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to create index %s: %w", ix.name, err)
		}
	}

	if err := db.CreateMetadataTable(ctx, p.pool, p.schema); err != nil {
		return err
	}

	p.log.Info().Str("schema", p.schema).Msg("Schema created")
	return nil
}

// DropSchema drops every table the store manages. The schema itself is kept.
func (p *Postgres) DropSchema(ctx context.Context) error {
	tables := ResultTables()
	for i := len(baseTables) - 1; i >= 0; i-- {
		tables = append(tables, baseTables[i].name)
	}

	for _, name := range tables {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", p.table(name))
		if _, err := p.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	if err := db.DropMetadata(ctx, p.pool, p.schema); err != nil {
		return fmt.Errorf("failed to drop metadata: %w", err)
	}

	p.log.Info().Str("schema", p.schema).Msg("Schema dropped")
	return nil
}

// Seed writes a snapshot into the base tables with batched multi-row inserts.
func (p *Postgres) Seed(ctx context.Context, snap *dataset.Snapshot, cfg datagen.BatchConfig) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = datagen.DefaultBatchConfig().BatchSize
	}

	steps := []struct {
		table   string
		columns string
		n       int
		row     func(i int) string
	}{
		{TableDepartments, "(department_id, department)", len(snap.Departments), func(i int) string {
			d := snap.Departments[i]
			return fmt.Sprintf("(%d, '%s')", d.ID, escapeSingleQuote(d.Name))
		}},
		{TableAisles, "(aisle_id, aisle)", len(snap.Aisles), func(i int) string {
			a := snap.Aisles[i]
			return fmt.Sprintf("(%d, '%s')", a.ID, escapeSingleQuote(a.Name))
		}},
		{TableProducts, "(product_id, product_name, aisle_id, department_id)", len(snap.Products), func(i int) string {
			pr := snap.Products[i]
			return fmt.Sprintf("(%d, '%s', %d, %d)", pr.ID, escapeSingleQuote(pr.Name), pr.AisleID, pr.DepartmentID)
		}},
		{TableOrders, "(order_id, user_id, order_number, days_since_prior_order)", len(snap.Orders), func(i int) string {
			o := snap.Orders[i]
			return fmt.Sprintf("(%d, %d, %d, %s)", o.ID, o.CustomerID, o.Number, sqlFloat(o.DaysSincePrior))
		}},
		{TableOrderProducts, "(order_id, product_id, add_to_cart_order, reordered)", len(snap.Lines), func(i int) string {
			l := snap.Lines[i]
			return fmt.Sprintf("(%d, %d, %d, %t)", l.OrderID, l.ProductID, l.AddToCartOrder, l.Reordered)
		}},
	}

	for _, step := range steps {
		progress := datagen.NewProgressReporter(step.table, int64(step.n), cfg.ProgressInterval)
		batch := make([]string, 0, cfg.BatchSize)

		for i := 0; i < step.n; i++ {
			batch = append(batch, step.row(i))
			if len(batch) >= cfg.BatchSize {
				if err := p.executeBatchInsert(ctx, step.table, step.columns, batch); err != nil {
					return fmt.Errorf("failed to seed %s: %w", step.table, err)
				}
				progress.Update(int64(len(batch)))
				batch = batch[:0]
			}
		}
		if err := p.executeBatchInsert(ctx, step.table, step.columns, batch); err != nil {
			return fmt.Errorf("failed to seed %s: %w", step.table, err)
		}
		progress.Update(int64(len(batch)))
		progress.Done()
	}

	return nil
}

func (p *Postgres) executeBatchInsert(ctx context.Context, table, columns string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	sql := fmt.Sprintf("INSERT INTO %s %s VALUES %s", p.table(table), columns, strings.Join(values, ", "))
	_, err := p.pool.Exec(ctx, sql)
	return err
}

func escapeSingleQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func sqlFloat(v *float64) string {
	if v == nil {
		return "NULL"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// Load reads all five base relations.
func (p *Postgres) Load(ctx context.Context) (*dataset.Snapshot, error) {
	snap := &dataset.Snapshot{}
	var err error

	snap.Departments, err = queryAll(ctx, p.pool,
		fmt.Sprintf("SELECT department_id, department FROM %s ORDER BY department_id", p.table(TableDepartments)),
		func(rows pgx.Rows) (dataset.Department, error) {
			var d dataset.Department
			err := rows.Scan(&d.ID, &d.Name)
			return d, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}

	snap.Aisles, err = queryAll(ctx, p.pool,
		fmt.Sprintf("SELECT aisle_id, aisle FROM %s ORDER BY aisle_id", p.table(TableAisles)),
		func(rows pgx.Rows) (dataset.Aisle, error) {
			var a dataset.Aisle
			err := rows.Scan(&a.ID, &a.Name)
			return a, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load aisles: %w", err)
	}

	snap.Products, err = queryAll(ctx, p.pool,
		fmt.Sprintf("SELECT product_id, product_name, aisle_id, department_id FROM %s ORDER BY product_id",
			p.table(TableProducts)),
		func(rows pgx.Rows) (dataset.Product, error) {
			var pr dataset.Product
			err := rows.Scan(&pr.ID, &pr.Name, &pr.AisleID, &pr.DepartmentID)
			return pr, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	snap.Orders, err = queryAll(ctx, p.pool,
		fmt.Sprintf("SELECT order_id, user_id, order_number, days_since_prior_order FROM %s ORDER BY order_id",
			p.table(TableOrders)),
		func(rows pgx.Rows) (dataset.Order, error) {
			var o dataset.Order
			err := rows.Scan(&o.ID, &o.CustomerID, &o.Number, &o.DaysSincePrior)
			return o, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	snap.Lines, err = queryAll(ctx, p.pool,
		fmt.Sprintf("SELECT order_id, product_id, add_to_cart_order, reordered FROM %s ORDER BY order_id, add_to_cart_order",
			p.table(TableOrderProducts)),
		func(rows pgx.Rows) (dataset.OrderLine, error) {
			var l dataset.OrderLine
			err := rows.Scan(&l.OrderID, &l.ProductID, &l.AddToCartOrder, &l.Reordered)
			return l, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load order_products: %w", err)
	}

	p.log.Info().
		Int("orders", len(snap.Orders)).
		Int("lines", len(snap.Lines)).
		Int("products", len(snap.Products)).
		Int("departments", len(snap.Departments)).
		Int("aisles", len(snap.Aisles)).
		Msg("Snapshot loaded")

	return snap, nil
}

func queryAll[T any](ctx context.Context, q db.DB, sql string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// WriteResults truncates and refills every result table in one
// transaction, so readers see either the previous run or this one.
func (p *Postgres) WriteResults(ctx context.Context, res *analysis.Results, precision int) error {
	rounded := res.Rounded(precision)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, name := range ResultTables() {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", p.table(name))); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", name, err)
		}
	}

	for _, mt := range metricTables {
		set, _ := rounded.Set(mt.grouping, mt.measure)
		if err := p.copyRows(ctx, tx, mt.table, metricColumns(mt.grouping), len(set.Results), func(i int) []any {
			return metricValues(set.Results[i])
		}); err != nil {
			return err
		}
	}

	if err := p.copyRows(ctx, tx, TableCoPurchase, coPurchaseColumns, len(rounded.CoPurchase), func(i int) []any {
		return coPurchaseValues(rounded.CoPurchase[i])
	}); err != nil {
		return err
	}

	if err := p.copyRows(ctx, tx, TableCoPurchaseExport, exportColumns, len(rounded.Assembled), func(i int) []any {
		return exportValues(rounded.Assembled[i])
	}); err != nil {
		return err
	}

	benchmarks := rounded.Benchmarks()
	if err := p.copyRows(ctx, tx, TableBenchmarks, benchmarkColumns, len(benchmarks), func(i int) []any {
		return benchmarkValues(benchmarks[i])
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	p.log.Info().
		Int("copurchase_rows", len(rounded.CoPurchase)).
		Int("precision", precision).
		Msg("Result tables written")
	return nil
}

func (p *Postgres) copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}
	copied, err := tx.CopyFrom(ctx, p.ident(table), columns, pgx.CopyFromSlice(n, func(i int) ([]any, error) {
		return row(i), nil
	}))
	if err != nil {
		return fmt.Errorf("failed to copy into %s: %w", table, err)
	}

	p.log.Debug().Str("table", table).Int64("rows", copied).Msg("Copied rows")
	return nil
}

// SaveMetadata upserts key/value metadata.
func (p *Postgres) SaveMetadata(ctx context.Context, kv map[string]string) error {
	return db.SaveMetadata(ctx, p.pool, p.schema, kv)
}

// Metadata returns all metadata.
func (p *Postgres) Metadata(ctx context.Context) (map[string]string, error) {
	return db.GetAllMetadata(ctx, p.pool, p.schema)
}
