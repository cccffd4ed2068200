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
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
)

// SQLiteSource is the registry name of the SQLite store.
const SQLiteSource = "sqlite"

func init() {
	Register(SQLiteSource, func(_ context.Context, cfg Config) (Store, error) {
		return OpenSQLite(cfg.SQLitePath)
	})
}

// SQLite reads and writes the basket tables in a SQLite file through gorm.
type SQLite struct {
	db  *gorm.DB
	log zerolog.Logger
}

// OpenSQLite opens or creates a SQLite database. ":memory:" gives a private
// in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	logging.Debug().Str("path", path).Msg("Opened sqlite database")

	return &SQLite{
		db:  gdb,
		log: logging.Component("store").With().Str("source", SQLiteSource).Logger(),
	}, nil
}

// Name returns the source driver name.
func (s *SQLite) Name() string {
	return SQLiteSource
}

// Close closes the database.
func (s *SQLite) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// CreateSchema creates the base, result and metadata tables.
func (s *SQLite) CreateSchema(ctx context.Context) error {
	tx := s.db.WithContext(ctx)

	models := append(baseModels(),
		&coPurchaseModel{}, &coPurchaseExportModel{}, &benchmarkModel{}, &metadataModel{})
	if err := tx.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	for _, mt := range metricTables {
		if err := tx.Table(mt.table).AutoMigrate(metricModel(mt.grouping)); err != nil {
			return fmt.Errorf("migration of %s failed: %w", mt.table, err)
		}
	}

	s.log.Info().Msg("Schema created")
	return nil
}

// DropSchema drops every table the store manages.
func (s *SQLite) DropSchema(ctx context.Context) error {
	tables := append(ResultTables(),
		TableOrderProducts, TableOrders, TableProducts, TableAisles, TableDepartments, MetadataTable)

	names := make([]any, len(tables))
	for i, t := range tables {
		names[i] = t
	}
	if err := s.db.WithContext(ctx).Migrator().DropTable(names...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}

	s.log.Info().Msg("Schema dropped")
	return nil
}

// Seed writes a snapshot into the base tables in one transaction.
func (s *SQLite) Seed(ctx context.Context, snap *dataset.Snapshot, cfg datagen.BatchConfig) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = datagen.DefaultBatchConfig().BatchSize
	}
	deps, aisles, products, orders, lines := snapshotModels(snap)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			table string
			n     int
			rows  any
		}{
			{TableDepartments, len(deps), deps},
			{TableAisles, len(aisles), aisles},
			{TableProducts, len(products), products},
			{TableOrders, len(orders), orders},
			{TableOrderProducts, len(lines), lines},
		}

		for _, step := range steps {
			progress := datagen.NewProgressReporter(step.table, int64(step.n), cfg.ProgressInterval)
			if step.n > 0 {
				if err := tx.CreateInBatches(step.rows, cfg.BatchSize).Error; err != nil {
					return fmt.Errorf("failed to seed %s: %w", step.table, err)
				}
			}
			progress.Update(int64(step.n))
			progress.Done()
		}
		return nil
	})
}

// Load reads all five base relations.
func (s *SQLite) Load(ctx context.Context) (*dataset.Snapshot, error) {
	tx := s.db.WithContext(ctx)

	var (
		deps     []departmentModel
		aisles   []aisleModel
		products []productModel
		orders   []orderModel
		lines    []orderProductModel
	)
	if err := tx.Order("department_id").Find(&deps).Error; err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}
	if err := tx.Order("aisle_id").Find(&aisles).Error; err != nil {
		return nil, fmt.Errorf("failed to load aisles: %w", err)
	}
	if err := tx.Order("product_id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if err := tx.Order("order_id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if err := tx.Order("order_id, add_to_cart_order").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to load order_products: %w", err)
	}

	snap := &dataset.Snapshot{
		Departments: make([]dataset.Department, len(deps)),
		Aisles:      make([]dataset.Aisle, len(aisles)),
		Products:    make([]dataset.Product, len(products)),
		Orders:      make([]dataset.Order, len(orders)),
		Lines:       make([]dataset.OrderLine, len(lines)),
	}
	for i, d := range deps {
		snap.Departments[i] = dataset.Department{ID: d.DepartmentID, Name: d.Department}
	}
	for i, a := range aisles {
		snap.Aisles[i] = dataset.Aisle{ID: a.AisleID, Name: a.Aisle}
	}
	for i, p := range products {
		snap.Products[i] = dataset.Product{ID: p.ProductID, Name: p.ProductName, AisleID: p.AisleID, DepartmentID: p.DepartmentID}
	}
	for i, o := range orders {
		snap.Orders[i] = dataset.Order{ID: o.OrderID, CustomerID: o.UserID, Number: o.OrderNumber, DaysSincePrior: o.DaysSincePriorOrder}
	}
	for i, l := range lines {
		snap.Lines[i] = dataset.OrderLine{OrderID: l.OrderID, ProductID: l.ProductID, AddToCartOrder: l.AddToCartOrder, Reordered: l.Reordered}
	}

	s.log.Info().
		Int("orders", len(snap.Orders)).
		Int("lines", len(snap.Lines)).
		Int("products", len(snap.Products)).
		Msg("Snapshot loaded")

	return snap, nil
}

// WriteResults replaces every result table in one transaction.
func (s *SQLite) WriteResults(ctx context.Context, res *analysis.Results, precision int) error {
	rounded := res.Rounded(precision)
	const batch = 500

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range ResultTables() {
			if err := tx.Exec("DELETE FROM ?", clause.Table{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", name, err)
			}
		}

		for _, mt := range metricTables {
			set, _ := rounded.Set(mt.grouping, mt.measure)
			if len(set.Results) == 0 {
				continue
			}
			if err := tx.Table(mt.table).CreateInBatches(metricRows(mt.grouping, set.Results), batch).Error; err != nil {
				return fmt.Errorf("failed to write %s: %w", mt.table, err)
			}
		}

		if len(rounded.CoPurchase) > 0 {
			rows := make([]coPurchaseModel, len(rounded.CoPurchase))
			for i, r := range rounded.CoPurchase {
				rows[i] = toCoPurchaseModel(r)
			}
			if err := tx.CreateInBatches(rows, batch).Error; err != nil {
				return fmt.Errorf("failed to write %s: %w", TableCoPurchase, err)
			}
		}

		if len(rounded.Assembled) > 0 {
			rows := make([]coPurchaseExportModel, len(rounded.Assembled))
			for i, r := range rounded.Assembled {
				rows[i] = toExportModel(r)
			}
			if err := tx.CreateInBatches(rows, batch).Error; err != nil {
				return fmt.Errorf("failed to write %s: %w", TableCoPurchaseExport, err)
			}
		}

		benchmarks := rounded.Benchmarks()
		rows := make([]benchmarkModel, len(benchmarks))
		for i, b := range benchmarks {
			rows[i] = toBenchmarkModel(b)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to write %s: %w", TableBenchmarks, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int("copurchase_rows", len(rounded.CoPurchase)).
		Int("precision", precision).
		Msg("Result tables written")
	return nil
}

// SaveMetadata upserts key/value metadata.
func (s *SQLite) SaveMetadata(ctx context.Context, kv map[string]string) error {
	tx := s.db.WithContext(ctx)
	if err := tx.AutoMigrate(&metadataModel{}); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	if len(kv) == 0 {
		return nil
	}

	rows := make([]metadataModel, 0, len(kv))
	for k, v := range kv {
		rows = append(rows, metadataModel{Key: k, Value: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// Metadata returns all metadata.
func (s *SQLite) Metadata(ctx context.Context) (map[string]string, error) {
	tx := s.db.WithContext(ctx)
	metadata := make(map[string]string)
	if !tx.Migrator().HasTable(&metadataModel{}) {
		return metadata, nil
	}

	var rows []metadataModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		metadata[r.Key] = r.Value
	}
	return metadata, nil
}
