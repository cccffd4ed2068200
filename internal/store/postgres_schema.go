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
	"fmt"
)

// tableDef is the column list of one table, in CREATE TABLE form.
type tableDef struct {
	name    string
	columns string
}

var baseTables = []tableDef{
	{TableDepartments, `
    department_id BIGINT PRIMARY KEY,
    department    TEXT NOT NULL`},
	{TableAisles, `
    aisle_id BIGINT PRIMARY KEY,
    aisle    TEXT NOT NULL`},
	{TableProducts, `
    product_id    BIGINT PRIMARY KEY,
    product_name  TEXT NOT NULL,
    aisle_id      BIGINT NOT NULL,
    department_id BIGINT NOT NULL`},
	{TableOrders, `
    order_id               BIGINT PRIMARY KEY,
    user_id                BIGINT NOT NULL,
    order_number           INTEGER NOT NULL,
    days_since_prior_order DOUBLE PRECISION`},
	{TableOrderProducts, `
    order_id          BIGINT NOT NULL,
    product_id        BIGINT NOT NULL,
    add_to_cart_order INTEGER NOT NULL,
    reordered         BOOLEAN NOT NULL DEFAULT false`},
}

const metricTableColumns = `
    %[1]s_id     BIGINT PRIMARY KEY,
    %[1]s_name   TEXT NOT NULL,
    mean         DOUBLE PRECISION NOT NULL,
    stddev       DOUBLE PRECISION NOT NULL,
    lift         DOUBLE PRECISION,
    zscore       DOUBLE PRECISION,
    sample_count INTEGER NOT NULL`

const coPurchaseTableColumns = `
    anchor_id           BIGINT NOT NULL,
    anchor_name         TEXT NOT NULL,
    co_product_id       BIGINT NOT NULL,
    co_product_name     TEXT NOT NULL,
    pair_count          INTEGER NOT NULL,
    anchor_total_orders BIGINT NOT NULL,
    anchor_percentage   DOUBLE PRECISION,
    PRIMARY KEY (anchor_id, co_product_id)`

const exportTableColumns = `
    anchor_id             BIGINT NOT NULL,
    anchor_name           TEXT NOT NULL,
    anchor_department     TEXT NOT NULL,
    anchor_aisle          TEXT NOT NULL,
    co_product_id         BIGINT NOT NULL,
    co_product_name       TEXT NOT NULL,
    co_product_department TEXT NOT NULL,
    co_product_aisle      TEXT NOT NULL,
    pair_count            INTEGER NOT NULL,
    anchor_total_orders   BIGINT NOT NULL,
    anchor_percentage     DOUBLE PRECISION,
    repurchase_available  BOOLEAN NOT NULL,
    repurchase_mean       DOUBLE PRECISION,
    repurchase_lift       DOUBLE PRECISION,
    repurchase_zscore     DOUBLE PRECISION,
    order_size_available  BOOLEAN NOT NULL,
    order_size_mean       DOUBLE PRECISION,
    order_size_lift       DOUBLE PRECISION,
    order_size_zscore     DOUBLE PRECISION,
    PRIMARY KEY (anchor_id, co_product_id)`

const benchmarkTableColumns = `
    measure      TEXT PRIMARY KEY,
    value        DOUBLE PRECISION,
    live_value   DOUBLE PRECISION,
    observations INTEGER NOT NULL,
    pinned       BOOLEAN NOT NULL`

// resultTables returns the result table definitions in ResultTables order.
func resultTables() []tableDef {
	defs := make([]tableDef, 0, len(metricTables)+3)
	for _, mt := range metricTables {
		defs = append(defs, tableDef{mt.table, fmt.Sprintf(metricTableColumns, mt.grouping)})
	}
	return append(defs,
		tableDef{TableCoPurchase, coPurchaseTableColumns},
		tableDef{TableCoPurchaseExport, exportTableColumns},
		tableDef{TableBenchmarks, benchmarkTableColumns},
	)
}

// Secondary indexes on the base relations.
var baseIndexes = []struct {
	name, table, columns string
}{
	{"idx_order_products_order", TableOrderProducts, "order_id"},
	{"idx_order_products_product", TableOrderProducts, "product_id"},
	{"idx_orders_user", TableOrders, "user_id, order_number"},
	{"idx_products_department", TableProducts, "department_id"},
}
