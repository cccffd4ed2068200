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
	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

// gorm models for the SQLite store. Column names match the PostgreSQL DDL.

type departmentModel struct {
	DepartmentID int64  `gorm:"column:department_id;primaryKey;autoIncrement:false"`
	Department   string `gorm:"column:department;not null"`
}

func (departmentModel) TableName() string { return TableDepartments }

type aisleModel struct {
	AisleID int64  `gorm:"column:aisle_id;primaryKey;autoIncrement:false"`
	Aisle   string `gorm:"column:aisle;not null"`
}

func (aisleModel) TableName() string { return TableAisles }

type productModel struct {
	ProductID    int64  `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	ProductName  string `gorm:"column:product_name;not null"`
	AisleID      int64  `gorm:"column:aisle_id;not null"`
	DepartmentID int64  `gorm:"column:department_id;not null;index"`
}

func (productModel) TableName() string { return TableProducts }

type orderModel struct {
	OrderID             int64    `gorm:"column:order_id;primaryKey;autoIncrement:false"`
	UserID              int64    `gorm:"column:user_id;not null;index"`
	OrderNumber         int      `gorm:"column:order_number;not null"`
	DaysSincePriorOrder *float64 `gorm:"column:days_since_prior_order"`
}

func (orderModel) TableName() string { return TableOrders }

// orderProductModel has no primary key; duplicate lines are allowed and
// collapsed by the basket index.
type orderProductModel struct {
	OrderID        int64 `gorm:"column:order_id;not null;index"`
	ProductID      int64 `gorm:"column:product_id;not null;index"`
	AddToCartOrder int   `gorm:"column:add_to_cart_order;not null"`
	Reordered      bool  `gorm:"column:reordered;not null;default:false"`
}

func (orderProductModel) TableName() string { return TableOrderProducts }

type metadataModel struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

func (metadataModel) TableName() string { return MetadataTable }

type metricStats struct {
	Mean        float64  `gorm:"column:mean;not null"`
	StdDev      float64  `gorm:"column:stddev;not null"`
	Lift        *float64 `gorm:"column:lift"`
	ZScore      *float64 `gorm:"column:zscore"`
	SampleCount int      `gorm:"column:sample_count;not null"`
}

// productMetricModel backs both product result tables.
type productMetricModel struct {
	ProductID   int64       `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	ProductName string      `gorm:"column:product_name;not null"`
	Stats       metricStats `gorm:"embedded"`
}

// departmentMetricModel backs both department result tables.
type departmentMetricModel struct {
	DepartmentID   int64       `gorm:"column:department_id;primaryKey;autoIncrement:false"`
	DepartmentName string      `gorm:"column:department_name;not null"`
	Stats          metricStats `gorm:"embedded"`
}

type coPurchaseModel struct {
	AnchorID          int64    `gorm:"column:anchor_id;primaryKey;autoIncrement:false"`
	AnchorName        string   `gorm:"column:anchor_name;not null"`
	CoProductID       int64    `gorm:"column:co_product_id;primaryKey;autoIncrement:false"`
	CoProductName     string   `gorm:"column:co_product_name;not null"`
	PairCount         int      `gorm:"column:pair_count;not null"`
	AnchorTotalOrders int64    `gorm:"column:anchor_total_orders;not null"`
	AnchorPercentage  *float64 `gorm:"column:anchor_percentage"`
}

func (coPurchaseModel) TableName() string { return TableCoPurchase }

type coPurchaseExportModel struct {
	AnchorID            int64    `gorm:"column:anchor_id;primaryKey;autoIncrement:false"`
	AnchorName          string   `gorm:"column:anchor_name;not null"`
	AnchorDepartment    string   `gorm:"column:anchor_department;not null"`
	AnchorAisle         string   `gorm:"column:anchor_aisle;not null"`
	CoProductID         int64    `gorm:"column:co_product_id;primaryKey;autoIncrement:false"`
	CoProductName       string   `gorm:"column:co_product_name;not null"`
	CoProductDepartment string   `gorm:"column:co_product_department;not null"`
	CoProductAisle      string   `gorm:"column:co_product_aisle;not null"`
	PairCount           int      `gorm:"column:pair_count;not null"`
	AnchorTotalOrders   int64    `gorm:"column:anchor_total_orders;not null"`
	AnchorPercentage    *float64 `gorm:"column:anchor_percentage"`
	RepurchaseAvailable bool     `gorm:"column:repurchase_available;not null"`
	RepurchaseMean      *float64 `gorm:"column:repurchase_mean"`
	RepurchaseLift      *float64 `gorm:"column:repurchase_lift"`
	RepurchaseZScore    *float64 `gorm:"column:repurchase_zscore"`
	OrderSizeAvailable  bool     `gorm:"column:order_size_available;not null"`
	OrderSizeMean       *float64 `gorm:"column:order_size_mean"`
	OrderSizeLift       *float64 `gorm:"column:order_size_lift"`
	OrderSizeZScore     *float64 `gorm:"column:order_size_zscore"`
}

func (coPurchaseExportModel) TableName() string { return TableCoPurchaseExport }

type benchmarkModel struct {
	Measure      string   `gorm:"column:measure;primaryKey"`
	Value        *float64 `gorm:"column:value"`
	LiveValue    *float64 `gorm:"column:live_value"`
	Observations int      `gorm:"column:observations;not null"`
	Pinned       bool     `gorm:"column:pinned;not null"`
}

func (benchmarkModel) TableName() string { return TableBenchmarks }

// baseModels lists the base relation models in dependency order.
func baseModels() []any {
	return []any{
		&departmentModel{}, &aisleModel{}, &productModel{}, &orderModel{}, &orderProductModel{},
	}
}

// metricModel returns an empty model for a grouping's result tables.
func metricModel(g analysis.Grouping) any {
	if g == analysis.ByDepartment {
		return &departmentMetricModel{}
	}
	return &productMetricModel{}
}

func toMetricStats(r analysis.LiftResult) metricStats {
	return metricStats{
		Mean:        r.Mean,
		StdDev:      r.StdDev,
		Lift:        nullable(r.Lift),
		ZScore:      nullable(r.ZScore),
		SampleCount: r.Count,
	}
}

// metricRows converts a result set to a slice of the grouping's model.
func metricRows(g analysis.Grouping, results []analysis.LiftResult) any {
	if g == analysis.ByDepartment {
		rows := make([]departmentMetricModel, len(results))
		for i, r := range results {
			rows[i] = departmentMetricModel{DepartmentID: r.EntityID, DepartmentName: r.Name, Stats: toMetricStats(r)}
		}
		return rows
	}
	rows := make([]productMetricModel, len(results))
	for i, r := range results {
		rows[i] = productMetricModel{ProductID: r.EntityID, ProductName: r.Name, Stats: toMetricStats(r)}
	}
	return rows
}

func toCoPurchaseModel(r analysis.CoPurchaseRow) coPurchaseModel {
	return coPurchaseModel{
		AnchorID:          r.AnchorID,
		AnchorName:        r.AnchorName,
		CoProductID:       r.CoProductID,
		CoProductName:     r.CoProductName,
		PairCount:         r.PairCount,
		AnchorTotalOrders: int64(r.AnchorTotalOrders),
		AnchorPercentage:  nullable(r.AnchorPercentage),
	}
}

func toExportModel(r analysis.AssembledRow) coPurchaseExportModel {
	return coPurchaseExportModel{
		AnchorID:            r.AnchorID,
		AnchorName:          r.AnchorName,
		AnchorDepartment:    r.AnchorDepartment,
		AnchorAisle:         r.AnchorAisle,
		CoProductID:         r.CoProductID,
		CoProductName:       r.CoProductName,
		CoProductDepartment: r.CoProductDepartment,
		CoProductAisle:      r.CoProductAisle,
		PairCount:           r.PairCount,
		AnchorTotalOrders:   int64(r.AnchorTotalOrders),
		AnchorPercentage:    nullable(r.AnchorPercentage),
		RepurchaseAvailable: r.Repurchase.Available,
		RepurchaseMean:      nullable(r.Repurchase.Mean),
		RepurchaseLift:      nullable(r.Repurchase.Lift),
		RepurchaseZScore:    nullable(r.Repurchase.ZScore),
		OrderSizeAvailable:  r.OrderSize.Available,
		OrderSizeMean:       nullable(r.OrderSize.Mean),
		OrderSizeLift:       nullable(r.OrderSize.Lift),
		OrderSizeZScore:     nullable(r.OrderSize.ZScore),
	}
}

func toBenchmarkModel(b analysis.Benchmark) benchmarkModel {
	return benchmarkModel{
		Measure:      string(b.Measure),
		Value:        nullable(b.Value),
		LiveValue:    nullable(b.Live),
		Observations: b.Observations,
		Pinned:       b.Pinned,
	}
}

func snapshotModels(snap *dataset.Snapshot) (deps []departmentModel, aisles []aisleModel, products []productModel, orders []orderModel, lines []orderProductModel) {
	deps = make([]departmentModel, len(snap.Departments))
	for i, d := range snap.Departments {
		deps[i] = departmentModel{DepartmentID: d.ID, Department: d.Name}
	}
	aisles = make([]aisleModel, len(snap.Aisles))
	for i, a := range snap.Aisles {
		aisles[i] = aisleModel{AisleID: a.ID, Aisle: a.Name}
	}
	products = make([]productModel, len(snap.Products))
	for i, p := range snap.Products {
		products[i] = productModel{ProductID: p.ID, ProductName: p.Name, AisleID: p.AisleID, DepartmentID: p.DepartmentID}
	}
	orders = make([]orderModel, len(snap.Orders))
	for i, o := range snap.Orders {
		orders[i] = orderModel{OrderID: o.ID, UserID: o.CustomerID, OrderNumber: o.Number, DaysSincePriorOrder: o.DaysSincePrior}
	}
	lines = make([]orderProductModel, len(snap.Lines))
	for i, l := range snap.Lines {
		lines[i] = orderProductModel{OrderID: l.OrderID, ProductID: l.ProductID, AddToCartOrder: l.AddToCartOrder, Reordered: l.Reordered}
	}
	return deps, aisles, products, orders, lines
}
