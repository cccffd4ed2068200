//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package analysis implements the statistical engine: global benchmarks,
// grouped metrics with minimum-sample filtering, lift and z-score
// normalization, co-purchase pairs and the assembled anchor export.
package analysis

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"strconv"
)

const (
	// DefaultMinSample is the observation floor below which a group or a
	// product pair is excluded.
	DefaultMinSample = 30

	// DefaultPrecision is the number of decimals used for presentation.
	DefaultPrecision = 2
)

// Measure is a behavioral measure that can be grouped.
type Measure string

const (
	// RepurchaseCycle is days since the customer's prior order, observed
	// once per (order, entity) repurchase event.
	RepurchaseCycle Measure = "repurchase_cycle"

	// OrderSize is the distinct-product count of an order, observed once
	// per (order, entity) appearance.
	OrderSize Measure = "order_size"
)

// Measures lists every supported measure.
var Measures = []Measure{RepurchaseCycle, OrderSize}

// ParseMeasure converts a measure name to a Measure.
func ParseMeasure(s string) (Measure, error) {
	switch Measure(s) {
	case RepurchaseCycle, OrderSize:
		return Measure(s), nil
	}
	return "", fmt.Errorf("unknown measure: %s", s)
}

// Grouping is the entity level a metric is aggregated at.
type Grouping string

const (
	ByProduct    Grouping = "product"
	ByDepartment Grouping = "department"
)

// Groupings lists every supported grouping.
var Groupings = []Grouping{ByProduct, ByDepartment}

// NullFloat is a float that may be undefined. The zero value is null.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Valid returns a defined NullFloat.
func Valid(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Rounded returns the value rounded to precision decimals. Null stays null.
func (n NullFloat) Rounded(precision int) NullFloat {
	if !n.Valid {
		return n
	}
	return Valid(Round(n.Float64, precision))
}

// Format renders the value with precision decimals, or "" when null.
func (n NullFloat) Format(precision int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(Round(n.Float64, precision), 'f', precision, 64)
}

// MarshalJSON encodes null as JSON null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON decodes a JSON number or null.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Valid(v)
	return nil
}

// Value implements driver.Valuer so results can be written by database
// drivers directly.
func (n NullFloat) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Float64, nil
}

// Scan implements sql.Scanner.
func (n *NullFloat) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = NullFloat{}
	case float64:
		*n = Valid(v)
	case float32:
		*n = Valid(float64(v))
	case int64:
		*n = Valid(float64(v))
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return err
		}
		*n = Valid(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*n = Valid(f)
	default:
		return fmt.Errorf("cannot scan %T into NullFloat", src)
	}
	return nil
}

// Round rounds v half away from zero to precision decimals. Negative zero
// is normalized so it never renders as "-0.00".
func Round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// Options configures a run. A zero MinSample or Workers falls back to the
// default; start from DefaultOptions to keep the default Precision.
type Options struct {
	MinSample int
	Precision int
	Workers   int

	// Pinned benchmarks replace the live global benchmark when valid.
	PinnedRepurchase NullFloat
	PinnedOrderSize  NullFloat
}

// DefaultOptions returns the standard engine options.
func DefaultOptions() Options {
	return Options{
		MinSample: DefaultMinSample,
		Precision: DefaultPrecision,
		Workers:   runtime.GOMAXPROCS(0),
	}
}

func (o Options) withDefaults() Options {
	if o.MinSample <= 0 {
		o.MinSample = DefaultMinSample
	}
	if o.Precision < 0 {
		o.Precision = DefaultPrecision
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}
