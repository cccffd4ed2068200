package db

import (
	"context"
	"testing"
)

func TestTable(t *testing.T) {
	tests := []struct {
		schema, table, want string
	}{
		{"", "orders", `"orders"`},
		{"public", "orders", `"public"."orders"`},
		{"Basket Data", "order_products", `"Basket Data"."order_products"`},
		{"odd\"name", "t", `"odd""name"."t"`},
	}

	for _, tt := range tests {
		if got := Table(tt.schema, tt.table); got != tt.want {
			t.Errorf("Table(%q, %q) = %s, want %s", tt.schema, tt.table, got, tt.want)
		}
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	if cfg.MaxConns < cfg.MinConns {
		t.Errorf("MaxConns %d < MinConns %d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnLifetime <= cfg.MaxConnIdleTime {
		t.Errorf("MaxConnLifetime %v should exceed MaxConnIdleTime %v", cfg.MaxConnLifetime, cfg.MaxConnIdleTime)
	}
}

func TestConnectInvalidConnString(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://user@host:notaport/db")
	if err == nil {
		t.Fatal("expected error for malformed connection string")
	}
}
