//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
)

// MetadataTable holds seed and run key/value metadata.
const MetadataTable = "basketinsights_metadata"

const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

// CreateMetadataTable creates the metadata table if it doesn't exist.
func CreateMetadataTable(ctx context.Context, q DB, schema string) error {
	_, err := q.Exec(ctx, fmt.Sprintf(createMetadataTableSQL, Table(schema, MetadataTable)))
	if err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

// SaveMetadata upserts key/value pairs into the metadata table, creating it
// first if needed.
func SaveMetadata(ctx context.Context, q DB, schema string, kv map[string]string) error {
	if err := CreateMetadataTable(ctx, q, schema); err != nil {
		return err
	}

	keys := make([]string, 0, len(kv))
	for key := range kv {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	upsert := fmt.Sprintf(`
        INSERT INTO %s (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
    `, Table(schema, MetadataTable))

	for _, key := range keys {
		if _, err := q.Exec(ctx, upsert, key, kv[key]); err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Strs("keys", keys).
		Msg("Saved metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, q DB, schema, key string) (string, error) {
	var value string
	err := q.QueryRow(ctx, fmt.Sprintf(`
        SELECT value FROM %s WHERE key = $1
    `, Table(schema, MetadataTable)), key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map. A missing table yields an
// empty map.
func GetAllMetadata(ctx context.Context, q DB, schema string) (map[string]string, error) {
	metadata := make(map[string]string)

	exists, err := MetadataExists(ctx, q, schema)
	if err != nil || !exists {
		return metadata, err
	}

	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT key, value FROM %s`, Table(schema, MetadataTable)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, q DB, schema string) error {
	_, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", Table(schema, MetadataTable)))
	return err
}

// MetadataExists checks if the metadata table exists.
func MetadataExists(ctx context.Context, q DB, schema string) (bool, error) {
	if schema == "" {
		schema = "public"
	}
	var exists bool
	err := q.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = $1 AND table_name = $2
        )
    `, schema, MetadataTable).Scan(&exists)
	return exists, err
}
