package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/ossd"
)

func createObjectsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexBucketKey := pgx.Identifier{fmt.Sprintf("idx_%s_bucket_key", tableName)}.Sanitize()

	// The (bucket, object_key COLLATE "C") index serves both the unique
	// constraint lookups and the byte-ordered prefix scans listing needs.
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			bucket TEXT NOT NULL,
			object_key TEXT NOT NULL,
			content_type INTEGER NOT NULL DEFAULT 0,
			content_length BIGINT NOT NULL DEFAULT 0,
			size BIGINT NOT NULL DEFAULT 0,
			etag TEXT NOT NULL,
			user_metadata TEXT,
			updated_at BIGINT NOT NULL,
			UNIQUE (bucket, object_key)
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (bucket, object_key COLLATE "C");
	`,
		quotedTable,
		indexBucketKey, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create objects table: %w", err)
	}
	return nil
}

func dropObjectsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()

	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable))
	if err != nil {
		return fmt.Errorf("drop objects table: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables ossd.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := createObjectsTable(ctx, pool, tables.Objects); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Objects, err)
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables ossd.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	if err := dropObjectsTable(ctx, pool, tables.Objects); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Objects, err)
	}
	return nil
}
