// Package postgres implements the metadata index using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/ossd"
)

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables ossd.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Objects}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Get(ctx context.Context, bucket, key string) (ossd.ObjectMetadata, error) {
	query := fmt.Sprintf(`
		SELECT content_type, content_length, size, etag, COALESCE(user_metadata, ''), updated_at
		FROM %s
		WHERE bucket = $1 AND object_key = $2
	`, r.tableName)

	m := ossd.ObjectMetadata{Bucket: bucket, Key: key}
	var contentType int
	var userMetadata string
	var updatedAt int64

	err := r.pool.QueryRow(ctx, query, bucket, key).Scan(
		&contentType, &m.ContentLength, &m.Size, &m.ETag, &userMetadata, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ossd.ObjectMetadata{}, ossd.ErrNotFound
		}
		return ossd.ObjectMetadata{}, fmt.Errorf("get: %w", err)
	}

	m.ContentType = ossd.ContentType(contentType)
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	m.UserMetadata, err = ossd.DecodeUserMetadata(userMetadata)
	if err != nil {
		return ossd.ObjectMetadata{}, fmt.Errorf("get: %w", err)
	}

	return m, nil
}

func (r *Repo) Upsert(ctx context.Context, record ossd.ObjectRecord) (ossd.ObjectMetadata, error) {
	userMetadata, err := record.UserMetadata.Encode()
	if err != nil {
		return ossd.ObjectMetadata{}, fmt.Errorf("upsert: %w", err)
	}

	now := time.Now().UTC().UnixMilli()

	query := fmt.Sprintf(`
		INSERT INTO %s (bucket, object_key, content_type, content_length, size, etag, user_metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (bucket, object_key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			content_length = EXCLUDED.content_length,
			size = EXCLUDED.size,
			etag = EXCLUDED.etag,
			user_metadata = EXCLUDED.user_metadata,
			updated_at = EXCLUDED.updated_at
	`, r.tableName)

	_, err = r.pool.Exec(ctx, query,
		record.Bucket, record.Key, int(record.ContentType),
		record.ContentLength, record.Size, record.ETag,
		userMetadata, now,
	)
	if err != nil {
		return ossd.ObjectMetadata{}, fmt.Errorf("upsert: %w", err)
	}

	return ossd.ObjectMetadata{
		Bucket:        record.Bucket,
		Key:           record.Key,
		ContentType:   record.ContentType,
		ContentLength: record.ContentLength,
		Size:          record.Size,
		ETag:          record.ETag,
		UserMetadata:  record.UserMetadata,
		UpdatedAt:     time.UnixMilli(now).UTC(),
	}, nil
}

func (r *Repo) Delete(ctx context.Context, bucket, key string) (bool, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE bucket = $1 AND object_key = $2
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, bucket, key)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context, q ossd.ListQuery) (ossd.ListResult, error) {
	// The prefix is matched as a byte range, and COLLATE "C" forces
	// byte-lexicographic comparison and ordering regardless of the
	// database locale. The probe row past the limit detects truncation.
	where := `bucket = $1 AND object_key COLLATE "C" >= $2 AND object_key COLLATE "C" > $3`
	args := []any{q.Bucket, q.Prefix, q.AfterKey}
	if upper := ossd.PrefixUpperBound(q.Prefix); upper != "" {
		where += ` AND object_key COLLATE "C" < $4`
		args = append(args, upper)
	}
	args = append(args, q.Limit+1)

	query := fmt.Sprintf(`
		SELECT object_key, content_type, content_length, size, etag, COALESCE(user_metadata, ''), updated_at
		FROM %s
		WHERE %s
		ORDER BY object_key COLLATE "C"
		LIMIT $%d
	`, r.tableName, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ossd.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]ossd.ObjectMetadata, 0, q.Limit)
	for rows.Next() {
		m := ossd.ObjectMetadata{Bucket: q.Bucket}
		var contentType int
		var userMetadata string
		var updatedAt int64

		if scanErr := rows.Scan(&m.Key, &contentType, &m.ContentLength, &m.Size, &m.ETag, &userMetadata, &updatedAt); scanErr != nil {
			return ossd.ListResult{}, fmt.Errorf("list: scan: %w", scanErr)
		}

		m.ContentType = ossd.ContentType(contentType)
		m.UpdatedAt = time.UnixMilli(updatedAt).UTC()

		var decodeErr error
		m.UserMetadata, decodeErr = ossd.DecodeUserMetadata(userMetadata)
		if decodeErr != nil {
			return ossd.ListResult{}, fmt.Errorf("list: %w", decodeErr)
		}

		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return ossd.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	truncated := len(items) > q.Limit
	if truncated {
		items = items[:q.Limit]
	}

	return ossd.ListResult{Items: items, Truncated: truncated}, nil
}
