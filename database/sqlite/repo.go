// Package sqlite implements the metadata index using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/ossd"
)

type repo struct {
	db        *sql.DB
	tableName string
}

// NewRepo creates a SQLite-backed metadata repo over an open database.
func NewRepo(db *sql.DB, tables ossd.Tables) (ossd.MetadataRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &repo{db: db, tableName: tables.Objects}, nil
}

func (r *repo) Get(ctx context.Context, bucket, key string) (ossd.ObjectMetadata, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT content_type, content_length, size, etag, user_metadata, updated_at
		FROM %s
		WHERE bucket = ? AND object_key = ?`, r.tableName)

	m := ossd.ObjectMetadata{Bucket: bucket, Key: key}
	var contentType int
	var userMetadata sql.NullString
	var updatedAt int64

	err := r.db.QueryRowContext(ctx, query, bucket, key).Scan(
		&contentType, &m.ContentLength, &m.Size, &m.ETag, &userMetadata, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ossd.ObjectMetadata{}, ossd.ErrNotFound
		}
		return ossd.ObjectMetadata{}, fmt.Errorf("get: %w", err)
	}

	m.ContentType = ossd.ContentType(contentType)
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	m.UserMetadata, err = ossd.DecodeUserMetadata(userMetadata.String)
	if err != nil {
		return ossd.ObjectMetadata{}, fmt.Errorf("get: %w", err)
	}

	return m, nil
}

func (r *repo) Upsert(ctx context.Context, record ossd.ObjectRecord) (ossd.ObjectMetadata, error) {
	userMetadata, err := record.UserMetadata.Encode()
	if err != nil {
		return ossd.ObjectMetadata{}, fmt.Errorf("upsert: %w", err)
	}

	now := time.Now().UTC()

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (bucket, object_key, content_type, content_length, size, etag, user_metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bucket, object_key) DO UPDATE
		SET content_type = excluded.content_type,
			content_length = excluded.content_length,
			size = excluded.size,
			etag = excluded.etag,
			user_metadata = excluded.user_metadata,
			updated_at = excluded.updated_at`, r.tableName)

	_, err = r.db.ExecContext(ctx, query,
		record.Bucket, record.Key, int(record.ContentType),
		record.ContentLength, record.Size, record.ETag,
		nullableString(userMetadata), now.UnixMilli(),
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
		UpdatedAt:     time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}

func (r *repo) Delete(ctx context.Context, bucket, key string) (bool, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE bucket = ? AND object_key = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, bucket, key)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete: rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, q ossd.ListQuery) (ossd.ListResult, error) {
	// The prefix is matched as a byte range rather than LIKE, whose
	// default behavior is ASCII case-insensitive. Keys are non-empty, so
	// object_key > '' admits every row and the first page needs no
	// special case. One probe row past the limit detects truncation.
	where := `bucket = ? AND object_key >= ? AND object_key > ?`
	args := []any{q.Bucket, q.Prefix, q.AfterKey}
	if upper := ossd.PrefixUpperBound(q.Prefix); upper != "" {
		where += ` AND object_key < ?`
		args = append(args, upper)
	}
	args = append(args, q.Limit+1)

	query := fmt.Sprintf(`
		SELECT object_key, content_type, content_length, size, etag, user_metadata, updated_at
		FROM %s
		WHERE %s
		ORDER BY object_key
		LIMIT ?
	`, r.tableName, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ossd.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]ossd.ObjectMetadata, 0, q.Limit)
	for rows.Next() {
		m := ossd.ObjectMetadata{Bucket: q.Bucket}
		var contentType int
		var userMetadata sql.NullString
		var updatedAt int64

		if scanErr := rows.Scan(&m.Key, &contentType, &m.ContentLength, &m.Size, &m.ETag, &userMetadata, &updatedAt); scanErr != nil {
			return ossd.ListResult{}, fmt.Errorf("list: scan: %w", scanErr)
		}

		m.ContentType = ossd.ContentType(contentType)
		m.UpdatedAt = time.UnixMilli(updatedAt).UTC()

		var decodeErr error
		m.UserMetadata, decodeErr = ossd.DecodeUserMetadata(userMetadata.String)
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

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
