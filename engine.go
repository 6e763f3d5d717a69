package ossd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// MetadataRepo is the metadata index: a single relational table keyed by
// (bucket, key). It is the source of truth for object existence; the
// content store is only consulted for bytes once a row confirms existence.
//
// All methods accept a context for cancellation and timeout control.
type MetadataRepo interface {
	// Get retrieves the metadata row for (bucket, key).
	// Returns ErrNotFound if no row exists.
	Get(ctx context.Context, bucket, key string) (ObjectMetadata, error)

	// Upsert inserts the row for (record.Bucket, record.Key) or fully
	// replaces an existing one. Returns the committed row with its
	// updated_at timestamp set.
	Upsert(ctx context.Context, record ObjectRecord) (ObjectMetadata, error)

	// Delete removes the row for (bucket, key). Reports whether a row
	// existed; deleting an absent row is not an error.
	Delete(ctx context.Context, bucket, key string) (bool, error)

	// List returns up to q.Limit rows for q.Bucket whose key has prefix
	// q.Prefix and sorts strictly after q.AfterKey, in byte-lexicographic
	// key order. Truncated reports whether more rows exist beyond the page.
	List(ctx context.Context, q ListQuery) (ListResult, error)
}

// ContentStore is durable byte storage, one file per object. Writes are
// atomic: a file is either fully published at its final path or absent.
type ContentStore interface {
	// Get opens the object's content for reading.
	// Returns ErrNotFound if the file does not exist.
	Get(ctx context.Context, bucket, key string) (io.ReadSeekCloser, error)

	// Write stores content, computing the MD5 ETag in the same pass as the
	// bytes are persisted. On failure nothing is visible at the final path.
	Write(ctx context.Context, bucket, key string, content io.Reader) (SaveResult, error)

	// Delete removes the object's file. Returns ErrNotFound if absent;
	// idempotence is the engine's decision, not the store's.
	Delete(ctx context.Context, bucket, key string) error

	// Copy reads the source fully and writes the destination through the
	// same atomic-publish path as Write, recomputing the ETag from the
	// copied bytes. Same-key copies must not corrupt the source.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (SaveResult, error)

	// List walks a bucket and returns every stored file. Used for
	// out-of-band reconciliation, not on any request path.
	List(ctx context.Context, bucket string) ([]ObjectEntry, error)
}

// MaxListKeys is the ceiling applied to max-keys regardless of caller input.
const MaxListKeys = 1000

const defaultCleanupTimeout = 30 * time.Second

// Engine composes the metadata index and the content store into the object
// storage operations. Consistency discipline: content is published first,
// then the metadata row is committed; readers that see the row are
// guaranteed the content is already durable. Mutations to the same
// (bucket, key) are serialized by a per-key lock.
type Engine struct {
	repo           MetadataRepo
	store          ContentStore
	locks          *keyLocks
	cleanupTimeout time.Duration
}

// EngineConfig holds configuration options for Engine.
type EngineConfig struct {
	CleanupTimeout time.Duration // timeout for rollback cleanup (default: 30s)
}

func NewEngine(repo MetadataRepo, store ContentStore, cfg EngineConfig) (*Engine, error) {
	if repo == nil || store == nil {
		return nil, errors.New("new engine: repo and store are required")
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = defaultCleanupTimeout
	}
	return &Engine{
		repo:           repo,
		store:          store,
		locks:          newKeyLocks(),
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Put streams body into the content store and commits the metadata row.
// The ETag is the MD5 of the bytes written, computed during the write pass.
// A Put to an existing key fully replaces both content and metadata; no
// reader observes a partial overwrite.
func (e *Engine) Put(ctx context.Context, in PutInput, body io.Reader) (ObjectMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ObjectMetadata{}, fmt.Errorf("put object: %w", err)
	}
	if err := ValidateBucket(in.Bucket); err != nil {
		return ObjectMetadata{}, fmt.Errorf("put object: %w", err)
	}
	if err := ValidateKey(in.Key); err != nil {
		return ObjectMetadata{}, fmt.Errorf("put object: %w", err)
	}

	release := e.locks.acquire(in.Bucket, in.Key)
	defer release()

	saved, err := e.store.Write(ctx, in.Bucket, in.Key, body)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("put object %s/%s: %w", in.Bucket, in.Key, err)
	}

	record := ObjectRecord{
		Bucket:        in.Bucket,
		Key:           in.Key,
		ContentType:   ParseContentType(in.ContentType),
		ContentLength: saved.BytesWritten,
		Size:          saved.BytesWritten,
		ETag:          saved.ETag,
		UserMetadata:  in.UserMetadata,
	}

	m, err := e.commitMetadata(ctx, record)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("put object %s/%s: %w", in.Bucket, in.Key, err)
	}
	return m, nil
}

// commitMetadata upserts the row for content that is already published.
// The content is durable and safely re-attachable, so a failed commit is
// retried once; if that also fails, both the published file and any
// pre-existing row for the key are removed. On an overwrite the old row
// describes bytes the write already replaced, so the key must end fully
// absent to keep "row exists iff content exists" intact.
func (e *Engine) commitMetadata(ctx context.Context, record ObjectRecord) (ObjectMetadata, error) {
	m, err := e.repo.Upsert(ctx, record)
	if err != nil && ctx.Err() == nil {
		slog.Warn("metadata commit failed, retrying", "bucket", record.Bucket, "key", record.Key, "err", err)
		m, err = e.repo.Upsert(ctx, record)
	}
	if err == nil {
		return m, nil
	}

	// Unrecoverable: remove the published content and any stale row for
	// the key under a background context so cleanup completes even if
	// the request was cancelled.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), e.cleanupTimeout)
	defer cancel()

	if delErr := e.store.Delete(cleanupCtx, record.Bucket, record.Key); delErr != nil && !errors.Is(delErr, ErrNotFound) {
		slog.Error("orphaned content after failed metadata commit", "bucket", record.Bucket, "key", record.Key, "err", delErr)
		return ObjectMetadata{}, fmt.Errorf("metadata commit failed (%w) and cleanup failed: %v", err, delErr)
	}
	if _, delErr := e.repo.Delete(cleanupCtx, record.Bucket, record.Key); delErr != nil {
		slog.Error("stale metadata row after failed commit", "bucket", record.Bucket, "key", record.Key, "err", delErr)
		return ObjectMetadata{}, fmt.Errorf("metadata commit failed (%w) and row cleanup failed: %v", err, delErr)
	}
	return ObjectMetadata{}, fmt.Errorf("metadata commit failed: %w", err)
}

// Get returns the object's metadata and an open content reader. The caller
// must close the reader. Metadata present with content missing violates the
// engine's core invariant and is surfaced as ErrInternal, never masked as
// not-found, since that would hide data loss.
func (e *Engine) Get(ctx context.Context, bucket, key string) (ObjectMetadata, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return ObjectMetadata{}, nil, fmt.Errorf("get object: %w", err)
	}

	m, err := e.repo.Get(ctx, bucket, key)
	if err != nil {
		return ObjectMetadata{}, nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}

	rc, err := e.store.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Error("consistency violation: metadata row without content file", "bucket", bucket, "key", key)
			return ObjectMetadata{}, nil, fmt.Errorf("get object %s/%s: content missing for indexed object: %w", bucket, key, ErrInternal)
		}
		return ObjectMetadata{}, nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}

	return m, rc, nil
}

// Head returns the object's metadata without opening the content.
func (e *Engine) Head(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ObjectMetadata{}, fmt.Errorf("head object: %w", err)
	}

	m, err := e.repo.Get(ctx, bucket, key)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}
	return m, nil
}

// Delete removes the metadata row, then the content file. Deleting an
// absent key succeeds. If content removal fails after the row is gone the
// destination state is still correct from the caller's perspective; the
// file is logged as an orphan candidate for Scrub rather than surfaced.
func (e *Engine) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := ValidateBucket(bucket); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	release := e.locks.acquire(bucket, key)
	defer release()

	existed, err := e.repo.Delete(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}

	if err := e.store.Delete(ctx, bucket, key); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("orphaned content after metadata delete", "bucket", bucket, "key", key, "err", err)
	}

	if !existed {
		slog.Debug("delete of absent key", "bucket", bucket, "key", key)
	}
	return nil
}

// Copy copies source content to the destination and writes a destination
// metadata row. The ETag is always recomputed from the bytes actually
// written, never carried over from the source row. Directive COPY inherits
// the source's content type and user metadata verbatim; REPLACE uses the
// caller-supplied metadata only, with no merge. Only the destination key is
// locked; a source deleted mid-copy surfaces as ErrNotFound.
func (e *Engine) Copy(ctx context.Context, in CopyInput) (ObjectMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ObjectMetadata{}, fmt.Errorf("copy object: %w", err)
	}
	if !in.Directive.IsValid() {
		return ObjectMetadata{}, fmt.Errorf("copy object: %w: metadata directive %q", ErrInvalidInput, in.Directive)
	}
	for _, v := range []struct {
		name string
		err  error
	}{
		{"source bucket", ValidateBucket(in.SourceBucket)},
		{"source key", ValidateKey(in.SourceKey)},
		{"destination bucket", ValidateBucket(in.DestBucket)},
		{"destination key", ValidateKey(in.DestKey)},
	} {
		if v.err != nil {
			return ObjectMetadata{}, fmt.Errorf("copy object: %s: %w", v.name, v.err)
		}
	}

	src, err := e.repo.Get(ctx, in.SourceBucket, in.SourceKey)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("copy object: source %s/%s: %w", in.SourceBucket, in.SourceKey, err)
	}

	release := e.locks.acquire(in.DestBucket, in.DestKey)
	defer release()

	copied, err := e.store.Copy(ctx, in.SourceBucket, in.SourceKey, in.DestBucket, in.DestKey)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("copy object: source %s/%s: %w", in.SourceBucket, in.SourceKey, err)
	}

	record := ObjectRecord{
		Bucket:        in.DestBucket,
		Key:           in.DestKey,
		ContentLength: copied.BytesWritten,
		Size:          copied.BytesWritten,
		ETag:          copied.ETag,
	}
	switch in.Directive {
	case DirectiveReplace:
		record.ContentType = ParseContentType(in.NewContentType)
		record.UserMetadata = in.NewUserMetadata
	default:
		record.ContentType = src.ContentType
		record.UserMetadata = src.UserMetadata
	}

	m, err := e.commitMetadata(ctx, record)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("copy object %s/%s: %w", in.DestBucket, in.DestKey, err)
	}
	return m, nil
}

// List returns one lexicographically ordered page of a bucket's keys.
// maxKeys must be positive and is clamped to MaxListKeys. The continuation
// token is an opaque cursor over the last returned key, so pages stay
// stable under concurrent mutation except at the boundary key itself.
func (e *Engine) List(ctx context.Context, bucket, prefix string, maxKeys int, continuationToken string) (ListPage, error) {
	if err := ctx.Err(); err != nil {
		return ListPage{}, fmt.Errorf("list objects: %w", err)
	}
	if err := ValidateBucket(bucket); err != nil {
		return ListPage{}, fmt.Errorf("list objects: %w", err)
	}
	if maxKeys <= 0 {
		return ListPage{}, fmt.Errorf("list objects: %w: max-keys must be positive", ErrInvalidInput)
	}
	if maxKeys > MaxListKeys {
		maxKeys = MaxListKeys
	}

	afterKey, err := DecodeContinuationToken(continuationToken)
	if err != nil {
		return ListPage{}, fmt.Errorf("list objects: %w", err)
	}

	result, err := e.repo.List(ctx, ListQuery{
		Bucket:   bucket,
		Prefix:   prefix,
		AfterKey: afterKey,
		Limit:    maxKeys,
	})
	if err != nil {
		return ListPage{}, fmt.Errorf("list objects %s: %w", bucket, err)
	}

	page := ListPage{Items: result.Items, IsTruncated: result.Truncated}
	if result.Truncated && len(result.Items) > 0 {
		page.NextContinuationToken = EncodeContinuationToken(result.Items[len(result.Items)-1].Key)
	}
	return page, nil
}

// PresignURL is unsupported by local object storage and always fails with
// ErrConfiguration, so callers can distinguish "not applicable to this
// deployment" from an internal failure.
func (e *Engine) PresignURL(_ context.Context, bucket, key, method string, _ time.Duration) (string, error) {
	return "", fmt.Errorf("presign %s %s/%s: %w: presigned URLs are not supported by local object storage", method, bucket, key, ErrConfiguration)
}

const scrubConcurrency = 8

// Scrub removes content files that have no metadata row: orphans left by a
// content removal that failed after its row was already deleted. It is the
// out-of-band companion to Delete and never touches indexed objects.
// Returns the number of orphans removed.
func (e *Engine) Scrub(ctx context.Context, bucket string) (int, error) {
	if err := ValidateBucket(bucket); err != nil {
		return 0, fmt.Errorf("scrub: %w", err)
	}

	entries, err := e.store.List(ctx, bucket)
	if err != nil {
		return 0, fmt.Errorf("scrub %s: %w", bucket, err)
	}

	var removed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scrubConcurrency)

	for _, entry := range entries {
		g.Go(func() error {
			// Hold the key lock so a concurrent Put cannot publish content
			// between the row check and the file removal.
			release := e.locks.acquire(bucket, entry.Key)
			defer release()

			_, err := e.repo.Get(gctx, bucket, entry.Key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("scrub %s/%s: %w", bucket, entry.Key, err)
			}

			if err := e.store.Delete(gctx, bucket, entry.Key); err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("scrub %s/%s: %w", bucket, entry.Key, err)
			}
			slog.Info("removed orphaned content file", "bucket", bucket, "key", entry.Key)
			removed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(removed.Load()), err
	}
	return int(removed.Load()), nil
}
