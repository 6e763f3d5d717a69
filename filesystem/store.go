// Package filesystem provides the content store backend: one regular file
// per object under {root}/{bucket}/{key}, written atomically via a temp
// file and rename, with the MD5 ETag computed in the same pass as the write.
package filesystem

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/sagarc03/ossd"
)

const tmpPrefix = ".t"

// Store provides file system content storage operations.
type Store struct {
	root *os.Root
}

// NewStore creates a Store over the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

func objectPath(bucket, key string) string {
	return path.Join(bucket, key)
}

// Get opens an object's content for reading.
// Returns ossd.ErrNotFound if the file does not exist.
func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(objectPath(bucket, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ossd.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically stores content at {bucket}/{key}: bytes stream through
// an MD5 hash into a temp file inside the bucket directory, which is synced
// and renamed over the final path only on full success. On any failure,
// including context cancellation mid-upload, the temp file is removed and
// nothing is visible at the final path.
func (s *Store) Write(ctx context.Context, bucket, key string, content io.Reader) (ossd.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ossd.SaveResult{}, ctxErr
	}

	final := objectPath(bucket, key)
	if err := s.root.MkdirAll(path.Dir(final), 0o755); err != nil {
		return ossd.SaveResult{}, fmt.Errorf("could not create object directories: %w", err)
	}

	tmpFile := path.Join(bucket, tmpFileName())
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return ossd.SaveResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := md5.New()
	w := io.MultiWriter(h, t)

	bytesWritten, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return ossd.SaveResult{}, fmt.Errorf("could not copy object contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return ossd.SaveResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	if renameErr := s.root.Rename(tmpFile, final); renameErr != nil {
		return ossd.SaveResult{}, fmt.Errorf("failed to publish object file: %w", renameErr)
	}

	// The ETag is finalized only after the rename succeeded, so it always
	// reflects the bytes visible at the final path.
	etag := hex.EncodeToString(h.Sum(nil))
	success = true

	return ossd.SaveResult{BytesWritten: bytesWritten, ETag: etag}, nil
}

// Delete removes an object's file. Returns ossd.ErrNotFound if absent.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(objectPath(bucket, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ossd.ErrNotFound
		}
		return fmt.Errorf("could not delete object file: %w", err)
	}
	return nil
}

// Copy reads the source object fully and writes the destination through the
// same atomic temp-file path as Write, so the destination ETag is always
// recomputed from the bytes actually copied. Copying a key onto itself is
// safe: the source stays intact until the temp file replaces it.
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (ossd.SaveResult, error) {
	src, err := s.Get(ctx, srcBucket, srcKey)
	if err != nil {
		return ossd.SaveResult{}, err
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			slog.Warn("failed to close source file", "err", closeErr)
		}
	}()

	return s.Write(ctx, dstBucket, dstKey, src)
}

// List recursively walks a bucket directory and returns all stored objects
// with their key, size, and MD5 ETag. Unpublished temp files are skipped.
// A missing bucket directory yields an empty listing. Intended for
// out-of-band reconciliation, not for serving list requests.
func (s *Store) List(ctx context.Context, bucket string) ([]ossd.ObjectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := []ossd.ObjectEntry{}

	if _, err := fs.Stat(s.root.FS(), bucket); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to stat bucket directory: %w", err)
	}

	if err := s.walkDir(ctx, bucket, bucket, &entries); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return entries, nil
}

func (s *Store) walkDir(ctx context.Context, bucket, dir string, entries *[]ossd.ObjectEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, bucket, entryPath, entries); err != nil {
				return err
			}
			continue
		}

		// In-flight writes live under the temp prefix until renamed.
		if len(entry.Name()) >= len(tmpPrefix) && entry.Name()[:len(tmpPrefix)] == tmpPrefix {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk bucket: %w", err)
		}

		f, err := s.root.Open(entryPath)
		if err != nil {
			return fmt.Errorf("walk bucket: %w", err)
		}

		h := md5.New()
		_, copyErr := io.Copy(h, f)

		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", entryPath, "err", closeErr)
		}

		if copyErr != nil {
			return fmt.Errorf("walk bucket: %w", copyErr)
		}

		key := entryPath[len(bucket)+1:]

		*entries = append(*entries, ossd.ObjectEntry{
			Key:  key,
			Size: info.Size(),
			ETag: hex.EncodeToString(h.Sum(nil)),
		})
	}

	return nil
}

func tmpFileName() string {
	return fmt.Sprintf("%s%s", tmpPrefix, uuid.New().String())
}
