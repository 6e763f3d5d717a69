// Package e2e exercises the full stack through a real S3 client: the HTTP
// layer, the engine, the SQLite metadata index and the filesystem content
// store, with no component mocked.
package e2e

import (
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/sagarc03/ossd"
	"github.com/sagarc03/ossd/database/sqlite"
	"github.com/sagarc03/ossd/filesystem"
	ossdhttp "github.com/sagarc03/ossd/http"
)

func newTestServer(t *testing.T) *minio.Client {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	tables := ossd.Tables{Objects: "objects"}
	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	repo, err := sqlite.NewRepo(db, tables)
	require.NoError(t, err)

	root, err := os.OpenRoot(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	engine, err := ossd.NewEngine(repo, filesystem.NewStore(root), ossd.EngineConfig{})
	require.NoError(t, err)

	handler := ossdhttp.NewHandler(&ossdhttp.HandlerConfig{}, engine)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	endpoint := strings.TrimPrefix(server.URL, "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4("testkey", "testsecret", ""),
		Secure:       false,
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	require.NoError(t, err)

	return client
}

func putString(t *testing.T, client *minio.Client, bucket, key, content, contentType string, meta map[string]string) minio.UploadInfo {
	t.Helper()
	info, err := client.PutObject(context.Background(), bucket, key,
		strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType, UserMetadata: meta},
	)
	require.NoError(t, err)
	return info
}

func TestPutGetRoundTrip(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()
	content := "hello object storage"

	info := putString(t, client, "docs", "greeting.txt", content, "text/plain", map[string]string{"owner": "alice"})
	assert.NotEmpty(t, info.ETag)

	obj, err := client.GetObject(ctx, "docs", "greeting.txt", minio.GetObjectOptions{})
	require.NoError(t, err)
	defer func() { _ = obj.Close() }()

	read, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, content, string(read))
}

func TestStatObject(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()
	content := "stat me"

	info := putString(t, client, "docs", "stat.txt", content, "text/plain", map[string]string{"owner": "alice"})

	stat, err := client.StatObject(ctx, "docs", "stat.txt", minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), stat.Size)
	assert.Equal(t, info.ETag, stat.ETag)
	assert.Equal(t, "text/plain", stat.ContentType)
	assert.WithinDuration(t, time.Now(), stat.LastModified, time.Minute)

	found := false
	for name, value := range stat.UserMetadata {
		if strings.EqualFold(name, "owner") {
			found = true
			assert.Equal(t, "alice", value)
		}
	}
	assert.True(t, found, "user metadata not echoed: %v", stat.UserMetadata)
}

func TestPutOverwrite(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	first := putString(t, client, "docs", "file.txt", "version one", "text/plain", nil)
	second := putString(t, client, "docs", "file.txt", "version two!", "text/plain", nil)
	assert.NotEqual(t, first.ETag, second.ETag)

	obj, err := client.GetObject(ctx, "docs", "file.txt", minio.GetObjectOptions{})
	require.NoError(t, err)
	defer func() { _ = obj.Close() }()

	read, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "version two!", string(read))

	stat, err := client.StatObject(ctx, "docs", "file.txt", minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(len("version two!")), stat.Size)
}

func TestGetMissingKey(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	obj, err := client.GetObject(ctx, "docs", "missing.txt", minio.GetObjectOptions{})
	require.NoError(t, err) // lazy: the request fires on first read

	_, err = io.ReadAll(obj)
	require.Error(t, err)
	assert.Equal(t, "NoSuchKey", minio.ToErrorResponse(err).Code)
}

func TestDelete(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	putString(t, client, "docs", "doomed.txt", "x", "text/plain", nil)

	require.NoError(t, client.RemoveObject(ctx, "docs", "doomed.txt", minio.RemoveObjectOptions{}))

	_, err := client.StatObject(ctx, "docs", "doomed.txt", minio.StatObjectOptions{})
	require.Error(t, err)
	assert.Equal(t, "NoSuchKey", minio.ToErrorResponse(err).Code)

	// Deleting again is not an error.
	assert.NoError(t, client.RemoveObject(ctx, "docs", "doomed.txt", minio.RemoveObjectOptions{}))
}

func TestCopyObject(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()
	content := "copy me around"

	src := putString(t, client, "docs", "original.txt", content, "text/plain", nil)

	dst, err := client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: "backup", Object: "copied.txt"},
		minio.CopySrcOptions{Bucket: "docs", Object: "original.txt"},
	)
	require.NoError(t, err)
	// Identical bytes give an identical MD5 ETag.
	assert.Equal(t, src.ETag, dst.ETag)

	obj, err := client.GetObject(ctx, "backup", "copied.txt", minio.GetObjectOptions{})
	require.NoError(t, err)
	defer func() { _ = obj.Close() }()

	read, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, content, string(read))
}

func TestCopyMissingSource(t *testing.T) {
	client := newTestServer(t)

	_, err := client.CopyObject(context.Background(),
		minio.CopyDestOptions{Bucket: "backup", Object: "copied.txt"},
		minio.CopySrcOptions{Bucket: "docs", Object: "missing.txt"},
	)
	require.Error(t, err)
	assert.Equal(t, "NoSuchKey", minio.ToErrorResponse(err).Code)
}

func TestListObjects(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	for _, key := range []string{"docs/a.txt", "docs/b.txt", "images/c.png"} {
		putString(t, client, "bucket", key, "content of "+key, "text/plain", nil)
	}

	var keys []string
	for obj := range client.ListObjects(ctx, "bucket", minio.ListObjectsOptions{Prefix: "docs/", Recursive: true}) {
		require.NoError(t, obj.Err)
		keys = append(keys, obj.Key)
	}

	assert.Equal(t, []string{"docs/a.txt", "docs/b.txt"}, keys)
}

func TestListObjects_Paginated(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	const total = 9
	for i := range total {
		putString(t, client, "bucket", fmt.Sprintf("key-%02d", i), "x", "text/plain", nil)
	}

	// MaxKeys forces the client through several continuation-token pages.
	var keys []string
	for obj := range client.ListObjects(ctx, "bucket", minio.ListObjectsOptions{Recursive: true, MaxKeys: 2}) {
		require.NoError(t, obj.Err)
		keys = append(keys, obj.Key)
	}

	require.Len(t, keys, total)
	for i, key := range keys {
		assert.Equal(t, fmt.Sprintf("key-%02d", i), key)
	}
}

func TestListObjects_EmptyBucket(t *testing.T) {
	client := newTestServer(t)

	count := 0
	for obj := range client.ListObjects(context.Background(), "emptybucket", minio.ListObjectsOptions{Recursive: true}) {
		require.NoError(t, obj.Err)
		count++
	}
	assert.Zero(t, count)
}

func TestConcurrentPutsSameKey(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	const writers = 8
	bodies := make([]string, writers)
	for i := range bodies {
		bodies[i] = fmt.Sprintf("body written by goroutine %d", i)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, body := range bodies {
		g.Go(func() error {
			_, err := client.PutObject(gctx, "bucket", "contended.txt",
				strings.NewReader(body), int64(len(body)),
				minio.PutObjectOptions{ContentType: "text/plain"})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Whichever write won, metadata and content must describe the same
	// bytes: the ETag equals the MD5 of what a reader actually gets.
	obj, err := client.GetObject(ctx, "bucket", "contended.txt", minio.GetObjectOptions{})
	require.NoError(t, err)
	defer func() { _ = obj.Close() }()

	read, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Contains(t, bodies, string(read))

	stat, err := client.StatObject(ctx, "bucket", "contended.txt", minio.StatObjectOptions{})
	require.NoError(t, err)

	sum := md5.Sum(read)
	assert.Equal(t, hex.EncodeToString(sum[:]), stat.ETag)
	assert.Equal(t, int64(len(read)), stat.Size)
}

func TestPresignedURLRejected(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	putString(t, client, "docs", "file.txt", "x", "text/plain", nil)

	// The client builds the URL locally; only using it hits the server.
	presigned, err := client.PresignedGetObject(ctx, "docs", "file.txt", time.Minute, url.Values{})
	require.NoError(t, err)

	resp, err := http.Get(presigned.String())
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(body, []byte("NotImplemented")), string(body))
}

func TestInvalidKeyRejected(t *testing.T) {
	client := newTestServer(t)

	_, err := client.PutObject(context.Background(), "docs", "bad//key.txt",
		strings.NewReader("x"), 1, minio.PutObjectOptions{})
	require.Error(t, err)
	assert.Equal(t, "InvalidArgument", minio.ToErrorResponse(err).Code)
}
