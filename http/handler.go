package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/ossd"
)

// Service is the storage engine surface the HTTP layer depends on.
type Service interface {
	Put(ctx context.Context, in ossd.PutInput, body io.Reader) (ossd.ObjectMetadata, error)
	Get(ctx context.Context, bucket, key string) (ossd.ObjectMetadata, io.ReadSeekCloser, error)
	Head(ctx context.Context, bucket, key string) (ossd.ObjectMetadata, error)
	Delete(ctx context.Context, bucket, key string) error
	Copy(ctx context.Context, in ossd.CopyInput) (ossd.ObjectMetadata, error)
	List(ctx context.Context, bucket, prefix string, maxKeys int, continuationToken string) (ossd.ListPage, error)
	PresignURL(ctx context.Context, bucket, key, method string, expiry time.Duration) (string, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	CORS CORSConfig
}

// Handler provides HTTP handlers implementing the S3 object protocol.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with the S3 routes mounted:
// object operations under /{bucket}/{key...} and bucket listing at /{bucket}.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Route("/{bucket}", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/*", h.handleGet)
		r.Head("/*", h.handleHead)
		r.Put("/*", h.handlePut)
		r.Delete("/*", h.handleDelete)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// objectKey extracts the object key from the request path, after the
// bucket segment. net/http has already percent-decoded the path.
func objectKey(r *http.Request, bucket string) string {
	return strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")
}

// isPresigned reports whether the request carries query-string signature
// parameters. Presigned URL support is deliberately not implemented.
func isPresigned(r *http.Request) bool {
	q := r.URL.Query()
	return q.Has("X-Amz-Signature") || q.Has("X-Amz-Algorithm") || q.Has("X-Amz-Credential")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")

	if isPresigned(r) {
		WriteS3Error(w, r, http.StatusNotImplemented, "NotImplemented", "Presigned URLs are not supported")
		return
	}

	q := r.URL.Query()
	if q.Get("list-type") != "2" {
		WriteS3Error(w, r, http.StatusBadRequest, "InvalidArgument", "Only ListObjectsV2 (list-type=2) is supported")
		return
	}

	maxKeys := ossd.MaxListKeys
	if raw := q.Get("max-keys"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			WriteS3Error(w, r, http.StatusBadRequest, "InvalidArgument", "max-keys must be an integer")
			return
		}
		maxKeys = parsed
	}

	prefix := q.Get("prefix")
	token := q.Get("continuation-token")

	page, err := h.service.List(r.Context(), bucket, prefix, maxKeys, token)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	result := ListBucketResult{
		Name:                  bucket,
		Prefix:                prefix,
		MaxKeys:               min(max(maxKeys, 0), ossd.MaxListKeys),
		KeyCount:              len(page.Items),
		IsTruncated:           page.IsTruncated,
		ContinuationToken:     token,
		NextContinuationToken: page.NextContinuationToken,
	}
	for _, item := range page.Items {
		result.Contents = append(result.Contents, ListEntry{
			Key:  item.Key,
			Size: item.Size,
			ETag: quoteETag(item.ETag),
		})
	}

	WriteXML(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := objectKey(r, bucket)

	if isPresigned(r) {
		WriteS3Error(w, r, http.StatusNotImplemented, "NotImplemented", "Presigned URLs are not supported")
		return
	}

	meta, content, err := h.service.Get(r.Context(), bucket, key)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	defer func() { _ = content.Close() }()

	writeObjectHeaders(w, meta)
	http.ServeContent(w, r, "", meta.UpdatedAt, content)
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := objectKey(r, bucket)

	meta, err := h.service.Head(r.Context(), bucket, key)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeObjectHeaders(w, meta)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.Header().Set("Last-Modified", meta.UpdatedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := objectKey(r, bucket)

	if isPresigned(r) {
		WriteS3Error(w, r, http.StatusNotImplemented, "NotImplemented", "Presigned URLs are not supported")
		return
	}

	if src := r.Header.Get("x-amz-copy-source"); src != "" {
		h.handleCopy(w, r, bucket, key, src)
		return
	}

	in := ossd.PutInput{
		Bucket:       bucket,
		Key:          key,
		ContentType:  r.Header.Get("Content-Type"),
		UserMetadata: userMetadataFromHeaders(r.Header),
	}

	meta, err := h.service.Put(r.Context(), in, requestBody(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("ETag", quoteETag(meta.ETag))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCopy(w http.ResponseWriter, r *http.Request, dstBucket, dstKey, src string) {
	srcBucket, srcKey, err := parseCopySource(src)
	if err != nil {
		WriteS3Error(w, r, http.StatusBadRequest, "InvalidArgument", err.Error())
		return
	}

	directive := ossd.DirectiveCopy
	if raw := r.Header.Get("x-amz-metadata-directive"); raw != "" {
		directive, err = ossd.ParseCopyDirective(raw)
		if err != nil {
			WriteS3Error(w, r, http.StatusBadRequest, "InvalidArgument", "x-amz-metadata-directive must be COPY or REPLACE")
			return
		}
	}

	in := ossd.CopyInput{
		SourceBucket: srcBucket,
		SourceKey:    srcKey,
		DestBucket:   dstBucket,
		DestKey:      dstKey,
		Directive:    directive,
	}
	if directive == ossd.DirectiveReplace {
		in.NewContentType = r.Header.Get("Content-Type")
		in.NewUserMetadata = userMetadataFromHeaders(r.Header)
	}

	meta, err := h.service.Copy(r.Context(), in)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	WriteXML(w, http.StatusOK, CopyObjectResult{
		ETag:         quoteETag(meta.ETag),
		LastModified: meta.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := objectKey(r, bucket)

	if err := h.service.Delete(r.Context(), bucket, key); err != nil {
		HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseCopySource splits an x-amz-copy-source header value into bucket and
// key. The value may carry a leading slash and percent-encoding.
func parseCopySource(src string) (bucket, key string, err error) {
	decoded, err := url.PathUnescape(src)
	if err != nil {
		return "", "", errors.New("x-amz-copy-source is not valid percent-encoding")
	}

	decoded = strings.TrimPrefix(decoded, "/")
	bucket, key, found := strings.Cut(decoded, "/")
	if !found || bucket == "" || key == "" {
		return "", "", errors.New("x-amz-copy-source must name a source as /bucket/key")
	}

	return bucket, key, nil
}

const userMetadataPrefix = "x-amz-meta-"

// userMetadataFromHeaders collects x-amz-meta-* request headers into a
// user metadata map. Header names are canonicalized to lowercase.
func userMetadataFromHeaders(headers http.Header) ossd.UserMetadata {
	var meta ossd.UserMetadata
	for name, values := range headers {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, userMetadataPrefix) || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = ossd.UserMetadata{}
		}
		meta[strings.TrimPrefix(lower, userMetadataPrefix)] = values[0]
	}
	return meta
}

func writeObjectHeaders(w http.ResponseWriter, meta ossd.ObjectMetadata) {
	w.Header().Set("ETag", quoteETag(meta.ETag))
	w.Header().Set("Content-Type", meta.ContentType.MIME())
	for name, value := range meta.UserMetadata {
		w.Header().Set(userMetadataPrefix+name, value)
	}
}

func quoteETag(etag string) string {
	return `"` + etag + `"`
}
