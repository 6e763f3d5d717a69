// Package http provides the S3-compatible HTTP layer for the ossd storage
// engine.
//
// The router exposes the subset of the S3 object protocol the engine
// implements:
//
//   - PUT /{bucket}/{key}      store an object, or copy when
//     x-amz-copy-source is present
//   - GET /{bucket}/{key}      stream object content
//   - HEAD /{bucket}/{key}     object metadata without a body
//   - DELETE /{bucket}/{key}   remove an object (idempotent)
//   - GET /{bucket}?list-type=2  paginated bucket listing
//   - GET /healthz             liveness probe
//
// Responses follow S3 conventions: ETags are quoted, user metadata rides
// x-amz-meta-* headers, listings and copies return XML bodies, and errors
// use the S3 <Error> envelope with codes NoSuchKey, InvalidArgument,
// NotImplemented and InternalError.
//
// Requests carrying presigned-URL query parameters (X-Amz-Signature and
// friends) are rejected with NotImplemented.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{}, engine)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
//	srv.ListenAndServe()
//
// The service parameter must implement the Service interface, which the
// ossd.Engine satisfies.
package http
