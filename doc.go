// Package ossd implements a filesystem-backed object storage engine with an
// AWS-S3-compatible surface: Put, Get, Head, Delete, CopyObject, and
// ListObjectsV2 over buckets and keys.
//
// Two independently failing stores are kept in agreement: raw bytes live as
// one file per object under a storage root, and structured metadata lives
// in a relational table keyed by (bucket, key). The metadata row is the
// visibility barrier: content is published atomically first, then the row
// is committed, so a reader that sees the row is guaranteed the content is
// durable.
//
// # Key Components
//
//   - Engine: orchestrator owning per-key mutation serialization and the
//     two-store consistency protocol
//   - MetadataRepo: metadata index interface (PostgreSQL, SQLite backends)
//   - ContentStore: byte storage interface (filesystem backend)
//   - ContentType: closed content-type code table; unknown MIME types map
//     to the generic binary code
//
// # Example Usage
//
//	engine, err := ossd.NewEngine(repo, store, ossd.EngineConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	meta, err := engine.Put(ctx, ossd.PutInput{
//	    Bucket:      "assets",
//	    Key:         "img/logo.png",
//	    ContentType: "image/png",
//	}, reader)
//
// See the http package for the S3 protocol adapter and the database
// packages for metadata index backends.
package ossd
