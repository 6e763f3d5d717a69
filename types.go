package ossd

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ObjectMetadata is one live object's metadata row. The metadata index is
// the source of truth for existence: a row exists iff the content file for
// (Bucket, Key) is fully written and published.
type ObjectMetadata struct {
	Bucket        string       `json:"bucket"`
	Key           string       `json:"key"`
	ContentType   ContentType  `json:"content_type"`
	ContentLength int64        `json:"content_length"`
	Size          int64        `json:"size"`
	ETag          string       `json:"etag"`
	UserMetadata  UserMetadata `json:"user_metadata,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// ObjectRecord is the write-side form of a metadata row passed to Upsert.
type ObjectRecord struct {
	Bucket        string
	Key           string
	ContentType   ContentType
	ContentLength int64
	Size          int64
	ETag          string
	UserMetadata  UserMetadata
}

// ObjectEntry describes a file found in the content store during a walk.
type ObjectEntry struct {
	Key  string
	Size int64
	ETag string
}

// UserMetadata holds caller-supplied key/value pairs, opaque to the engine.
// It is persisted as a JSON object and echoed verbatim on GET/HEAD.
type UserMetadata map[string]string

// Encode serializes the metadata to its stored JSON form.
// Empty metadata encodes to the empty string.
func (m UserMetadata) Encode() (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode user metadata: %w", err)
	}
	return string(b), nil
}

// DecodeUserMetadata parses the stored JSON form back into a map.
func DecodeUserMetadata(s string) (UserMetadata, error) {
	if s == "" {
		return nil, nil
	}
	var m UserMetadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode user metadata: %w", err)
	}
	return m, nil
}

// ListQuery selects a lexicographically ordered page of metadata rows.
type ListQuery struct {
	Bucket   string
	Prefix   string
	AfterKey string // page starts strictly after this key
	Limit    int
}

// ListResult is one page of metadata rows in byte-lexicographic key order.
type ListResult struct {
	Items     []ObjectMetadata
	Truncated bool
}

// ListPage is the engine-level listing result with an opaque cursor.
type ListPage struct {
	Items                 []ObjectMetadata `json:"items"`
	IsTruncated           bool             `json:"is_truncated"`
	NextContinuationToken string           `json:"next_continuation_token,omitempty"`
}

// SaveResult reports a completed content-store write.
type SaveResult struct {
	BytesWritten int64
	ETag         string
}

// PutInput carries the caller-controlled parts of a Put request.
// ContentType is the raw MIME string; the engine maps it onto the
// closed content-type code table.
type PutInput struct {
	Bucket       string
	Key          string
	ContentType  string
	UserMetadata UserMetadata
}

// CopyDirective selects how destination metadata is produced by Copy.
type CopyDirective string

const (
	// DirectiveCopy inherits the source object's content type and user metadata.
	DirectiveCopy CopyDirective = "COPY"
	// DirectiveReplace uses caller-supplied metadata only, with no merge.
	DirectiveReplace CopyDirective = "REPLACE"
)

func (d CopyDirective) IsValid() bool {
	switch d {
	case DirectiveCopy, DirectiveReplace:
		return true
	default:
		return false
	}
}

// ParseCopyDirective parses the x-amz-metadata-directive header value.
func ParseCopyDirective(s string) (CopyDirective, error) {
	d := CopyDirective(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid metadata directive: %s (valid directives: COPY, REPLACE)", s)
	}
	return d, nil
}

// CopyInput carries the parameters of a Copy request. NewContentType and
// NewUserMetadata are consulted only when Directive is REPLACE.
type CopyInput struct {
	SourceBucket    string
	SourceKey       string
	DestBucket      string
	DestKey         string
	Directive       CopyDirective
	NewContentType  string
	NewUserMetadata UserMetadata
}

// Tables holds configurable table names for the metadata index.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Objects string `mapstructure:"objects"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Objects == "" {
		return errors.New("validate tables: objects table name cannot be empty")
	}

	if !IsValidTableName(t.Objects) {
		return fmt.Errorf("validate tables: invalid objects table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Objects)
	}

	return nil
}
