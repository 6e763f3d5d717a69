package ossd

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxBucketLen = 255
	maxKeyLen    = 1024 // matches the object_key column width
)

// ValidateBucket checks a bucket name: 1-255 characters drawn from letters,
// digits, '-', '.' and '_'. Bucket names map directly to directory names
// under the storage root, so the charset is deliberately narrow.
func ValidateBucket(name string) error {
	if name == "" {
		return fmt.Errorf("%w: bucket name cannot be empty", ErrInvalidInput)
	}
	if len(name) > maxBucketLen {
		return fmt.Errorf("%w: bucket name exceeds %d characters", ErrInvalidInput, maxBucketLen)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '.' || c == '_':
		default:
			return fmt.Errorf("%w: bucket name contains invalid character %q", ErrInvalidInput, c)
		}
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: bucket name contains '..'", ErrInvalidInput)
	}
	return nil
}

// ValidateKey checks an object key. Keys may contain '/' but must stay
// inside the bucket root after normalization:
//   - non-empty, at most 1024 bytes, valid UTF-8
//   - relative (no leading '/') and not ending with '/'
//   - no '..' or '.' path segments, no empty segments ("//")
//   - no NUL, control characters, or DEL
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: object key cannot be empty", ErrInvalidInput)
	}
	if len(key) > maxKeyLen {
		return fmt.Errorf("%w: object key exceeds %d bytes", ErrInvalidInput, maxKeyLen)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: object key is not valid UTF-8", ErrInvalidInput)
	}
	if key[0] == '/' {
		return fmt.Errorf("%w: object key cannot be absolute", ErrInvalidInput)
	}
	if strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: object key cannot end with '/'", ErrInvalidInput)
	}
	for _, seg := range strings.Split(key, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: object key contains an empty path segment", ErrInvalidInput)
		case ".", "..":
			return fmt.Errorf("%w: object key contains a %q path segment", ErrInvalidInput, seg)
		}
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: object key contains a control character", ErrInvalidInput)
		}
	}
	return nil
}
