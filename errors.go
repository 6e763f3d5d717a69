package ossd

import "errors"

var (
	// ErrNotFound is returned when a bucket or object does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs, including
	// consistency violations between the metadata index and content store
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when bucket, key, or pagination input fails validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration is returned when a feature is unsupported by this deployment
	ErrConfiguration = errors.New("configuration error")
)
