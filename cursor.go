package ossd

import (
	"encoding/base64"
	"fmt"
)

// EncodeContinuationToken encodes the last returned key as an opaque
// pagination token. The next page starts strictly after this key in
// byte-lexicographic order, so pages stay stable under concurrent inserts
// and deletes except at the boundary key itself.
func EncodeContinuationToken(lastKey string) string {
	return base64.URLEncoding.EncodeToString([]byte(lastKey))
}

// DecodeContinuationToken decodes a pagination token back to the key it
// encodes. The empty token decodes to the empty key (first page).
func DecodeContinuationToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode continuation token: %w: %v", ErrInvalidInput, err)
	}

	if len(decoded) == 0 {
		return "", fmt.Errorf("decode continuation token: %w: empty key", ErrInvalidInput)
	}

	return string(decoded), nil
}

// PrefixUpperBound returns the smallest string that is byte-greater than
// every key carrying the given prefix, for use as an exclusive upper bound
// in listing queries. Matching by byte range instead of LIKE keeps prefix
// filtering byte-exact on every backend and needs no pattern escaping.
// Empty means the range is unbounded above.
func PrefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
