package ossd_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/ossd"
)

func TestValidateBucket(t *testing.T) {
	valid := []string{
		"photos",
		"my-bucket",
		"my_bucket.v2",
		"B2",
		"a",
		strings.Repeat("a", 255),
	}
	for _, name := range valid {
		t.Run("valid "+name, func(t *testing.T) {
			assert.NoError(t, ossd.ValidateBucket(name))
		})
	}

	invalid := []string{
		"",
		strings.Repeat("a", 256),
		"has/slash",
		"has space",
		"dots..inside",
		"ünïcode",
		"semi;colon",
	}
	for _, name := range invalid {
		t.Run("invalid "+name, func(t *testing.T) {
			err := ossd.ValidateBucket(name)
			assert.ErrorIs(t, err, ossd.ErrInvalidInput)
		})
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{
		"file.txt",
		"docs/2026/report.pdf",
		"with space.txt",
		"ünïcode-名前.txt",
		"trailing.dots...txt",
		"..leading-dots-in-name",
		strings.Repeat("k", 1024),
	}
	for _, key := range valid {
		t.Run("valid "+key, func(t *testing.T) {
			assert.NoError(t, ossd.ValidateKey(key))
		})
	}

	invalid := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("k", 1025)},
		{"absolute", "/etc/passwd"},
		{"trailing slash", "dir/"},
		{"parent segment", "../escape"},
		{"inner parent segment", "docs/../../etc/passwd"},
		{"dot segment", "docs/./file.txt"},
		{"empty segment", "docs//file.txt"},
		{"nul byte", "file\x00.txt"},
		{"newline", "file\n.txt"},
		{"del", "file\x7f.txt"},
		{"invalid utf8", "file\xff\xfe.txt"},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.name, func(t *testing.T) {
			err := ossd.ValidateKey(tt.key)
			assert.ErrorIs(t, err, ossd.ErrInvalidInput)
		})
	}
}
