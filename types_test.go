package ossd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ossd"
)

func TestUserMetadata_EncodeDecode(t *testing.T) {
	meta := ossd.UserMetadata{"owner": "alice", "project": "ossd"}

	encoded, err := meta.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)

	decoded, err := ossd.DecodeUserMetadata(encoded)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestUserMetadata_EmptyEncodesToEmptyString(t *testing.T) {
	encoded, err := ossd.UserMetadata{}.Encode()
	require.NoError(t, err)
	assert.Empty(t, encoded)

	encoded, err = ossd.UserMetadata(nil).Encode()
	require.NoError(t, err)
	assert.Empty(t, encoded)
}

func TestDecodeUserMetadata_Empty(t *testing.T) {
	decoded, err := ossd.DecodeUserMetadata("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeUserMetadata_Malformed(t *testing.T) {
	_, err := ossd.DecodeUserMetadata("{not json")
	assert.Error(t, err)
}

func TestParseCopyDirective(t *testing.T) {
	d, err := ossd.ParseCopyDirective("COPY")
	require.NoError(t, err)
	assert.Equal(t, ossd.DirectiveCopy, d)

	d, err = ossd.ParseCopyDirective("REPLACE")
	require.NoError(t, err)
	assert.Equal(t, ossd.DirectiveReplace, d)

	// Lowercase and unknown values are rejected; the header is defined
	// with uppercase values only.
	_, err = ossd.ParseCopyDirective("copy")
	assert.Error(t, err)

	_, err = ossd.ParseCopyDirective("MERGE")
	assert.Error(t, err)

	_, err = ossd.ParseCopyDirective("")
	assert.Error(t, err)
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, ossd.Tables{Objects: "objects"}.Validate())
	assert.NoError(t, ossd.Tables{Objects: "my_objects_v2"}.Validate())
	assert.NoError(t, ossd.Tables{Objects: "_private"}.Validate())

	assert.Error(t, ossd.Tables{}.Validate())
	assert.Error(t, ossd.Tables{Objects: "Objects"}.Validate())
	assert.Error(t, ossd.Tables{Objects: "1objects"}.Validate())
	assert.Error(t, ossd.Tables{Objects: "objects; drop table"}.Validate())
}

func TestIsValidTableName(t *testing.T) {
	assert.True(t, ossd.IsValidTableName("objects"))
	assert.False(t, ossd.IsValidTableName(""))
	assert.False(t, ossd.IsValidTableName("has-dash"))
	assert.False(t, ossd.IsValidTableName("x1234567890123456789012345678901234567890123456789012345678901234"))
}
