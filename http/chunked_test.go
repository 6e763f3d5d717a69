package http

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedPayloadReader(t *testing.T) {
	t.Run("decodes signed chunks", func(t *testing.T) {
		framed := "5;chunk-signature=deadbeef\r\nhello\r\n" +
			"6;chunk-signature=deadbeef\r\n world\r\n" +
			"0;chunk-signature=deadbeef\r\n\r\n"

		decoded, err := io.ReadAll(newChunkedPayloadReader(strings.NewReader(framed)))
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(decoded))
	})

	t.Run("decodes unsigned payload with trailers", func(t *testing.T) {
		framed := "b\r\nhello world\r\n" +
			"0\r\nx-amz-checksum-crc32c:wdBDMA==\r\n\r\n"

		decoded, err := io.ReadAll(newChunkedPayloadReader(strings.NewReader(framed)))
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(decoded))
	})

	t.Run("empty payload", func(t *testing.T) {
		decoded, err := io.ReadAll(newChunkedPayloadReader(strings.NewReader("0\r\n\r\n")))
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("small read buffer", func(t *testing.T) {
		framed := "5\r\nhello\r\n0\r\n\r\n"
		r := newChunkedPayloadReader(strings.NewReader(framed))

		var out []byte
		buf := make([]byte, 2)
		for {
			n, err := r.Read(buf)
			out = append(out, buf[:n]...)
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		assert.Equal(t, "hello", string(out))
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		_, err := io.ReadAll(newChunkedPayloadReader(strings.NewReader("zz\r\nhello\r\n")))
		assert.Error(t, err)
	})

	t.Run("truncated body", func(t *testing.T) {
		_, err := io.ReadAll(newChunkedPayloadReader(strings.NewReader("5\r\nhe")))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("missing final chunk", func(t *testing.T) {
		_, err := io.ReadAll(newChunkedPayloadReader(strings.NewReader("5\r\nhello\r\n")))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestRequestBody(t *testing.T) {
	t.Run("plain body passes through", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/docs/file.txt", strings.NewReader("plain"))

		body, err := io.ReadAll(requestBody(r))
		require.NoError(t, err)
		assert.Equal(t, "plain", string(body))
	})

	t.Run("streaming sha256 marker triggers decoding", func(t *testing.T) {
		framed := "5;chunk-signature=deadbeef\r\nhello\r\n0;chunk-signature=deadbeef\r\n\r\n"
		r := httptest.NewRequest("PUT", "/docs/file.txt", strings.NewReader(framed))
		r.Header.Set("X-Amz-Content-Sha256", "STREAMING-AWS4-HMAC-SHA256-PAYLOAD")

		body, err := io.ReadAll(requestBody(r))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("unsigned trailer marker triggers decoding", func(t *testing.T) {
		framed := "5\r\nhello\r\n0\r\n\r\n"
		r := httptest.NewRequest("PUT", "/docs/file.txt", strings.NewReader(framed))
		r.Header.Set("X-Amz-Content-Sha256", "STREAMING-UNSIGNED-PAYLOAD-TRAILER")

		body, err := io.ReadAll(requestBody(r))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	})
}
