package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// streamingPayloadPrefix marks the X-Amz-Content-Sha256 values used by AWS
// Signature Version 4 streaming uploads (signed chunks and unsigned payload
// with trailers). Both frame the body the same way:
//
//	<size-hex>[;extensions]\r\n<data>\r\n ... 0\r\n[trailers]\r\n
const streamingPayloadPrefix = "STREAMING-"

// requestBody returns the decoded object payload for an upload request. S3
// clients on plain HTTP wrap the body in aws-chunked framing; storing that
// framing verbatim would corrupt the object and its ETag.
func requestBody(r *http.Request) io.Reader {
	sha := r.Header.Get("X-Amz-Content-Sha256")
	if strings.HasPrefix(strings.ToUpper(sha), streamingPayloadPrefix) {
		return newChunkedPayloadReader(r.Body)
	}
	return r.Body
}

// chunkedPayloadReader streams the decoded payload out of aws-chunked
// framing. Chunk signatures and trailers are not verified, only stripped.
type chunkedPayloadReader struct {
	br        *bufio.Reader
	remaining int64
	first     bool
	done      bool
}

func newChunkedPayloadReader(body io.Reader) *chunkedPayloadReader {
	return &chunkedPayloadReader{br: bufio.NewReader(body), first: true}
}

func (c *chunkedPayloadReader) Read(p []byte) (int, error) {
	if c.done {
		return 0, io.EOF
	}

	if c.remaining == 0 {
		if err := c.nextChunk(); err != nil {
			return 0, err
		}
		if c.done {
			return 0, io.EOF
		}
	}

	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.br.Read(p)
	c.remaining -= int64(n)
	if errors.Is(err, io.EOF) && c.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// nextChunk consumes the CRLF terminating the previous chunk's data and the
// following chunk header. A zero-size header is the final chunk; any trailer
// headers after it are left unread.
func (c *chunkedPayloadReader) nextChunk() error {
	if !c.first {
		if err := c.expectCRLF(); err != nil {
			return err
		}
	}
	c.first = false

	line, err := c.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read chunk header: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if idx := strings.IndexByte(line, ';'); idx != -1 {
		line = line[:idx]
	}

	size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
	if err != nil || size < 0 {
		return fmt.Errorf("invalid chunk size %q", line)
	}

	if size == 0 {
		c.done = true
		return nil
	}
	c.remaining = size
	return nil
}

func (c *chunkedPayloadReader) expectCRLF() error {
	for _, want := range []byte{'\r', '\n'} {
		b, err := c.br.ReadByte()
		if err != nil {
			return fmt.Errorf("read chunk terminator: %w", err)
		}
		if b != want {
			return fmt.Errorf("malformed chunk terminator: got %q", b)
		}
	}
	return nil
}
