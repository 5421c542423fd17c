package chunked

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterFramesChunks(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	// zero-length writes must not emit a terminal-looking chunk
	_, err = w.Write(nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "5\r\nhello\r\n10\r\n0123456789abcdef\r\n0\r\n\r\n", buf.String())
}

func TestReaderDecodes(t *testing.T) {
	r := NewReader(strings.NewReader("5\r\nhello\r\n8\r\n, world!\r\n0\r\n\r\n"))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello, world!", string(out))
}

func TestRoundTripThroughWire(t *testing.T) {
	var wire bytes.Buffer
	w := NewWriter(&wire)
	payload := strings.Repeat("chunked data ", 500)
	_, err := io.Copy(w, strings.NewReader(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := io.ReadAll(NewReader(&wire))
	require.NoError(t, err)
	assert.Equal(t, payload, string(out))
}

func TestReaderRejectsBadLength(t *testing.T) {
	_, err := io.ReadAll(NewReader(strings.NewReader("zz\r\nhello\r\n0\r\n\r\n")))
	assert.Error(t, err)
}

func TestReaderTruncatedStream(t *testing.T) {
	_, err := io.ReadAll(NewReader(strings.NewReader("5\r\nhe")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderMissingTerminal(t *testing.T) {
	_, err := io.ReadAll(NewReader(strings.NewReader("5\r\nhello\r\n")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
