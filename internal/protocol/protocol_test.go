package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewCodec(&buf, bytes.NewReader(nil))

	req, err := NewRequest(3, "tools/call", map[string]any{"name": "ping"})
	require.NoError(t, err)
	require.NoError(t, enc.Encode(req))

	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])

	dec := NewCodec(io.Discard, bytes.NewReader([]byte(`{"jsonrpc":"2.0","id":3,"result":{"ok":true}}`+"\n")))
	resp, err := dec.DecodeLine()
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.ID)
	assert.Nil(t, resp.Error)
}

func TestDecodeLineSkipsBlankLines(t *testing.T) {
	r := bytes.NewReader([]byte("\n\n" + `{"jsonrpc":"2.0","id":1,"result":null}` + "\n"))
	c := NewCodec(io.Discard, r)
	resp, err := c.DecodeLine()
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.ID)
}

func TestDecodeLineTruncatedOnEOFIsMalformed(t *testing.T) {
	r := bytes.NewReader([]byte(`{"jsonrpc":"2.0","id":1`)) // no closing brace, no newline
	c := NewCodec(io.Discard, r)
	_, err := c.DecodeLine()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeLineCleanEOF(t *testing.T) {
	c := NewCodec(io.Discard, bytes.NewReader(nil))
	_, err := c.DecodeLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNotificationHasNoID(t *testing.T) {
	n, err := NewNotification("notifications/initialized", nil)
	require.NoError(t, err)
	assert.Nil(t, n.ID)
	assert.Empty(t, n.Params)
}
