package fileserver

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDescriptor(t *testing.T, data []byte) Descriptor {
	t.Helper()
	var d Descriptor
	require.NoError(t, json.Unmarshal(data, &d), "body: %s", data)
	return d
}

func TestWriteFileDescriptor(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Plain", "hello world"},
		{"Escapes", "quote \" backslash \\ tab \t newline \n"},
		{"HTMLNotEscaped", "<b>bold</b> & more"},
		{"MultiByte", "héllo wörld 日本語 🎉"},
		{"ControlChars", "\x00\x01\x1f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			// One byte per read splits every multi-byte rune across chunks.
			require.NoError(t, writeFileDescriptor(&buf, iotest.OneByteReader(strings.NewReader(tt.input))))

			d := decodeDescriptor(t, buf.Bytes())
			assert.Equal(t, DescriptorFile, d.Type)
			assert.Equal(t, tt.input, d.Value)
		})
	}
}

func TestWriteFileDescriptor_HTMLStaysLiteral(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFileDescriptor(&buf, strings.NewReader("<a>")))
	assert.Equal(t, `{"type":"file","value":"<a>"}`, buf.String())
}

func TestWriteFileDescriptor_InvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFileDescriptor(&buf, bytes.NewReader([]byte{'a', 0xff, 'b'})))

	d := decodeDescriptor(t, buf.Bytes())
	assert.Equal(t, "a�b", d.Value)
}

func TestWrapFileDescriptor_Large(t *testing.T) {
	input := strings.Repeat("línea número ✓\n", 10000)

	rc := wrapFileDescriptor(io.NopCloser(strings.NewReader(input)))
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, input, decodeDescriptor(t, data).Value)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestWrapFileDescriptor_ReaderErrorPropagates(t *testing.T) {
	src := &closeTracker{Reader: iotest.ErrReader(io.ErrUnexpectedEOF)}

	rc := wrapFileDescriptor(src)
	_, err := io.ReadAll(rc)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NoError(t, rc.Close())
}

func TestCompleteRunes(t *testing.T) {
	euro := []byte("€") // 3 bytes

	assert.Equal(t, 0, completeRunes(euro[:1]))
	assert.Equal(t, 0, completeRunes(euro[:2]))
	assert.Equal(t, 3, completeRunes(euro))
	assert.Equal(t, 1, completeRunes(append([]byte("a"), euro[:2]...)))
	assert.Equal(t, 2, completeRunes([]byte("ab")))
}
