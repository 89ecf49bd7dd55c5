package stub

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Blocks(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Open("namespace A")
	w.Open("class B")
	assert.Equal(t, 2, w.Depth())
	w.Indented("x(")
	w.Raw("$y")
	w.Raw(")")
	w.Newline()
	w.Close()
	w.Close()
	w.Close() // extra Close does not go negative
	require.NoError(t, w.Flush())

	assert.Equal(t, "namespace A {\n    class B {\n        x($y)\n    }\n}\n}\n", buf.String())
}

func TestWriter_StickyError(t *testing.T) {
	w := NewWriter(failingWriter{})
	// Large enough to overflow the buffer and hit the sink.
	w.Line(string(bytes.Repeat([]byte("x"), 8192)))
	w.Line("after")
	assert.ErrorIs(t, w.Flush(), errSink)
	assert.ErrorIs(t, w.Flush(), errSink)
}
