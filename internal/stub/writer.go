package stub

import (
	"bufio"
	"io"
	"strings"
)

const indentUnit = "    "

// Writer emits stub text with block indentation. The first write error is
// kept and returned by Flush; later writes become no-ops.
type Writer struct {
	out   *bufio.Writer
	depth int
	err   error
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.out.WriteString(s)
}

// Indented writes s at the current depth without a line break.
func (w *Writer) Indented(s string) {
	w.write(strings.Repeat(indentUnit, w.depth))
	w.write(s)
}

// Raw writes s as is.
func (w *Writer) Raw(s string) {
	w.write(s)
}

// Line writes s at the current depth followed by a newline.
func (w *Writer) Line(s string) {
	w.Indented(s)
	w.write("\n")
}

// Newline ends the current line.
func (w *Writer) Newline() {
	w.write("\n")
}

// Open writes header and indents the lines that follow until Close.
func (w *Writer) Open(header string) {
	w.Line(header + " {")
	w.depth++
}

// Close ends a block started with Open.
func (w *Writer) Close() {
	if w.depth > 0 {
		w.depth--
	}
	w.Line("}")
}

// Depth returns the current nesting level.
func (w *Writer) Depth() int {
	return w.depth
}

// Flush writes any buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.out.Flush()
	return w.err
}
