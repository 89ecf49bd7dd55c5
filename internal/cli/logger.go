package cli

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// logTimeFormat is the timestamp layout of diagnostic lines.
const logTimeFormat = "15:04:05"

// NewLogger returns a slog logger backed by a charm log handler writing to w.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           lvl,
		Prefix:          "macrostub",
	})
	return slog.New(handler)
}
