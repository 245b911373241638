package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the service logger. Development environments get a text handler
// on stdout; everything else logs JSON. Unknown levels fall back to info.
func New(level string, dev bool) *slog.Logger {
	if dev {
		return slog.New(slog.NewTextHandler(os.Stdout, options(level)))
	}
	return NewJSON(os.Stdout, level)
}

// NewJSON builds a JSON logger writing to w.
func NewJSON(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, options(level)))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

func options(level string) *slog.HandlerOptions {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}
	return &slog.HandlerOptions{Level: lvl}
}
