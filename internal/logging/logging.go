// Package logging builds the structured diagnostics logger for a run.
package logging

import (
	"io"
	"os"

	"github.com/acarl005/stripansi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the run.
// With a sink attached, records go to the sink at info level so they sit
// next to the build and test output. Without one, they go to stderr at warn
// level, or debug level when verbose is set.
func New(sink io.Writer, verbose bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeCaller = nil

	var ws zapcore.WriteSyncer
	level := zapcore.WarnLevel
	if sink != nil {
		ws = zapcore.AddSync(sink)
		level = zapcore.InfoLevel
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		ws = zapcore.Lock(os.Stderr)
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, zap.NewAtomicLevelAt(level))
	return zap.New(core)
}

// StripWriter removes ANSI escape sequences before forwarding writes.
// Suite binaries colorize their output when they detect a terminal; the
// escapes are noise in a log file.
type StripWriter struct {
	w io.Writer
}

// NewStripWriter wraps w.
func NewStripWriter(w io.Writer) *StripWriter {
	return &StripWriter{w: w}
}

// Write strips escapes from p and writes the rest. It reports len(p) on
// success so callers such as io.Copy do not treat the shorter write as an error.
func (s *StripWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(s.w, stripansi.Strip(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
