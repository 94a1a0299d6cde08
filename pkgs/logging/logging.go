// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// File appends JSON logs to the given path instead of stderr.
	File string
}

// New returns a logger writing console output to stderr, or JSON lines to
// Options.File when set. The returned func flushes buffered entries and
// closes the log file.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zap.WarnLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		core      zapcore.Core
		closeFile = func() {}
	)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level)
		closeFile = func() { _ = f.Close() }
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	}

	log := zap.New(core)
	return log, func() {
		_ = log.Sync()
		closeFile()
	}, nil
}
