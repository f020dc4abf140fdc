package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config mirrors model.LogConfig without importing the model package.
type Config struct {
	Level    string
	Encoding string

	// Path is the log file. Empty means the fallback writer.
	Path string
}

// New builds a zap.Logger from cfg. Output goes to cfg.Path when set,
// otherwise to fallback (stderr when nil). The returned close function
// releases the log file.
func New(cfg Config, fallback io.Writer) (*zap.Logger, func() error, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		// fall back to info level if parsing fails
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	closeFn := func() error { return nil }
	var sink zapcore.WriteSyncer
	switch {
	case cfg.Path != "":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.Path, err)
		}
		sink = zapcore.Lock(f)
		closeFn = f.Close
	case fallback != nil:
		sink = zapcore.Lock(zapcore.AddSync(fallback))
	default:
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()), closeFn, nil
}

// Component returns base scoped to a named component.
func Component(base *zap.Logger, name string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(name)
}
