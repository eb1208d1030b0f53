package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"syscall"
	"time"

	defaults "github.com/mcuadros/go-defaults"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	JSON      bool `yaml:"json" default:"false"`       // JSON output instead of console
	NoColor   bool `yaml:"no_color" default:"false"`   // plain level names
	Verbose   int  `yaml:"verbose" default:"0"`        // 0 is info, 1 and above is debug
	Quiet     bool `yaml:"quiet" default:"false"`      // raise the level to warn
	AddCaller bool `yaml:"add_caller" default:"false"` // annotate entries with the caller

	// Output overrides stderr.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a Config with its default tags applied.
func DefaultConfig() Config {
	var cfg Config
	defaults.SetDefaults(&cfg)
	return cfg
}

// Level is the minimum level cfg lets through.
func (cfg Config) Level() zapcore.Level {
	switch {
	case cfg.Quiet:
		return zapcore.WarnLevel
	case cfg.Verbose > 0:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func NewLogger(cfg Config) (*zap.Logger, func(context.Context) error, error) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339)) },
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		if cfg.NoColor || cfg.Output != nil || runtime.GOOS == "windows" {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		} else {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	// CLI output goes to stderr so stdout stays clean for command results.
	var ws zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if cfg.Output != nil {
		ws = zapcore.AddSync(cfg.Output)
	}

	level := cfg.Level()
	core := zapcore.NewCore(enc, ws, level)

	opts := []zap.Option{
		zap.ErrorOutput(ws),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.AddCaller || level == zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller())
	}

	lg := zap.New(core, opts...)

	cleanup := func(_ context.Context) error {
		if err := lg.Sync(); err != nil {
			// Sync on a terminal fails with EINVAL and friends on most platforms.
			if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTSUP) || errors.Is(err, syscall.EBADF) {
				return nil
			}
			return err
		}
		return nil
	}
	return lg, cleanup, nil
}
