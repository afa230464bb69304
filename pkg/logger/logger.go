// Package logger builds the zap loggers used by every service process.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tunes the logger beyond the environment defaults.
type Options struct {
	// File, when set, adds a rotating file sink next to stdout.
	File string
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept.
	MaxBackups int
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int
}

// New creates a logger for the given environment. Development gets a colored
// console encoder at debug level; everything else gets JSON at info level.
func New(env string, opts Options) (*zap.Logger, error) {
	dev := env == "development"

	encCfg := zap.NewProductionEncoderConfig()
	if dev {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	level := zap.InfoLevel
	if dev {
		level = zap.DebugLevel
	}

	var encoder zapcore.Encoder = zapcore.NewJSONEncoder(encCfg)
	if dev {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}
	if opts.File != "" {
		fileCfg := encCfg
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    orDefault(opts.MaxSizeMB, 10),
				MaxBackups: orDefault(opts.MaxBackups, 7),
				MaxAge:     orDefault(opts.MaxAgeDays, 28),
				Compress:   true,
			}),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)), nil
}

// NewNamed creates a logger tagged with the service name.
func NewNamed(env, service string, opts ...Options) (*zap.Logger, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	l, err := New(env, o)
	if err != nil {
		return nil, err
	}
	return l.Named(service).With(zap.String("service", service)), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
