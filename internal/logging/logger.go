package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	consts "github.com/khanhnv2901/seca-audit/internal/shared/constants"
)

const FileName = "seca-audit.log"

type Options struct {
	// Dir holds the rotating log file. Empty disables file logging.
	Dir string
	// Console, when set, also writes human-readable lines to it.
	Console io.Writer
	Level   zapcore.Level
}

// New builds a logger that writes JSON to a rotating file and, optionally,
// console lines to Options.Console.
func New(opts Options) (*zap.Logger, error) {
	var cores []zapcore.Core

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, consts.DefaultDirPerm); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, FileName),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, opts.Level))
	}

	if opts.Console != nil {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(zapcore.AddSync(opts.Console)), opts.Level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
