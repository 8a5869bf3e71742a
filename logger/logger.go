package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Production uses JSON with ISO8601
// timestamps; anything else uses the development console encoder. When
// cloudWatch is non-nil every entry is also written to it as JSON.
func New(env string, cloudWatch io.Writer) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cloudWatch == nil {
		return cfg.Build()
	}

	level := zap.NewAtomicLevelAt(cfg.Level.Level())
	console := zapcore.NewCore(consoleEncoder(env, cfg.EncoderConfig), zapcore.Lock(os.Stdout), level)
	remote := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), zapcore.AddSync(cloudWatch), level)

	return zap.New(zapcore.NewTee(console, remote), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func consoleEncoder(env string, ec zapcore.EncoderConfig) zapcore.Encoder {
	if env == "production" {
		return zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}
