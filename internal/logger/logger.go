package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger writes JSON logs at debug and above to logFilePath, and echoes
// warnings and errors to stderr so the operator sees connection failures.
func NewLogger(logFilePath string) (*zap.Logger, error) {
	file, err := os.OpenFile(logFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logFilePath, err)
	}

	return newLogger(zapcore.AddSync(file), zapcore.Lock(os.Stderr), zapcore.DebugLevel), nil
}

func newLogger(fileSink, consoleSink zapcore.WriteSyncer, fileLevel zapcore.Level) *zap.Logger {
	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), fileSink, fileLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), consoleSink, zapcore.WarnLevel),
	)
	return zap.New(core, zap.AddCaller())
}
