package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar selects the log level (debug, info, warn, error) when no
// level is passed to Initialize. Unset means no output at all.
const LogLevelEnvVar = "WATERING_LOG_LEVEL"

// Initialize builds a console logger at level, falling back to
// LogLevelEnvVar. An unknown level name means info.
func Initialize(level string) error {
	return InitializeWithFormat(level, "console")
}

// InitializeWithFormat is Initialize with an explicit encoding ("console" or "json").
func InitializeWithFormat(level, format string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	if format != "json" {
		format = "console"
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger, or a no-op logger before Initialize.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// LogConnection logs a connection event of an API client (websocket, MQTT broker)
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogFrame logs a radio frame exchanged with the controller.
// direction is "rx" or "tx", addr the remote radio address.
func LogFrame(direction string, addr uint8, data []byte) {
	fields := []zap.Field{
		zap.String("direction", direction),
		zap.String("addr", fmt.Sprintf("0x%02X", addr)),
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
	}
	if len(data) > 0 {
		fields = append(fields, zap.String("opcode", fmt.Sprintf("0x%02X", data[0])))
	}
	Debug("Radio frame", fields...)
}

// LogHTTPRequest logs a served HTTP request
func LogHTTPRequest(remoteAddr, method, path string, status int, duration time.Duration) {
	Info("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
}

const maxDumpBytes = 256

func hexDump(data []byte) string {
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

// Sync flushes buffered entries. Call it before exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
