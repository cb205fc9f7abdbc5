// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"pilite-service/internal/config"
)

const defaultLogFile = "./logs/pilite-service.log"

// NewLogger builds the process logger from the logging section
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	sink, err := logSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log sink: %w", err)
	}

	core := zapcore.NewCore(logEncoder(cfg.Format), sink, level)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func logEncoder(format string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	if format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		return zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewJSONEncoder(encCfg)
}

// logSink maps "stdout"/"stderr" to the process streams; anything else is a
// file path rotated by lumberjack
func logSink(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}

	path := cfg.Output
	if path == "" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}

// DeviceLogger tags entries with the display and the layer emitting them
type DeviceLogger struct {
	*zap.Logger
}

// NewDeviceLogger creates a display-scoped logger
func NewDeviceLogger(baseLogger *zap.Logger, device, layer string) *DeviceLogger {
	return &DeviceLogger{
		Logger: baseLogger.With(
			zap.String("device", device),
			zap.String("layer", layer),
		),
	}
}

// LogConnection logs an open or close of the display link
func (dl *DeviceLogger) LogConnection(action string, success bool, err error) {
	if err != nil {
		dl.Error("Display connection failed",
			zap.String("action", action),
			zap.Bool("success", success),
			zap.Error(err),
		)
		return
	}
	dl.Info("Display connection event",
		zap.String("action", action),
		zap.Bool("success", success),
	)
}

// LogCommand logs one encoded command and its delivery status. The command
// is quoted so the trailing \r stays visible.
func (dl *DeviceLogger) LogCommand(command string, status string, err error) {
	fields := []zap.Field{
		zap.String("command", strconv.Quote(command)),
		zap.String("status", status),
	}

	if err != nil {
		dl.Warn("Display command not delivered", append(fields, zap.Error(err))...)
		return
	}
	dl.Debug("Display command delivered", fields...)
}

// OperationLogger follows one long-running animation
type OperationLogger struct {
	logger    *zap.Logger
	startTime time.Time
}

func NewOperationLogger(baseLogger *zap.Logger, operationType, operationID string) *OperationLogger {
	return &OperationLogger{
		logger: baseLogger.With(
			zap.String("operation_type", operationType),
			zap.String("operation_id", operationID),
		),
		startTime: time.Now(),
	}
}

func (ol *OperationLogger) Start(fields ...zap.Field) {
	ol.logger.Info("Operation started", fields...)
}

func (ol *OperationLogger) Success(fields ...zap.Field) {
	ol.logger.Info("Operation completed", ol.withElapsed(fields)...)
}

func (ol *OperationLogger) Error(err error, fields ...zap.Field) {
	ol.logger.Error("Operation failed", ol.withElapsed(fields, zap.Error(err))...)
}

// Progress logs at debug so per-frame entries stay out of production logs
func (ol *OperationLogger) Progress(message string, progress float64, fields ...zap.Field) {
	ol.logger.Debug(message, ol.withElapsed(fields, zap.Float64("progress", progress))...)
}

func (ol *OperationLogger) Cancelled(reason error, fields ...zap.Field) {
	ol.logger.Info("Operation cancelled", ol.withElapsed(fields, zap.NamedError("reason", reason))...)
}

func (ol *OperationLogger) withElapsed(fields []zap.Field, extra ...zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+len(extra)+1)
	out = append(out, zap.Duration("elapsed", time.Since(ol.startTime)))
	out = append(out, extra...)
	return append(out, fields...)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	return &ServiceLogger{Logger: baseLogger.With(zap.String("service", serviceName))}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, config interface{}) {
	sl.Info("Service starting",
		zap.String("version", version),
		zap.Any("config", config),
	)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// LogAPIRequest logs one HTTP request at a level chosen by its status
func (sl *ServiceLogger) LogAPIRequest(method, path, userAgent, clientIP string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	switch {
	case statusCode >= 500:
		level = zapcore.ErrorLevel
	case statusCode >= 400:
		level = zapcore.WarnLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.String("user_agent", userAgent),
			zap.String("client_ip", clientIP),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
		)
	}
}

// LoggerWithRequestID adds request ID to logger
func LoggerWithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID))
}

// LogError logs err first, followed by any extra fields
func LogError(logger *zap.Logger, message string, err error, fields ...zap.Field) {
	logger.Error(message, append([]zap.Field{zap.Error(err)}, fields...)...)
}

// LogPanic must be deferred; it logs a panic with its stack and exits
func LogPanic(logger *zap.Logger) {
	if r := recover(); r != nil {
		logger.Fatal("Application panic",
			zap.Any("panic", r),
			zap.Stack("stacktrace"),
		)
	}
}

// CloseLogger flushes buffered log entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
