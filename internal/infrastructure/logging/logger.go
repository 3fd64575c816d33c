package logging

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geniibooks/entitlements/internal/infrastructure/config"
)

var Logger *zap.Logger

// Init initializes the global logger and, when a DSN is configured,
// the Sentry client. Errors and above are forwarded to Sentry.
func Init(cfg *config.SentryConfig) error {
	var err error
	var zapConfig zap.Config

	environment := "production"
	if cfg != nil && cfg.Environment != "" {
		environment = cfg.Environment
	}

	if environment == "development" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	Logger, err = zapConfig.Build()
	if err != nil {
		return err
	}

	if cfg != nil && cfg.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.DSN,
			Environment: environment,
			Release:     cfg.Release,
		}); err != nil {
			return err
		}
		Logger = Logger.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
			if entry.Level >= zapcore.ErrorLevel {
				sentry.CaptureMessage(entry.Message)
			}
			return nil
		}))
	}

	return nil
}

// Sync flushes any buffered log entries and pending Sentry events
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	sentry.Flush(2 * time.Second)
}

// WithComponent creates a child logger with a component field
func WithComponent(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// WithIdentityID creates a child logger with an identity_id field
func WithIdentityID(identityID string) *zap.Logger {
	return Logger.With(zap.String("identity_id", identityID))
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
	os.Exit(1)
}
