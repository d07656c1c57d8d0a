package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
	LogLevelPanic LogLevel = "panic"
)

type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
)

type LoggingConfig struct {
	Level      LogLevel        `yaml:"level" mapstructure:"level"`
	Format     LogFormat       `yaml:"format" mapstructure:"format"`
	Output     string          `yaml:"output" mapstructure:"output"`
	TimeFormat string          `yaml:"time_format" mapstructure:"time_format"`
	Rotation   RotationConfig  `yaml:"rotation" mapstructure:"rotation"`
	Sampling   *SamplingConfig `yaml:"sampling" mapstructure:"sampling"`
}

// RotationConfig applies when Output names a file.
type RotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

type SamplingConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Tick       time.Duration `yaml:"tick" mapstructure:"tick"`
	First      int           `yaml:"first" mapstructure:"first"`
	Thereafter int           `yaml:"thereafter" mapstructure:"thereafter"`
}

type Logger struct {
	logger zerolog.Logger
	config LoggingConfig
	closer io.Closer
}

func NewLogger(config LoggingConfig) (*Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level := parseLogLevel(config.Level)
	zerolog.SetGlobalLevel(level)

	var (
		output io.Writer
		closer io.Closer
	)
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		rotating := &lumberjack.Logger{
			Filename:   config.Output,
			MaxSize:    orDefault(config.Rotation.MaxSizeMB, 100),
			MaxBackups: config.Rotation.MaxBackups,
			MaxAge:     config.Rotation.MaxAgeDays,
			Compress:   config.Rotation.Compress,
		}
		output = rotating
		closer = rotating
	}

	if config.Format == LogFormatConsole {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: getTimeFormat(config.TimeFormat),
		}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", "farmstore").
		Logger()

	if config.Sampling != nil && config.Sampling.Enabled {
		if config.Sampling.Tick > 0 {
			logger = logger.Sample(&zerolog.BurstSampler{
				Burst:       uint32(config.Sampling.First),
				Period:      config.Sampling.Tick,
				NextSampler: &zerolog.BasicSampler{N: uint32(config.Sampling.Thereafter)},
			})
		} else {
			logger = logger.Sample(&zerolog.BasicSampler{N: uint32(config.Sampling.Thereafter)})
		}
	}

	return &Logger{
		logger: logger,
		config: config,
		closer: closer,
	}, nil
}

// NewNopLogger discards everything; used by tests and CLI subcommands that
// print their own output.
func NewNopLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// NewLoggerFrom wraps an existing zerolog logger.
func NewLoggerFrom(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.logger.With()

	if traceInfo := ExtractTraceInfo(ctx); traceInfo != nil {
		for key, value := range traceInfo {
			logger = logger.Interface(key, value)
		}
	}

	contextLogger := logger.Logger()
	return &contextLogger
}

func (l *Logger) WithDocument(collection, id string) *zerolog.Logger {
	logger := l.logger.With().
		Str("collection", collection).
		Str("document_id", id).
		Logger()
	return &logger
}

func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

func (l *Logger) GetZerologLogger() zerolog.Logger {
	return l.logger
}

// Close flushes and closes a rotating log file, if one is open.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func parseLogLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelTrace:
		return zerolog.TraceLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelFatal:
		return zerolog.FatalLevel
	case LogLevelPanic:
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

func getTimeFormat(format string) string {
	if format == "" {
		return time.RFC3339
	}
	return format
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// LoggingMiddleware logs one line per completed request, at warn for 4xx and
// error for 5xx responses.
func (l *Logger) LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger := l.WithContext(r.Context())
			var event *zerolog.Event
			switch {
			case wrapped.statusCode >= 500:
				event = logger.Error()
			case wrapped.statusCode >= 400:
				event = logger.Warn()
			default:
				event = logger.Info()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Str("remote_addr", r.RemoteAddr).
				Int("status_code", wrapped.statusCode).
				Int64("response_size", wrapped.size).
				Dur("duration", time.Since(start)).
				Msg("HTTP request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	sr.statusCode = statusCode
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(data []byte) (int, error) {
	size, err := sr.ResponseWriter.Write(data)
	sr.size += int64(size)
	return size, err
}

func SetGlobalLogger(logger *Logger) {
	log.Logger = logger.logger
}
