package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap.Logger with context aware helpers. The embedded logger
// serves plain Debug/Info/Warn/Error calls.
type Logger struct {
	*zap.Logger
	// ctx shares the core but skips the *Context helper frames when
	// reporting the caller.
	ctx *zap.Logger
}

type contextKey struct{}

func wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l, ctx: l.WithOptions(zap.AddCallerSkip(2))}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return wrap(zap.NewNop())
}

// NewWithCore builds a Logger on an existing core, e.g. a zaptest observer.
func NewWithCore(core zapcore.Core) *Logger {
	return wrap(zap.New(core))
}

// New builds the process logger. Encoding "console" gives colored
// development output, anything else structured JSON. An empty level means info.
func New(level, encoding string) (*Logger, error) {
	if level == "" {
		level = "info"
	}
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	if encoding == "console" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = atomic
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	l, err := config.Build()
	if err != nil {
		return nil, err
	}
	return wrap(l.Named("backtester")), nil
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return wrap(l.Logger.With(fields...))
}

// Named returns a child logger for one component, e.g. "scheduler".
func (l *Logger) Named(component string) *Logger {
	return wrap(l.Logger.Named(component))
}

// NewContext stores l in ctx for the *Context methods to pick up.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or l when there is none.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if scoped, ok := ctx.Value(contextKey{}).(*Logger); ok && scoped != nil {
		return scoped
	}
	return l
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	if ce := l.FromContext(ctx).ctx.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *Logger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func Field(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func FloatField(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

func DurationField(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// SymbolField tags an entry with the traded symbol.
func SymbolField(symbol string) zap.Field {
	return zap.String("symbol", symbol)
}

func TimeframeField(timeframe string) zap.Field {
	return zap.String("timeframe", timeframe)
}

// RunIDField tags an entry with a saved backtest run.
func RunIDField(id uint) zap.Field {
	return zap.Uint("run_id", id)
}
