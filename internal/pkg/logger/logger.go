// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init 配置全局 zerolog Logger，所有日志都带上 service 字段
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 从 context 中取出 logger；如果 context 中没有，回退到全局 Logger
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &zlog.Logger
	}
	return l
}

// WithTraceID 把当前 Span 的 trace_id 注入 logger 并存回 context，
// 让同一条请求链路上的日志可以在 Jaeger 中关联起来
func WithTraceID(ctx context.Context) context.Context {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return zlog.Logger.WithContext(ctx)
	}
	l := zlog.With().Str("trace_id", spanCtx.TraceID().String()).Logger()
	return l.WithContext(ctx)
}
