// Package mlog adapts the teacher's ambient logger pattern
// (common/mlog.Logger, context-embedded) onto
// github.com/LerianStudio/lib-commons/v2/commons/log, so every domain
// service pulls its logger from context the same way the teacher's
// command/query use cases do (common.NewLoggerFromContext).
package mlog

import (
	"context"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"go.uber.org/zap"
)

// Logger is re-exported so callers in this module depend on mlog, not
// directly on lib-commons, mirroring the teacher's indirection.
type Logger = libLog.Logger

type loggerContextKey string

const ctxKey loggerContextKey = "aggregator.logger"

// ContextWithLogger stores logger in ctx for retrieval by FromContext.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey, logger)
}

// FromContext extracts the Logger embedded in ctx, falling back to a
// no-op logger so callers never need a nil check.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey).(Logger); ok && l != nil {
		return l
	}

	return NoOp{}
}

// NewZap builds a production zap-backed logger wrapped to satisfy
// libLog.Logger, suitable for process bootstrap.
func NewZap() (Logger, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return &zapLogger{s: zl.Sugar()}, nil
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (z *zapLogger) Info(args ...any)                   { z.s.Info(args...) }
func (z *zapLogger) Infof(format string, args ...any)    { z.s.Infof(format, args...) }
func (z *zapLogger) Infoln(args ...any)                  { z.s.Infoln(args...) }
func (z *zapLogger) Error(args ...any)                   { z.s.Error(args...) }
func (z *zapLogger) Errorf(format string, args ...any)   { z.s.Errorf(format, args...) }
func (z *zapLogger) Errorln(args ...any)                 { z.s.Errorln(args...) }
func (z *zapLogger) Warn(args ...any)                    { z.s.Warn(args...) }
func (z *zapLogger) Warnf(format string, args ...any)    { z.s.Warnf(format, args...) }
func (z *zapLogger) Warnln(args ...any)                  { z.s.Warnln(args...) }
func (z *zapLogger) Debug(args ...any)                   { z.s.Debug(args...) }
func (z *zapLogger) Debugf(format string, args ...any)   { z.s.Debugf(format, args...) }
func (z *zapLogger) Debugln(args ...any)                 { z.s.Debugln(args...) }
func (z *zapLogger) Fatal(args ...any)                   { z.s.Fatal(args...) }
func (z *zapLogger) Fatalf(format string, args ...any)   { z.s.Fatalf(format, args...) }
func (z *zapLogger) Fatalln(args ...any)                 { z.s.Fatalln(args...) }
func (z *zapLogger) Sync() error                         { return z.s.Sync() }

//nolint:ireturn
func (z *zapLogger) WithFields(fields ...any) Logger {
	return &zapLogger{s: z.s.With(fields...)}
}

// NoOp discards every log call; used as the context fallback and in tests
// that don't care about log output.
type NoOp struct{}

func (NoOp) Info(args ...any)                 {}
func (NoOp) Infof(format string, args ...any)  {}
func (NoOp) Infoln(args ...any)                {}
func (NoOp) Error(args ...any)                {}
func (NoOp) Errorf(format string, args ...any) {}
func (NoOp) Errorln(args ...any)               {}
func (NoOp) Warn(args ...any)                  {}
func (NoOp) Warnf(format string, args ...any)  {}
func (NoOp) Warnln(args ...any)                {}
func (NoOp) Debug(args ...any)                 {}
func (NoOp) Debugf(format string, args ...any) {}
func (NoOp) Debugln(args ...any)               {}
func (NoOp) Fatal(args ...any)                 {}
func (NoOp) Fatalf(format string, args ...any) {}
func (NoOp) Fatalln(args ...any)               {}
func (NoOp) Sync() error                       { return nil }

//nolint:ireturn
func (n NoOp) WithFields(fields ...any) Logger { return n }
