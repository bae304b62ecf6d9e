package server

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"go.uber.org/zap"
)

// LoggingInterceptor logs every unary call with its procedure, duration and
// error code, and turns panics into internal errors.
func LoggingInterceptor(log *zap.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			start := time.Now()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("rpc panic", zap.String("procedure", req.Spec().Procedure), zap.Any("panic", rec))
					resp, err = nil, connect.NewError(connect.CodeInternal, fmt.Errorf("internal error"))
				}
				fields := []zap.Field{
					zap.String("procedure", req.Spec().Procedure),
					zap.Duration("duration", time.Since(start)),
				}
				if err != nil {
					fields = append(fields, zap.String("code", connect.CodeOf(err).String()))
				}
				log.Info("rpc", fields...)
			}()
			return next(ctx, req)
		}
	}
}
