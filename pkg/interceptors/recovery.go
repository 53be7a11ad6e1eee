package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"connectrpc.com/connect"
)

// NewRecoveryInterceptor turns handler panics into Internal errors.
func NewRecoveryInterceptor(logger *slog.Logger) connect.Interceptor {
	return &recoveryInterceptor{logger: logger}
}

type recoveryInterceptor struct {
	logger *slog.Logger
}

func (r *recoveryInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = r.recovered(ctx, req.Spec().Procedure, p)
			}
		}()
		return next(ctx, req)
	}
}

func (r *recoveryInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (r *recoveryInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = r.recovered(ctx, conn.Spec().Procedure, p)
			}
		}()
		return next(ctx, conn)
	}
}

func (r *recoveryInterceptor) recovered(ctx context.Context, procedure string, p any) error {
	r.logger.Error("Panic recovered", appendLoggerFields(ctx,
		"procedure", procedure,
		"panic", fmt.Sprint(p),
		"stack", string(debug.Stack()),
	)...)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}
