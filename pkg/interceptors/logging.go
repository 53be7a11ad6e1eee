package interceptors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs unary calls with duration and payload sizes, and
// watch streams with their lifetime and number of messages sent.
func NewLoggingInterceptor(logger *slog.Logger) connect.Interceptor {
	return &loggingInterceptor{logger: logger}
}

type loggingInterceptor struct {
	logger *slog.Logger
}

func (l *loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		procedure := req.Spec().Procedure
		requestSize := payloadSize(req.Any())

		l.logger.Debug("RPC started", appendLoggerFields(ctx,
			"procedure", procedure,
			"peer", req.Peer().Addr,
			"request_size_bytes", requestSize,
		)...)

		resp, err := next(ctx, req)
		duration := time.Since(start)

		if err != nil {
			l.logger.Log(ctx, levelFor(err), "RPC failed", appendLoggerFields(ctx,
				"procedure", procedure,
				"duration_ms", duration.Milliseconds(),
				"request_size_bytes", requestSize,
				"code", connect.CodeOf(err).String(),
				"error", err,
			)...)
			return resp, err
		}

		responseSize := 0
		if resp != nil {
			responseSize = payloadSize(resp.Any())
		}
		l.logger.Info("RPC completed", appendLoggerFields(ctx,
			"procedure", procedure,
			"duration_ms", duration.Milliseconds(),
			"request_size_bytes", requestSize,
			"response_size_bytes", responseSize,
		)...)
		return resp, nil
	}
}

func (l *loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l *loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		procedure := conn.Spec().Procedure
		counted := &countingConn{StreamingHandlerConn: conn}

		l.logger.Info("Stream opened", appendLoggerFields(ctx,
			"procedure", procedure,
			"peer", conn.Peer().Addr,
		)...)

		err := next(ctx, counted)
		fields := appendLoggerFields(ctx,
			"procedure", procedure,
			"duration_ms", time.Since(start).Milliseconds(),
			"messages_sent", counted.sent,
		)
		if err != nil && ctx.Err() == nil {
			fields = append(fields, "code", connect.CodeOf(err).String(), "error", err)
			l.logger.Log(ctx, levelFor(err), "Stream failed", fields...)
			return err
		}
		l.logger.Info("Stream closed", fields...)
		return err
	}
}

// countingConn counts messages pushed to a streaming client.
type countingConn struct {
	connect.StreamingHandlerConn
	sent int
}

func (c *countingConn) Send(msg any) error {
	if err := c.StreamingHandlerConn.Send(msg); err != nil {
		return err
	}
	c.sent++
	return nil
}

// levelFor keeps caller mistakes at warn so error logs stay about the server.
func levelFor(err error) slog.Level {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return slog.LevelError
	}
	switch connectErr.Code() {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeUnauthenticated,
		connect.CodePermissionDenied, connect.CodeAlreadyExists, connect.CodeResourceExhausted,
		connect.CodeCanceled:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// payloadSize reports the JSON-encoded size of a message, 0 when it cannot be encoded.
func payloadSize(msg any) int {
	if msg == nil {
		return 0
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}
	return len(data)
}

func appendLoggerFields(ctx context.Context, base ...any) []any {
	if requestID, ok := RequestIDFromContext(ctx); ok && requestID != "" {
		base = append(base, "request_id", requestID)
	}
	if userID, ok := UserIDFromContext(ctx); ok {
		base = append(base, "user_id", userID)
	}
	return base
}
