package interceptors

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext returns the request id attached by the request-id interceptor.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// WithRequestID attaches a request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// NewRequestIDInterceptor propagates the caller's request id or mints one, echoing it in the response header.
func NewRequestIDInterceptor(header string) connect.Interceptor {
	return &requestIDInterceptor{header: header}
}

type requestIDInterceptor struct {
	header string
}

func (i *requestIDInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		id := req.Header().Get(i.header)
		if id == "" {
			id = uuid.NewString()
		}
		resp, err := next(WithRequestID(ctx, id), req)
		if resp != nil {
			resp.Header().Set(i.header, id)
		}
		return resp, err
	}
}

func (i *requestIDInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *requestIDInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		id := conn.RequestHeader().Get(i.header)
		if id == "" {
			id = uuid.NewString()
		}
		conn.ResponseHeader().Set(i.header, id)
		return next(WithRequestID(ctx, id), conn)
	}
}
