package interceptors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey carries the authenticated owner id.
const UserIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated owner id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// NewAuthInterceptor validates HS256 bearer tokens and stores the subject as the owner id.
// Public procedures accept anonymous callers; a token presented to them must still be valid.
func NewAuthInterceptor(secret []byte, publicProcedures ...string) connect.Interceptor {
	return &authInterceptor{secret: secret, public: publicProcedures}
}

type authInterceptor struct {
	secret []byte
	public []string
}

func (a *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		ctx, err := a.authenticate(ctx, req.Spec().Procedure, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (a *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (a *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := a.authenticate(ctx, conn.Spec().Procedure, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (a *authInterceptor) authenticate(ctx context.Context, procedure string, header http.Header) (context.Context, error) {
	isPublic := slices.Contains(a.public, procedure)

	raw, found := strings.CutPrefix(header.Get("Authorization"), "Bearer ")
	if !found || raw == "" {
		if isPublic {
			return ctx, nil
		}
		return ctx, connect.NewError(connect.CodeUnauthenticated, errors.New("missing bearer token"))
	}

	subject, err := a.parse(raw)
	if err != nil {
		return ctx, connect.NewError(connect.CodeUnauthenticated, err)
	}
	return context.WithValue(ctx, UserIDKey, subject), nil
}

func (a *authInterceptor) parse(raw string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("authentication is not configured")
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}
