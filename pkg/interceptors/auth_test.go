package interceptors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type whoAmIRequest struct{}

type whoAmIResponse struct {
	UserID    string `json:"userId"`
	RequestID string `json:"requestId"`
}

const (
	privateProcedure = "/loci.test.v1.TestService/Private"
	publicProcedure  = "/loci.test.v1.TestService/Public"
)

var testSecret = []byte("test-secret")

func newAuthTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	whoAmI := func(ctx context.Context, _ *connect.Request[whoAmIRequest]) (*connect.Response[whoAmIResponse], error) {
		userID, _ := UserIDFromContext(ctx)
		requestID, _ := RequestIDFromContext(ctx)
		return connect.NewResponse(&whoAmIResponse{UserID: userID, RequestID: requestID}), nil
	}
	opts := []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(
			NewRequestIDInterceptor("X-Request-ID"),
			NewAuthInterceptor(testSecret, publicProcedure),
		),
	}

	mux := http.NewServeMux()
	mux.Handle(privateProcedure, connect.NewUnaryHandler(privateProcedure, whoAmI, opts...))
	mux.Handle(publicProcedure, connect.NewUnaryHandler(publicProcedure, whoAmI, opts...))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, procedure, token string) (*connect.Response[whoAmIResponse], error) {
	t.Helper()
	client := connect.NewClient[whoAmIRequest, whoAmIResponse](srv.Client(), srv.URL+procedure, connect.WithCodec(JSONCodec{}))
	req := connect.NewRequest(&whoAmIRequest{})
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return client.CallUnary(context.Background(), req)
}

func signToken(t *testing.T, secret []byte, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestAuthInterceptor_ValidToken(t *testing.T) {
	srv := newAuthTestServer(t)

	resp, err := call(t, srv, privateProcedure, signToken(t, testSecret, "user-42"))
	require.NoError(t, err)
	assert.Equal(t, "user-42", resp.Msg.UserID)
	assert.NotEmpty(t, resp.Msg.RequestID)
	assert.Equal(t, resp.Msg.RequestID, resp.Header().Get("X-Request-ID"))
}

func TestAuthInterceptor_MissingTokenOnPrivateProcedure(t *testing.T) {
	srv := newAuthTestServer(t)

	_, err := call(t, srv, privateProcedure, "")
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestAuthInterceptor_PublicProcedureAllowsGuests(t *testing.T) {
	srv := newAuthTestServer(t)

	resp, err := call(t, srv, publicProcedure, "")
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.UserID)
}

func TestAuthInterceptor_RejectsForeignSignature(t *testing.T) {
	srv := newAuthTestServer(t)

	_, err := call(t, srv, publicProcedure, signToken(t, []byte("other-secret"), "user-42"))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
