package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGrpcServerCredsRequiresTLSUnlessInsecure(t *testing.T) {
	_, err := GrpcServerCreds(Config{})
	require.Error(t, err)

	opt, err := GrpcServerCreds(Config{AllowInsecure: true})
	require.NoError(t, err)
	require.Nil(t, opt)

	_, err = GrpcServerCreds(Config{TLSCertFile: "missing.pem", TLSKeyFile: "missing.key"})
	require.Error(t, err)
}

func TestRecoveryInterceptorConvertsPanics(t *testing.T) {
	interceptor := recoveryUnaryInterceptor(testLogger())
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(context.Context, interface{}) (interface{}, error) {
		panic("boom")
	})
	require.Equal(t, codes.Internal, status.Code(err))
}

func TestRequestLimiterExhausts(t *testing.T) {
	limiter := newRequestLimiter(2)
	require.Nil(t, newRequestLimiter(0))
	interceptor := limiter.unaryInterceptor()
	ok := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/x"}

	for i := 0; i < 2; i++ {
		_, err := interceptor(context.Background(), nil, info, ok)
		require.NoError(t, err)
	}
	_, err := interceptor(context.Background(), nil, info, ok)
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
}
