package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"stakevault/observability"
	"stakevault/services/vault/auth"
)

// Config captures the settings required to construct gRPC server options.
type Config struct {
	TLSCertFile     string
	TLSKeyFile      string
	AllowInsecure   bool
	RateLimitPerMin int
	Authenticator   *auth.Authenticator
	Logger          *slog.Logger
	// Tracing installs the OpenTelemetry interceptor.
	Tracing bool
}

// GrpcServerCreds builds the grpc.ServerOption configuring TLS credentials. It
// returns nil when plaintext is allowed and no key pair is configured.
func GrpcServerCreds(cfg Config) (grpc.ServerOption, error) {
	certPath := strings.TrimSpace(cfg.TLSCertFile)
	keyPath := strings.TrimSpace(cfg.TLSKeyFile)
	if certPath == "" || keyPath == "" {
		if cfg.AllowInsecure {
			return nil, nil
		}
		return nil, fmt.Errorf("tls certificate and key are required")
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	return grpc.Creds(credentials.NewTLS(&tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	})), nil
}

// ServerOptions returns the credentials and interceptor chain for the vault
// gRPC server: tracing, logging, recovery, rate limiting and authentication.
func ServerOptions(cfg Config) ([]grpc.ServerOption, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var options []grpc.ServerOption
	creds, err := GrpcServerCreds(cfg)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		options = append(options, creds)
	}

	var unary []grpc.UnaryServerInterceptor
	if cfg.Tracing {
		unary = append(unary, otelgrpc.UnaryServerInterceptor())
	}
	unary = append(unary,
		loggingUnaryInterceptor(logger),
		recoveryUnaryInterceptor(logger),
	)
	if limiter := newRequestLimiter(cfg.RateLimitPerMin); limiter != nil {
		unary = append(unary, limiter.unaryInterceptor())
	}
	unary = append(unary, NewAuthInterceptor(cfg.Authenticator))
	return append(options, grpc.ChainUnaryInterceptor(unary...)), nil
}

func loggingUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (_ interface{}, err error) {
		start := time.Now()
		defer func() {
			code := status.Code(err)
			level := slog.LevelInfo
			if code != codes.OK {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "grpc unary", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
		}()
		return handler(ctx, req)
	}
}

func recoveryUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (_ interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in unary handler", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

type requestLimiter struct {
	limiter *rate.Limiter
}

func newRequestLimiter(perMinute int) *requestLimiter {
	if perMinute <= 0 {
		return nil
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	return &requestLimiter{limiter: rate.NewLimiter(limit, perMinute)}
}

func (r *requestLimiter) allow() bool {
	if r == nil || r.limiter == nil {
		return true
	}
	return r.limiter.Allow()
}

func (r *requestLimiter) unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !r.allow() {
			observability.ModuleMetrics().RecordThrottle(metricsModule, "grpc_rate_limit")
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
