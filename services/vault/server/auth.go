package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"stakevault/services/vault/auth"
	vaultrpc "stakevault/services/vault/rpc"
)

// NewAuthInterceptor returns a unary interceptor that verifies bearer tokens
// on mutating RPCs and installs the caller principal in the context. Query
// RPCs pass through untouched.
func NewAuthInterceptor(authn *auth.Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		scope, ok := requiredScope(info.FullMethod)
		if !ok {
			return handler(ctx, req)
		}
		if authn == nil {
			return nil, status.Error(codes.PermissionDenied, "authentication is not configured")
		}
		principal, err := authenticate(ctx, authn)
		if err != nil {
			return nil, err
		}
		if scope != "" && !principal.HasScope(scope) {
			return nil, status.Errorf(codes.PermissionDenied, "scope %s required", scope)
		}
		return handler(auth.WithPrincipal(ctx, principal), req)
	}
}

func authenticate(ctx context.Context, authn *auth.Authenticator) (*auth.Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	for _, header := range md.Get("authorization") {
		token := auth.ParseBearer(header)
		if token == "" {
			continue
		}
		principal, err := authn.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				return nil, status.Error(codes.Unauthenticated, "invalid token")
			}
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return principal, nil
	}
	return nil, status.Error(codes.Unauthenticated, "authentication required")
}

// requiredScope reports whether method needs a token and which scope, if any,
// the token must carry.
func requiredScope(fullMethod string) (string, bool) {
	switch fullMethod {
	case vaultrpc.VaultService_Instantiate_FullMethodName,
		vaultrpc.VaultService_Execute_FullMethodName:
		return "", true
	case vaultrpc.VaultService_Fund_FullMethodName:
		return auth.ScopeAdmin, true
	default:
		return "", false
	}
}
