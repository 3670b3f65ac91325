package middleware

import (
	"context"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/model"
)

// Resolver is satisfied by *auth.Gate.
type Resolver interface {
	Resolve(ctx context.Context, header string) (model.Principal, error)
}

// ErrorWriter renders a domain error on an HTTP response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// ErrorMapper turns a domain error into a gRPC status error.
type ErrorMapper func(err error) error

// AuthorizationHeader returns the first authorization metadata value.
func AuthorizationHeader(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get("authorization"); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Auth resolves the bearer session for every method not listed in open
// and stores the principal in the context.
func Auth(gate Resolver, toStatus ErrorMapper, open ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(open))
	for _, m := range open {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return next(ctx, req)
		}
		p, err := gate.Resolve(ctx, AuthorizationHeader(ctx))
		if err != nil {
			return nil, toStatus(err)
		}
		return next(auth.WithPrincipal(ctx, p), req)
	}
}

// RequireSession is the HTTP counterpart of Auth.
func RequireSession(gate Resolver, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := gate.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}
