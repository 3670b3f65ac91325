package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// RequestObserver is satisfied by *metrics.Collector.
type RequestObserver interface {
	ObserveRequest(transport, route, status string, d time.Duration)
}

// Logging logs every unary call with its status code.
func Logging(log zerolog.Logger, obs RequestObserver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		d := time.Since(start)
		code := status.Code(err)
		if obs != nil {
			obs.ObserveRequest("grpc", info.FullMethod, code.String(), d)
		}

		evt := log.Info()
		if err != nil {
			evt = log.Warn().Err(err)
		}
		evt.
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("latency", d).
			Str("remote_ip", ClientFromGRPC(ctx).IP).
			Msg("rpc")
		return resp, err
	}
}
