package middleware

import (
	"context"
	"net"
	"net/http"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"clinic-scheduler/internal/model"
)

func hostOnly(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ClientFromGRPC reads the caller address and user agent. A forwarded
// address is only honoured from a loopback peer (the grpc-web bridge).
func ClientFromGRPC(ctx context.Context) model.ClientInfo {
	ci := model.ClientInfo{IP: "unknown"}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		ci.IP = hostOnly(p.Addr.String())
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-forwarded-for"); len(v) > 0 && v[0] != "" && isLoopback(ci.IP) {
			ci.IP = v[0]
		}
		if v := md.Get("user-agent"); len(v) > 0 {
			ci.UserAgent = v[0]
		}
	}
	return ci
}

// ClientFromHTTP expects RemoteAddr to be rewritten by chi's RealIP upstream.
func ClientFromHTTP(r *http.Request) model.ClientInfo {
	return model.ClientInfo{IP: hostOnly(r.RemoteAddr), UserAgent: r.UserAgent()}
}
