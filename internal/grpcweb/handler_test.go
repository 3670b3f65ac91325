package grpcweb_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/grpcweb"
	"clinic-scheduler/internal/handler"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
	"clinic-scheduler/internal/scheduling/schedtest"
	"clinic-scheduler/internal/session"
	"clinic-scheduler/internal/wire"
)

func setup(t *testing.T) http.Handler {
	t.Helper()
	accts := schedtest.NewAccounts()
	if err := accts.Add(2, model.RoleDoctor, "dr.okafor", "password1", "Dr. Okafor"); err != nil {
		t.Fatal(err)
	}
	mgr, _ := session.NewManager(session.NewMemoryStore(), time.Hour)
	svc := scheduling.NewService(schedtest.NewRepo())
	h := handler.New(svc, auth.NewAuthenticator(accts, mgr), zerolog.Nop())

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.Auth(auth.NewGate(mgr, ""), handler.ToStatus, handler.OpenMethods...),
	))
	handler.Register(srv, h)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	b, err := grpcweb.New("passthrough:///bufnet", zerolog.Nop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b.Handler([]string{"http://localhost:3000"})
}

func framed(t *testing.T, m wire.Message) []byte {
	t.Helper()
	data, err := m.MarshalWire()
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 5+len(data))
	binary.BigEndian.PutUint32(out[1:5], uint32(len(data)))
	copy(out[5:], data)
	return out
}

// frames splits a grpc-web body into its data payload and trailer text.
func frames(t *testing.T, body []byte) (data []byte, trailer string) {
	t.Helper()
	for len(body) >= 5 {
		n := int(binary.BigEndian.Uint32(body[1:5]))
		if 5+n > len(body) {
			t.Fatalf("truncated frame")
		}
		if body[0]&0x80 != 0 {
			trailer = string(body[5 : 5+n])
		} else {
			data = body[5 : 5+n]
		}
		body = body[5+n:]
	}
	return data, trailer
}

func post(h http.Handler, method string, body []byte, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, method, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	req.Header.Set("Origin", "http://localhost:3000")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginThroughBridge(t *testing.T) {
	h := setup(t)
	rec := post(h, handler.MethodLogin, framed(t, &wire.LoginRequest{Username: "dr.okafor", Password: "password1", UserType: "Doctor"}), "")

	data, tr := frames(t, rec.Body.Bytes())
	if !strings.Contains(tr, "grpc-status:0") {
		t.Fatalf("trailer %q", tr)
	}
	var res wire.LoginResponse
	if err := res.UnmarshalWire(data); err != nil {
		t.Fatal(err)
	}
	if res.UserID != 2 || res.SessionToken == "" {
		t.Errorf("login response %+v", res)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("cors header missing")
	}

	rec = post(h, handler.MethodListAppointments, framed(t, &wire.ListAppointmentsRequest{}), "Bearer "+res.SessionToken)
	if _, tr := frames(t, rec.Body.Bytes()); !strings.Contains(tr, "grpc-status:0") {
		t.Errorf("list trailer %q", tr)
	}
}

func TestErrorTrailer(t *testing.T) {
	h := setup(t)
	rec := post(h, handler.MethodListAppointments, framed(t, &wire.ListAppointmentsRequest{}), "Bearer missing")

	data, tr := frames(t, rec.Body.Bytes())
	if data != nil {
		t.Errorf("unexpected data frame")
	}
	if !strings.Contains(tr, "grpc-status:16") || !strings.Contains(tr, "grpc-status-details-bin:") {
		t.Errorf("trailer %q", tr)
	}
}

func TestRejects(t *testing.T) {
	h := setup(t)

	req := httptest.NewRequest(http.MethodPost, handler.MethodLogin, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("json accepted: %d", rec.Code)
	}

	rec = post(h, handler.MethodLogin, []byte{0, 0, 0}, "")
	if _, tr := frames(t, rec.Body.Bytes()); !strings.Contains(tr, "grpc-status:3") {
		t.Errorf("short body trailer %q", tr)
	}

	pre := httptest.NewRequest(http.MethodOptions, handler.MethodLogin, nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("preflight not answered: %v", rec.Header())
	}
}
