package handler_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/handler"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
	"clinic-scheduler/internal/scheduling/schedtest"
	"clinic-scheduler/internal/session"
	"clinic-scheduler/internal/wire"
)

var base = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

type env struct {
	client *handler.Client
	repo   *schedtest.Repo
}

func setup(t *testing.T) *env {
	t.Helper()
	accts := schedtest.NewAccounts()
	if err := accts.Add(2, model.RoleDoctor, "dr.okafor", "password1", "Dr. Okafor"); err != nil {
		t.Fatal(err)
	}
	if err := accts.Add(1, model.RolePatient, "ada", "password1", "Ada Obi"); err != nil {
		t.Fatal(err)
	}
	mgr, err := session.NewManager(session.NewMemoryStore(), 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	repo := schedtest.NewRepo()
	svc := scheduling.NewService(repo, scheduling.WithClock(func() time.Time { return base }))
	h := handler.New(svc, auth.NewAuthenticator(accts, mgr), zerolog.Nop())

	rl := middleware.NewRateLimiter(100, 100)
	t.Cleanup(rl.Stop)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.Logging(zerolog.Nop(), nil),
		middleware.RateLimit(rl, handler.MethodLogin),
		middleware.Auth(auth.NewGate(mgr, ""), handler.ToStatus, handler.OpenMethods...),
	))
	handler.Register(srv, h)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return &env{client: handler.NewClient(conn), repo: repo}
}

func (e *env) login(t *testing.T, user, role string) context.Context {
	t.Helper()
	res, err := e.client.Login(context.Background(), &wire.LoginRequest{Username: user, Password: "password1", UserType: role})
	if err != nil {
		t.Fatalf("login %s: %v", user, err)
	}
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+res.SessionToken)
}

func int32p(v int32) *int32 { return &v }

func create(at time.Time, minutes int32) *wire.CreateAppointmentRequest {
	return &wire.CreateAppointmentRequest{
		PatientID:           1,
		DoctorID:            2,
		ClinicID:            3,
		AppointmentDatetime: at,
		DurationMinutes:     int32p(minutes),
	}
}

func wantCode(t *testing.T, err error, code codes.Code, errCode string) {
	t.Helper()
	if status.Code(err) != code {
		t.Fatalf("code = %v (%v), want %v", status.Code(err), err, code)
	}
	if errCode != "" && handler.ErrorCode(err) != errCode {
		t.Errorf("error code = %q, want %q", handler.ErrorCode(err), errCode)
	}
}

func TestLogin(t *testing.T) {
	e := setup(t)
	res, err := e.client.Login(context.Background(), &wire.LoginRequest{Username: "dr.okafor", Password: "password1", UserType: "Doctor"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.UserID != 2 || res.UserType != "Doctor" || res.SessionToken == "" || res.ExpiresAt.IsZero() {
		t.Errorf("response %+v", res)
	}

	_, err = e.client.Login(context.Background(), &wire.LoginRequest{Username: "dr.okafor", Password: "wrong-pass", UserType: "Doctor"})
	wantCode(t, err, codes.Unauthenticated, model.CodeInvalidCredentials)

	_, err = e.client.Login(context.Background(), &wire.LoginRequest{Username: "dr.okafor", Password: "password1", UserType: "Nurse"})
	wantCode(t, err, codes.InvalidArgument, model.CodeValidation)
}

func TestCreateAndGet(t *testing.T) {
	e := setup(t)
	ctx := e.login(t, "dr.okafor", "Doctor")

	created, err := e.client.CreateAppointment(ctx, create(base.Add(time.Hour), 30))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := created.Appointment
	if a.ID == 0 || a.Status != "Scheduled" || a.DoctorName != "Dr. Okafor" || !a.AppointmentDatetime.Equal(base.Add(time.Hour)) {
		t.Errorf("created %+v", a)
	}

	got, err := e.client.GetAppointment(ctx, &wire.AppointmentID{ID: a.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Appointment.ClinicName != "Lekki Clinic" || got.Appointment.DurationMinutes != 30 {
		t.Errorf("got %+v", got.Appointment)
	}
}

func TestTimesKeepSubSecondPrecision(t *testing.T) {
	e := setup(t)
	ctx := e.login(t, "dr.okafor", "Doctor")

	start := base.Add(time.Hour + 250*time.Millisecond)
	created, err := e.client.CreateAppointment(ctx, create(start, 30))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := created.Appointment
	if !a.AppointmentDatetime.Equal(start) {
		t.Errorf("start = %v, want %v", a.AppointmentDatetime, start)
	}
	if !a.CreatedAt.Equal(base) || !a.UpdatedAt.Equal(base) {
		t.Errorf("created %v updated %v, want %v", a.CreatedAt, a.UpdatedAt, base)
	}

	list, err := e.client.ListAppointments(ctx, &wire.ListAppointmentsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Appointments) != 1 || !list.Appointments[0].AppointmentDatetime.Equal(start) {
		t.Errorf("list %+v", list.Appointments)
	}
}

func TestErrorMapping(t *testing.T) {
	e := setup(t)
	doctor := e.login(t, "dr.okafor", "Doctor")
	patient := e.login(t, "ada", "Patient")

	if _, err := e.client.CreateAppointment(doctor, create(base.Add(time.Hour), 30)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		ctx     context.Context
		req     *wire.CreateAppointmentRequest
		code    codes.Code
		errCode string
	}{
		{"no token", context.Background(), create(base.Add(3*time.Hour), 30), codes.Unauthenticated, model.CodeMissingToken},
		{"bad token", metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope"), create(base.Add(3*time.Hour), 30), codes.Unauthenticated, model.CodeInvalidOrExpired},
		{"malformed header", metadata.AppendToOutgoingContext(context.Background(), "authorization", "Token abc"), create(base.Add(3*time.Hour), 30), codes.Unauthenticated, model.CodeMalformedHeader},
		{"patient", patient, create(base.Add(3*time.Hour), 30), codes.PermissionDenied, model.CodeForbiddenRole},
		{"past", doctor, create(base.Add(-time.Hour), 30), codes.InvalidArgument, model.CodeValidation},
		{"conflict", doctor, create(base.Add(75*time.Minute), 30), codes.AlreadyExists, model.CodeConflict},
		{"missing clinic", doctor, &wire.CreateAppointmentRequest{PatientID: 1, DoctorID: 2, ClinicID: 99, AppointmentDatetime: base.Add(5 * time.Hour)}, codes.NotFound, model.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.client.CreateAppointment(tt.ctx, tt.req)
			wantCode(t, err, tt.code, tt.errCode)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	e := setup(t)
	ctx := e.login(t, "dr.okafor", "Doctor")
	e.repo.FailOn = "list"

	_, err := e.client.ListAppointments(ctx, &wire.ListAppointmentsRequest{})
	wantCode(t, err, codes.Internal, model.CodeInternal)
	if msg := status.Convert(err).Message(); msg != "internal server error" {
		t.Errorf("message leaked: %q", msg)
	}
}

func TestListUpdateDelete(t *testing.T) {
	e := setup(t)
	doctor := e.login(t, "dr.okafor", "Doctor")
	patient := e.login(t, "ada", "Patient")

	var ids []int64
	for i := 1; i <= 3; i++ {
		r, err := e.client.CreateAppointment(doctor, create(base.Add(time.Duration(i)*time.Hour), 30))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.Appointment.ID)
	}

	list, err := e.client.ListAppointments(patient, &wire.ListAppointmentsRequest{Limit: int32p(2)})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Appointments) != 2 || list.Appointments[0].ID != ids[0] {
		t.Errorf("list %+v", list.Appointments)
	}

	confirmed := "Confirmed"
	up, err := e.client.UpdateAppointment(doctor, &wire.UpdateAppointmentRequest{ID: ids[0], Status: &confirmed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.Appointment.Status != "Confirmed" {
		t.Errorf("status = %q", up.Appointment.Status)
	}

	moved := base.Add(2*time.Hour + 15*time.Minute)
	_, err = e.client.UpdateAppointment(doctor, &wire.UpdateAppointmentRequest{ID: ids[0], AppointmentDatetime: &moved})
	wantCode(t, err, codes.AlreadyExists, model.CodeConflict)

	_, err = e.client.DeleteAppointment(patient, &wire.AppointmentID{ID: ids[2]})
	wantCode(t, err, codes.PermissionDenied, model.CodeForbiddenRole)

	if _, err := e.client.DeleteAppointment(doctor, &wire.AppointmentID{ID: ids[2]}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = e.client.GetAppointment(doctor, &wire.AppointmentID{ID: ids[2]})
	wantCode(t, err, codes.NotFound, model.CodeNotFound)
}

func TestLogout(t *testing.T) {
	e := setup(t)
	ctx := e.login(t, "ada", "Patient")

	if _, err := e.client.Logout(ctx, &wire.LogoutRequest{}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err := e.client.ListAppointments(ctx, &wire.ListAppointmentsRequest{})
	wantCode(t, err, codes.Unauthenticated, model.CodeInvalidOrExpired)

	_, err = e.client.Logout(ctx, &wire.LogoutRequest{})
	wantCode(t, err, codes.NotFound, model.CodeNotFound)
}

func TestConcurrentBooking(t *testing.T) {
	e := setup(t)
	ctx := e.login(t, "dr.okafor", "Doctor")

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.client.CreateAppointment(ctx, create(base.Add(4*time.Hour), 30))
			mu.Lock()
			defer mu.Unlock()
			switch status.Code(err) {
			case codes.OK:
				ok++
			case codes.AlreadyExists:
				conflicts++
			default:
				t.Errorf("unexpected: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || conflicts != n-1 {
		t.Errorf("ok=%d conflicts=%d, want 1 and %d", ok, conflicts, n-1)
	}
}
