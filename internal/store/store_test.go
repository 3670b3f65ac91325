package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"clinic-scheduler/internal/database"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
	"clinic-scheduler/internal/session"
	"clinic-scheduler/internal/store"
)

type fixture struct {
	st        *store.Store
	svc       *scheduling.Service
	doctor    model.Principal
	patientID int64
	clinicID  int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)

	st := store.New(pool)
	ctx := context.Background()
	suffix := uuid.New().String()[:8]

	clinicID, err := st.CreateClinic(ctx, "Clinic "+suffix)
	if err != nil {
		t.Fatalf("clinic: %v", err)
	}
	doc := &model.Account{Role: model.RoleDoctor, Username: "dr-" + suffix, PasswordHash: "x", Name: "Dr. " + suffix}
	if err := st.CreateAccount(ctx, doc); err != nil {
		t.Fatalf("doctor: %v", err)
	}
	pat := &model.Account{Role: model.RolePatient, Username: "pt-" + suffix, PasswordHash: "x", Name: "Patient " + suffix}
	if err := st.CreateAccount(ctx, pat); err != nil {
		t.Fatalf("patient: %v", err)
	}

	return &fixture{
		st:        st,
		svc:       scheduling.NewService(st),
		doctor:    model.Principal{ID: doc.ID, Role: model.RoleDoctor, DisplayName: doc.Name},
		patientID: pat.ID,
		clinicID:  clinicID,
	}
}

func (f *fixture) request(start time.Time, minutes int) scheduling.CreateRequest {
	return scheduling.CreateRequest{
		PatientID:       f.patientID,
		DoctorID:        f.doctor.ID,
		ClinicID:        f.clinicID,
		StartTime:       start,
		DurationMinutes: &minutes,
	}
}

// far enough ahead that reruns against the same database do not collide
func slot(hours int) time.Time {
	return time.Now().Add(time.Duration(900+hours) * time.Hour).UTC().Truncate(time.Minute)
}

func TestCreateAndFetch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.doctor, f.request(slot(1), 30))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := f.svc.Get(ctx, f.doctor, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PatientID != f.patientID || got.DoctorID != f.doctor.ID || got.ClinicID != f.clinicID ||
		got.AppointmentDatetime != a.AppointmentDatetime || got.DurationMinutes != 30 {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, a)
	}
	if got.DoctorName != f.doctor.DisplayName {
		t.Errorf("doctor name = %q", got.DoctorName)
	}
}

func TestCreateConflictAndAdjacent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := slot(10)

	if _, err := f.svc.Create(ctx, f.doctor, f.request(start, 30)); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Create(ctx, f.doctor, f.request(start.Add(15*time.Minute), 30))
	if !model.IsKind(err, model.KindConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
	if _, err := f.svc.Create(ctx, f.doctor, f.request(start.Add(30*time.Minute), 30)); err != nil {
		t.Errorf("adjacent: %v", err)
	}
}

func TestExclusionConstraintBackstop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := slot(20)

	insert := func() error {
		return f.st.WithDoctorLock(ctx, f.doctor.ID, func(tx scheduling.Tx) error {
			now := time.Now().UTC()
			_, err := tx.Insert(ctx, &model.Appointment{
				PatientID: f.patientID, DoctorID: f.doctor.ID, ClinicID: f.clinicID,
				StartTime: start, DurationMinutes: 30, Type: model.DefaultAppointmentType,
				Status: model.StatusScheduled, CreatedBy: model.CreatedByDoctor,
				CreatedAt: now, UpdatedAt: now,
			})
			return err
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// skips the engine's check; the database must still refuse
	if err := insert(); !model.IsKind(err, model.KindConflict) {
		t.Fatalf("second insert: got %v, want conflict", err)
	}
}

func TestConcurrentBooking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := slot(30)

	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := f.request(start.Add(time.Duration(i%3)*5*time.Minute), 30)
			r.Notes = fmt.Sprintf("concurrent-%d", i)
			_, err := f.svc.Create(ctx, f.doctor, r)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	conflicts := 0
	for err := range results {
		if err == nil {
			successes++
		} else if model.IsKind(err, model.KindConflict) {
			conflicts++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if conflicts != n-1 {
		t.Errorf("expected %d conflicts, got %d", n-1, conflicts)
	}
	t.Logf("concurrent: %d success, %d conflicts (out of %d)", successes, conflicts, n)
}

func TestListAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, h := range []int{45, 41, 43} {
		if _, err := f.svc.Create(ctx, f.doctor, f.request(slot(h), 30)); err != nil {
			t.Fatal(err)
		}
	}
	list, err := f.svc.List(ctx, f.doctor, scheduling.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d, want 3", len(list))
	}
	if list[0].AppointmentDatetime > list[1].AppointmentDatetime {
		t.Errorf("not ascending: %+v", list)
	}

	patient := model.Principal{ID: f.patientID, Role: model.RolePatient}
	mine, err := f.svc.List(ctx, patient, scheduling.ListRequest{Status: "Scheduled"})
	if err != nil || len(mine) != 3 {
		t.Errorf("patient list: %d %v", len(mine), err)
	}

	if err := f.svc.Delete(ctx, f.doctor, list[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.doctor, list[0].ID); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestSessionBackend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	clock := func() time.Time { return now }
	m, err := session.NewManager(f.st.Sessions(), time.Hour, session.WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}

	tok, _, err := m.Issue(ctx, f.doctor, model.ClientInfo{IP: "127.0.0.1", UserAgent: "store-test"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	s, err := m.Lookup(ctx, tok)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.PrincipalID != f.doctor.ID || s.Role != model.RoleDoctor || s.UserAgent != "store-test" {
		t.Errorf("unexpected session %+v", s)
	}

	n, err := m.Reap(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if n < 1 {
		t.Errorf("reaped %d", n)
	}
	if _, err := m.Lookup(ctx, tok); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("after reap: %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	issued := time.Now().UTC().Add(-2 * time.Hour)
	m, _ := session.NewManager(f.st.Sessions(), time.Hour, session.WithClock(func() time.Time { return issued }))
	tok, _, err := m.Issue(ctx, f.doctor, model.ClientInfo{})
	if err != nil {
		t.Fatal(err)
	}

	later, _ := session.NewManager(f.st.Sessions(), time.Hour)
	if _, err := later.Lookup(ctx, tok); !errors.Is(err, session.ErrExpired) {
		t.Errorf("got %v, want ErrExpired", err)
	}
	if ok, _ := later.Invalidate(ctx, tok); !ok {
		t.Error("invalidate expired session returned false")
	}
}

func TestFindAccount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.st.FindAccount(ctx, model.RoleDoctor, "no-such-user-"+uuid.New().String()); !model.IsKind(err, model.KindNotFound) {
		t.Errorf("got %v, want not found", err)
	}
	ok, err := f.st.DoctorExists(ctx, f.doctor.ID)
	if err != nil || !ok {
		t.Errorf("doctor exists = %v, %v", ok, err)
	}
	ok, err = f.st.ClinicExists(ctx, -1)
	if err != nil || ok {
		t.Errorf("clinic -1 exists = %v, %v", ok, err)
	}
}
