// Package schedtest provides an in-memory scheduling.Repository for tests.
package schedtest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
)

// ErrStore is returned by the operation named in Repo.FailOn.
var ErrStore = errors.New("store unavailable")

// Repo keeps appointments in a map and serializes WithDoctorLock per doctor.
// FailOn names one operation to fail: "patient", "doctor", "clinic",
// "get", "list", "delete" or "insert".
type Repo struct {
	FailOn string

	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	rows     map[int64]*model.Appointment
	nextID   int64
	patients map[int64]string
	doctors  map[int64]string
	clinics  map[int64]string
}

// NewRepo seeds patients 1 and 5, doctors 2 and 4, and clinic 3.
func NewRepo() *Repo {
	return &Repo{
		locks:    make(map[int64]*sync.Mutex),
		rows:     make(map[int64]*model.Appointment),
		patients: map[int64]string{1: "Ada Obi", 5: "Tunde Bello"},
		doctors:  map[int64]string{2: "Dr. Okafor", 4: "Dr. Eze"},
		clinics:  map[int64]string{3: "Lekki Clinic"},
	}
}

func (m *Repo) exists(set map[int64]string, id int64, op string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn == op {
		return false, ErrStore
	}
	_, ok := set[id]
	return ok, nil
}

func (m *Repo) PatientExists(_ context.Context, id int64) (bool, error) {
	return m.exists(m.patients, id, "patient")
}

func (m *Repo) DoctorExists(_ context.Context, id int64) (bool, error) {
	return m.exists(m.doctors, id, "doctor")
}

func (m *Repo) ClinicExists(_ context.Context, id int64) (bool, error) {
	return m.exists(m.clinics, id, "clinic")
}

func (m *Repo) record(a *model.Appointment) *model.AppointmentRecord {
	return &model.AppointmentRecord{
		Appointment: *a,
		PatientName: m.patients[a.PatientID],
		DoctorName:  m.doctors[a.DoctorID],
		ClinicName:  m.clinics[a.ClinicID],
	}
}

func (m *Repo) Get(_ context.Context, id int64) (*model.AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn == "get" {
		return nil, ErrStore
	}
	a, ok := m.rows[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	return m.record(a), nil
}

func (m *Repo) List(_ context.Context, q scheduling.ListQuery) ([]model.AppointmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn == "list" {
		return nil, ErrStore
	}
	var out []model.AppointmentRecord
	for _, a := range m.rows {
		if q.DoctorID != 0 && a.DoctorID != q.DoctorID {
			continue
		}
		if q.PatientID != 0 && a.PatientID != q.PatientID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		out = append(out, *m.record(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Repo) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn == "delete" {
		return false, ErrStore
	}
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *Repo) WithDoctorLock(ctx context.Context, doctorID int64, fn func(scheduling.Tx) error) error {
	m.mu.Lock()
	l, ok := m.locks[doctorID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[doctorID] = l
	}
	m.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(tx{m})
}

// Put stores a copy of a under a fresh id, bypassing every check.
func (m *Repo) Put(a model.Appointment) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = &a
	return a.ID
}

func (m *Repo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type tx struct{ m *Repo }

func (t tx) ActiveForDoctor(_ context.Context, doctorID, excludeID int64) ([]model.Appointment, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var out []model.Appointment
	for _, a := range t.m.rows {
		if a.DoctorID == doctorID && a.ID != excludeID && a.Status.Active() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (t tx) Insert(_ context.Context, a *model.Appointment) (int64, error) {
	t.m.mu.Lock()
	fail := t.m.FailOn == "insert"
	t.m.mu.Unlock()
	if fail {
		return 0, ErrStore
	}
	return t.m.Put(*a), nil
}

func (t tx) Update(_ context.Context, a *model.Appointment) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if _, ok := t.m.rows[a.ID]; !ok {
		return scheduling.ErrNotFound
	}
	cp := *a
	t.m.rows[a.ID] = &cp
	return nil
}

func (t tx) Get(ctx context.Context, id int64) (*model.AppointmentRecord, error) {
	return t.m.Get(ctx, id)
}
