// Package scheduling books, changes and lists clinic appointments.
//
// Every write that can affect a doctor's calendar runs inside
// Repository.WithDoctorLock, so the conflict check and the write it
// guards see the same set of active appointments.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/security"
)

const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultStoreTimeout = 5 * time.Second
)

const msgConflict = "Doctor already has an appointment at this time"

// Recorder receives booking outcomes for metrics.
type Recorder interface {
	AppointmentCreated()
	AppointmentConflict()
	AppointmentDeleted()
}

type nopRecorder struct{}

func (nopRecorder) AppointmentCreated() {}
func (nopRecorder) AppointmentConflict() {}
func (nopRecorder) AppointmentDeleted() {}

type CreateRequest struct {
	PatientID       int64
	DoctorID        int64
	ClinicID        int64
	StartTime       time.Time
	DurationMinutes *int
	Type            string
	Notes           string
	Symptoms        string
	CreatedBy       string
}

// UpdateRequest carries only the fields to change.
type UpdateRequest struct {
	StartTime *time.Time
	Status    *string
	Notes     *string
	Symptoms  *string
}

type ListRequest struct {
	Status string
	Limit  *int
}

type Service struct {
	repo     Repository
	now      func() time.Time
	timeout  time.Duration
	strict   bool
	log      zerolog.Logger
	recorder Recorder
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStrictTransitions enables the status transition table.
func WithStrictTransitions(on bool) Option {
	return func(s *Service) { s.strict = on }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		now:      time.Now,
		timeout:  DefaultStoreTimeout,
		log:      zerolog.Nop(),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, p model.Principal, req CreateRequest) (*AppointmentResponse, error) {
	if err := auth.RequireRole(p, model.RoleDoctor); err != nil {
		return nil, err
	}
	now := s.now()

	a, err := s.shape(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.checkReferences(ctx, a); err != nil {
		return nil, err
	}
	if !a.StartTime.After(now) {
		return nil, model.Validation("Appointment must be scheduled for a future date and time")
	}
	if req.DurationMinutes != nil {
		d := *req.DurationMinutes
		if d < model.MinDuration || d > model.MaxDuration {
			return nil, model.Validation("duration_minutes must be between %d and %d", model.MinDuration, model.MaxDuration)
		}
		a.DurationMinutes = d
	}
	a.Status = model.StatusScheduled
	a.CreatedAt = now
	a.UpdatedAt = now

	var rec *model.AppointmentRecord
	err = s.repo.WithDoctorLock(ctx, a.DoctorID, func(tx Tx) error {
		existing, err := tx.ActiveForDoctor(ctx, a.DoctorID, 0)
		if err != nil {
			return fmt.Errorf("load doctor appointments: %w", err)
		}
		if c := FindConflict(existing, IntervalOf(a)); c != nil {
			s.log.Info().Int64("doctor_id", a.DoctorID).Int64("conflicts_with", c.ID).
				Time("start", a.StartTime).Msg("booking conflict")
			return model.Conflict(msgConflict)
		}
		id, err := tx.Insert(ctx, a)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		rec, err = tx.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("read back appointment %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		if model.IsKind(err, model.KindConflict) {
			s.recorder.AppointmentConflict()
		}
		return nil, s.classify(err, "create appointment")
	}

	s.recorder.AppointmentCreated()
	s.log.Info().Int64("appointment_id", rec.ID).Int64("doctor_id", rec.DoctorID).
		Int64("principal_id", p.ID).Msg("appointment created")
	return Assemble(rec), nil
}

// shape checks the request fields that need no lookups and applies defaults.
func (s *Service) shape(req CreateRequest) (*model.Appointment, error) {
	switch {
	case req.PatientID < 1:
		return nil, model.Validation("patient_id must be greater than or equal to 1")
	case req.DoctorID < 1:
		return nil, model.Validation("doctor_id must be greater than or equal to 1")
	case req.ClinicID < 1:
		return nil, model.Validation("clinic_id must be greater than or equal to 1")
	case req.StartTime.IsZero():
		return nil, model.Validation("appointment_datetime is required")
	}

	typ := security.CleanText(req.Type)
	if typ == "" {
		typ = model.DefaultAppointmentType
	}
	if utf8.RuneCountInString(typ) > model.MaxAppointmentTypeLen {
		return nil, model.Validation("appointment_type must be at most %d characters", model.MaxAppointmentTypeLen)
	}

	createdBy := model.CreatedByDoctor
	if req.CreatedBy != "" {
		cb, ok := model.ParseCreatedBy(req.CreatedBy)
		if !ok {
			return nil, model.Validation("created_by must be one of Doctor, Patient, Admin")
		}
		createdBy = cb
	}

	return &model.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ClinicID:        req.ClinicID,
		StartTime:       req.StartTime.UTC(),
		DurationMinutes: model.DefaultDuration,
		Type:            typ,
		Notes:           security.CleanText(req.Notes),
		Symptoms:        security.CleanText(req.Symptoms),
		CreatedBy:       createdBy,
	}, nil
}

func (s *Service) checkReferences(ctx context.Context, a *model.Appointment) error {
	checks := []struct {
		entity string
		id     int64
		exists func(context.Context, int64) (bool, error)
	}{
		{"Patient", a.PatientID, s.repo.PatientExists},
		{"Doctor", a.DoctorID, s.repo.DoctorExists},
		{"Clinic", a.ClinicID, s.repo.ClinicExists},
	}
	for _, c := range checks {
		ok, err := c.exists(ctx, c.id)
		if err != nil {
			return model.Internal(fmt.Errorf("check %s %d: %w", c.entity, c.id, err))
		}
		if !ok {
			return model.NotFound(c.entity, c.id)
		}
	}
	return nil
}

func (s *Service) Update(ctx context.Context, p model.Principal, id int64, req UpdateRequest) (*AppointmentResponse, error) {
	if err := auth.RequireRole(p, model.RoleDoctor); err != nil {
		return nil, err
	}
	now := s.now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var status *model.Status
	if req.StartTime != nil && !req.StartTime.After(now) {
		return nil, model.Validation("Appointment must be scheduled for a future date and time")
	}
	if req.Status != nil {
		st, ok := model.ParseStatus(*req.Status)
		if !ok {
			return nil, model.Validation("status must be one of Scheduled, Confirmed, Completed, Cancelled, No Show")
		}
		status = &st
	}
	if req.StartTime == nil && status == nil && req.Notes == nil && req.Symptoms == nil {
		return Assemble(current), nil
	}

	var rec *model.AppointmentRecord
	err = s.repo.WithDoctorLock(ctx, current.DoctorID, func(tx Tx) error {
		cur, err := tx.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return model.NotFound("Appointment", id)
		}
		if err != nil {
			return fmt.Errorf("reload appointment %d: %w", id, err)
		}

		next := cur.Appointment
		if req.StartTime != nil {
			next.StartTime = req.StartTime.UTC()
		}
		if status != nil {
			if s.strict && !CanTransition(cur.Status, *status) {
				return model.Validation("cannot change status from %s to %s", cur.Status, *status)
			}
			next.Status = *status
		}
		if req.Notes != nil {
			next.Notes = security.CleanText(*req.Notes)
		}
		if req.Symptoms != nil {
			next.Symptoms = security.CleanText(*req.Symptoms)
		}
		next.UpdatedAt = now

		moved := !next.StartTime.Equal(cur.StartTime)
		revived := !cur.Status.Active()
		if next.Status.Active() && (moved || revived) {
			existing, err := tx.ActiveForDoctor(ctx, next.DoctorID, next.ID)
			if err != nil {
				return fmt.Errorf("load doctor appointments: %w", err)
			}
			if c := FindConflict(existing, IntervalOf(&next)); c != nil {
				s.log.Info().Int64("appointment_id", id).Int64("conflicts_with", c.ID).Msg("update conflict")
				return model.Conflict(msgConflict)
			}
		}

		if err := tx.Update(ctx, &next); err != nil {
			return fmt.Errorf("update appointment %d: %w", id, err)
		}
		rec, err = tx.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("read back appointment %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		if model.IsKind(err, model.KindConflict) {
			s.recorder.AppointmentConflict()
		}
		return nil, s.classify(err, "update appointment")
	}

	s.log.Info().Int64("appointment_id", id).Int64("principal_id", p.ID).Msg("appointment updated")
	return Assemble(rec), nil
}

// List returns the principal's own appointments, earliest first. Admins
// see every doctor's.
func (s *Service) List(ctx context.Context, p model.Principal, req ListRequest) ([]AppointmentSummary, error) {
	q := ListQuery{Limit: DefaultListLimit}
	switch p.Role {
	case model.RoleDoctor:
		q.DoctorID = p.ID
	case model.RolePatient:
		q.PatientID = p.ID
	case model.RoleAdmin:
	default:
		return nil, auth.RequireRole(p, model.RoleDoctor, model.RolePatient)
	}

	if req.Status != "" {
		st, ok := model.ParseStatus(req.Status)
		if !ok {
			return nil, model.Validation("status must be one of Scheduled, Confirmed, Completed, Cancelled, No Show")
		}
		q.Status = &st
	}
	if req.Limit != nil {
		if *req.Limit < 1 || *req.Limit > MaxListLimit {
			return nil, model.Validation("limit must be between 1 and %d", MaxListLimit)
		}
		q.Limit = *req.Limit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, model.Internal(fmt.Errorf("list appointments: %w", err))
	}
	return SummarizeAll(rows), nil
}

// Get returns one appointment. Patients only see their own; anything else
// is reported as missing.
func (s *Service) Get(ctx context.Context, p model.Principal, id int64) (*AppointmentResponse, error) {
	if err := auth.RequireRole(p, model.RoleDoctor, model.RolePatient, model.RoleAdmin); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == model.RolePatient && rec.PatientID != p.ID {
		return nil, model.NotFound("Appointment", id)
	}
	return Assemble(rec), nil
}

func (s *Service) Delete(ctx context.Context, p model.Principal, id int64) error {
	if err := auth.RequireRole(p, model.RoleDoctor, model.RoleAdmin); err != nil {
		return err
	}
	if id < 1 {
		return model.NotFound("Appointment", id)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return model.Internal(fmt.Errorf("delete appointment %d: %w", id, err))
	}
	if !ok {
		return model.NotFound("Appointment", id)
	}
	s.recorder.AppointmentDeleted()
	s.log.Info().Int64("appointment_id", id).Int64("principal_id", p.ID).
		Str("role", p.Role.String()).Msg("appointment deleted")
	return nil
}

func (s *Service) get(ctx context.Context, id int64) (*model.AppointmentRecord, error) {
	if id < 1 {
		return nil, model.NotFound("Appointment", id)
	}
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, model.NotFound("Appointment", id)
	}
	if err != nil {
		return nil, model.Internal(fmt.Errorf("get appointment %d: %w", id, err))
	}
	return rec, nil
}

// classify keeps domain errors and turns everything else into Internal.
func (s *Service) classify(err error, op string) error {
	var e *model.Error
	if errors.As(err, &e) {
		return e
	}
	return model.Internal(fmt.Errorf("%s: %w", op, err))
}
