package scheduling

import (
	"context"
	"errors"

	"clinic-scheduler/internal/model"
)

// ErrNotFound is returned by repository reads when the appointment is absent.
var ErrNotFound = errors.New("appointment not found")

// Repository is the persistence the engine needs. Implementations must
// serialize WithDoctorLock callers per doctor.
type Repository interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
	ClinicExists(ctx context.Context, id int64) (bool, error)

	Get(ctx context.Context, id int64) (*model.AppointmentRecord, error)
	List(ctx context.Context, q ListQuery) ([]model.AppointmentRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)

	// WithDoctorLock runs fn in one transaction holding the doctor's row
	// lock. fn's error rolls the transaction back.
	WithDoctorLock(ctx context.Context, doctorID int64, fn func(Tx) error) error
}

type Tx interface {
	// ActiveForDoctor returns the doctor's Scheduled/Confirmed appointments,
	// skipping excludeID.
	ActiveForDoctor(ctx context.Context, doctorID, excludeID int64) ([]model.Appointment, error)
	Insert(ctx context.Context, a *model.Appointment) (int64, error)
	Update(ctx context.Context, a *model.Appointment) error
	Get(ctx context.Context, id int64) (*model.AppointmentRecord, error)
}

// ListQuery selects appointments by owner. Zero ids do not filter.
type ListQuery struct {
	DoctorID  int64
	PatientID int64
	Status    *model.Status
	Limit     int
}
